// Package gateway integrates with the external payment provider.
//
// The provider is an opaque collaborator: the rest of the service only
// consumes a reference plus a terminal status string, never the provider's
// payload schema.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
)

// StatusPending is the status reported while a charge is unresolved.
const StatusPending = "pending"

// ErrRejected indicates the provider refused the initiation request.
var ErrRejected = errors.New("payment initiation rejected")

// InitiateRequest describes a charge to initiate.
type InitiateRequest struct {
	Reference string
	Amount    int64
	Currency  string
}

// Initiation is the provider's response to a charge request. Meta is the
// raw provider payload, stored with the session but never interpreted.
type Initiation struct {
	Meta         json.RawMessage
	Instructions string
}

// Gateway initiates charges and reports their status.
type Gateway interface {
	// Initiate starts a charge for the given reference and amount.
	Initiate(ctx context.Context, req InitiateRequest) (Initiation, error)

	// CheckStatus returns the provider's current status string for a
	// reference. StatusPending means the charge is still unresolved;
	// any other value is terminal and fed through confirmation
	// normalization.
	CheckStatus(ctx context.Context, reference string) (string, error)
}

// Demo is the gateway used when no provider secret is configured. Charges
// are accepted without contacting any provider and stay pending until a
// webhook or manual simulation resolves them, which mirrors how the
// service is exercised in local development.
type Demo struct{}

// Initiate accepts the charge without side effects.
func (Demo) Initiate(ctx context.Context, req InitiateRequest) (Initiation, error) {
	return Initiation{
		Instructions: "demo: payment initiated (no gateway key configured)",
	}, nil
}

// CheckStatus always reports pending; demo charges resolve via webhook.
func (Demo) CheckStatus(ctx context.Context, reference string) (string, error) {
	return StatusPending, nil
}
