package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SessionState describes the lifecycle state of a payment session.
type SessionState int

const (
	// SessionStateUnspecified represents an invalid session state value.
	SessionStateUnspecified SessionState = iota
	// SessionStatePending indicates the payment has been initiated but not confirmed.
	SessionStatePending
	// SessionStateSuccessful indicates the payment was confirmed and a winner assigned.
	SessionStateSuccessful
	// SessionStateFailed indicates the payment was rejected or abandoned.
	SessionStateFailed
)

// Terminal reports whether no further transitions are permitted from the state.
func (s SessionState) Terminal() bool {
	return s == SessionStateSuccessful || s == SessionStateFailed
}

// String returns the wire representation of the state.
func (s SessionState) String() string {
	switch s {
	case SessionStatePending:
		return "pending"
	case SessionStateSuccessful:
		return "successful"
	case SessionStateFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// ParseSessionState maps a stored state string back to its enum value.
func ParseSessionState(value string) SessionState {
	switch value {
	case "pending":
		return SessionStatePending
	case "successful":
		return SessionStateSuccessful
	case "failed":
		return SessionStateFailed
	default:
		return SessionStateUnspecified
	}
}

// Session represents one payment attempt tracked by a unique reference.
//
// Winner is non-empty if and only if State is SessionStateSuccessful, and
// once set it never changes. GatewayMeta is the opaque payload returned by
// the payment gateway at initiation and is never interpreted here.
type Session struct {
	Reference   string
	State       SessionState
	Winner      string
	GatewayMeta json.RawMessage
	CreatedAt   time.Time
}

// NewSession creates a PENDING session with a generated reference.
// The clock and reference generator are injectable for tests; nil selects
// the defaults.
func NewSession(gatewayMeta json.RawMessage, now func() time.Time, refGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if refGenerator == nil {
		refGenerator = NewReference
	}

	reference, err := refGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate payment reference: %w", err)
	}
	if strings.TrimSpace(reference) == "" {
		return Session{}, fmt.Errorf("payment reference is empty")
	}

	return Session{
		Reference:   reference,
		State:       SessionStatePending,
		GatewayMeta: gatewayMeta,
		CreatedAt:   now().UTC(),
	}, nil
}
