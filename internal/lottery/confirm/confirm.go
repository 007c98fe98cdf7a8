// Package confirm normalizes external confirmation signals.
//
// Confirmation of a payment can arrive as a gateway webhook, a manual
// override, or a gateway poll response. Each shape reduces to a
// (reference, outcome) pair before it touches the state machine, so the
// state machine never interprets any provider payload itself.
package confirm

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ankwata/ankwata/internal/lottery/domain"
)

// successStatus is the only gateway status treated as a success. Anything
// else a provider sends (failed, cancelled, reversed, typo'd) maps to
// failure rather than staying ambiguous.
const successStatus = "successful"

// ErrMalformedConfirmation indicates a confirmation payload without a
// usable reference. Such payloads are rejected, never applied.
var ErrMalformedConfirmation = errors.New("confirmation payload has no reference")

// Confirmation is a normalized confirmation signal.
type Confirmation struct {
	Reference string
	Outcome   domain.Outcome
}

// webhookPayload covers both the provider webhook shape, which nests the
// reference under data, and the flat manual-override shape.
type webhookPayload struct {
	Data struct {
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	} `json:"data"`
	TxRef  string `json:"tx_ref"`
	Status string `json:"status"`
}

// Normalize reduces a webhook or manual-override payload to a
// Confirmation.
//
// The nested data shape takes precedence. The flat shape is the manual
// simulation path: its status defaults to successful when omitted, and
// callers are expected to restrict who may submit it.
func Normalize(payload []byte) (Confirmation, error) {
	var parsed webhookPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Confirmation{}, ErrMalformedConfirmation
	}

	if reference := strings.TrimSpace(parsed.Data.TxRef); reference != "" {
		return Confirmation{
			Reference: reference,
			Outcome:   outcomeFromStatus(parsed.Data.Status),
		}, nil
	}

	if reference := strings.TrimSpace(parsed.TxRef); reference != "" {
		status := parsed.Status
		if strings.TrimSpace(status) == "" {
			status = successStatus
		}
		return Confirmation{
			Reference: reference,
			Outcome:   outcomeFromStatus(status),
		}, nil
	}

	return Confirmation{}, ErrMalformedConfirmation
}

// FromGatewayStatus normalizes a terminal status reported by a gateway
// poll response.
func FromGatewayStatus(reference, status string) (Confirmation, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Confirmation{}, ErrMalformedConfirmation
	}
	return Confirmation{
		Reference: reference,
		Outcome:   outcomeFromStatus(status),
	}, nil
}

func outcomeFromStatus(status string) domain.Outcome {
	if strings.TrimSpace(status) == successStatus {
		return domain.OutcomeSuccess
	}
	return domain.OutcomeFailure
}
