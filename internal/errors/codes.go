// Package errors provides structured error codes for the lottery service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Payment session errors
	CodeDuplicateReference Code = "PAYMENT_DUPLICATE_REFERENCE"
	CodeNotFound           Code = "PAYMENT_NOT_FOUND"
	CodeStaleState         Code = "PAYMENT_STALE_STATE"
	CodeAmountMismatch     Code = "PAYMENT_AMOUNT_MISMATCH"
	CodeNotConfirmed       Code = "PAYMENT_NOT_CONFIRMED"

	// Confirmation errors
	CodeMalformedConfirmation Code = "CONFIRMATION_MALFORMED"

	// Winner errors
	CodeEntropyUnavailable Code = "WINNER_ENTROPY_UNAVAILABLE"

	// Gateway errors
	CodeGatewayRejected    Code = "GATEWAY_REJECTED"
	CodeGatewayUnavailable Code = "GATEWAY_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeAmountMismatch,
		CodeMalformedConfirmation,
		CodeGatewayRejected:
		return http.StatusBadRequest

	// Forbidden - state does not allow disclosure
	case CodeNotConfirmed:
		return http.StatusForbidden

	// Not found - resource does not exist
	case CodeNotFound:
		return http.StatusNotFound

	// Conflict - creation collision or concurrent transition
	case CodeDuplicateReference,
		CodeStaleState:
		return http.StatusConflict

	// Service unavailable - dependencies temporarily failing
	case CodeEntropyUnavailable,
		CodeGatewayUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
