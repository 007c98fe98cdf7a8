package domain

// Outcome is the normalized terminal result of a confirmation signal.
type Outcome int

const (
	// OutcomeUnspecified represents an invalid outcome value.
	OutcomeUnspecified Outcome = iota
	// OutcomeSuccess indicates the gateway confirmed the payment.
	OutcomeSuccess
	// OutcomeFailure indicates the payment was rejected or abandoned.
	OutcomeFailure
)

// String returns the wire representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unspecified"
	}
}
