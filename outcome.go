package docchat

import (
	"context"
	"errors"
)

// Outcome classifies how a streaming session ended.
type Outcome string

const (
	OutcomeComplete    Outcome = "complete"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeRejected    Outcome = "rejected"
	OutcomeAborted     Outcome = "aborted"
	OutcomeTruncated   Outcome = "truncated"
	OutcomeCanceled    Outcome = "canceled"
	OutcomeError       Outcome = "error"
)

// OutcomeOf maps a session's terminal error to an Outcome. A nil error is
// OutcomeComplete.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeComplete
	case errors.Is(err, ErrUpstreamUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, ErrUpstreamRejected):
		return OutcomeRejected
	case errors.Is(err, ErrTruncatedStream):
		return OutcomeTruncated
	case errors.Is(err, ErrUpstreamAborted):
		return OutcomeAborted
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
