package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel conditions surfaced across package boundaries.
var (
	// ErrMissingDependency: an item's upstream stage output is absent.
	ErrMissingDependency = errors.New("missing upstream stage output")

	// ErrRegression: a checkpoint advance would move durable progress
	// backwards (stale worker after a crash/restart race).
	ErrRegression = errors.New("checkpoint regression")

	// ErrBudgetExceeded: the orchestrator's hard cost budget is spent.
	ErrBudgetExceeded = errors.New("cost budget exceeded")
)

// Attempt records one failed dispatch inside a retried call.
type Attempt struct {
	Number int
	Err    string
	At     time.Time
}

// TransientCallFailure is returned when a retryable backend failure
// exhausted its attempt budget. It carries the attempt history.
type TransientCallFailure struct {
	Attempts []Attempt
}

func (e *TransientCallFailure) Error() string {
	if len(e.Attempts) == 0 {
		return "transient call failure"
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("transient call failure after %d attempts: %s", len(e.Attempts), last.Err)
}

// PermanentCallFailure is a non-retryable backend failure: a declared
// reject (auth, malformed request, content policy) or structured output
// that stayed malformed after reprompt attempts.
type PermanentCallFailure struct {
	Reason string
	Err    error
}

func (e *PermanentCallFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("permanent call failure (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("permanent call failure (%s)", e.Reason)
}

func (e *PermanentCallFailure) Unwrap() error { return e.Err }

// DomainValidationFailure marks a well-formed response that violates a
// domain invariant (e.g. earliest > latest). Distinct from call failures:
// the call succeeded, the content did not.
type DomainValidationFailure struct {
	ItemID   int64
	Problems []string
}

func (e *DomainValidationFailure) Error() string {
	return fmt.Sprintf("item %d violates domain invariants: %s", e.ItemID, strings.Join(e.Problems, "; "))
}

// IsTransient reports whether err is (or wraps) a TransientCallFailure.
func IsTransient(err error) bool {
	var t *TransientCallFailure
	return errors.As(err, &t)
}

// IsPermanent reports whether err is (or wraps) a PermanentCallFailure.
func IsPermanent(err error) bool {
	var p *PermanentCallFailure
	return errors.As(err, &p)
}
