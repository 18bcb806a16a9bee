// Package failure defines the error taxonomy shared by every pipeline stage.
//
// Each error carries the stage that produced it and a Kind. Kind values are
// themselves errors, so callers can branch with errors.Is:
//
//	if errors.Is(err, failure.UnrecoverableGap) { ... }
//
// StatisticalInvariantViolation marks a logic defect rather than bad input;
// IsAssertion separates it from ordinary data errors.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error.
type Kind string

const (
	// MissingOrUnreadableInput indicates a required input is absent or cannot be read.
	MissingOrUnreadableInput Kind = "missing-or-unreadable-input"
	// MalformedRecord indicates a record has the wrong field count or an unparsable number.
	MalformedRecord Kind = "malformed-record"
	// InsufficientData indicates there is too little valid data to continue.
	InsufficientData Kind = "insufficient-data"
	// UnrecoverableGap indicates invalid frames at a boundary or an interior gap beyond the interpolation limit.
	UnrecoverableGap Kind = "unrecoverable-gap"
	// StatisticalInvariantViolation indicates a computed value broke an invariant (NaN, percentage outside [0,1]).
	StatisticalInvariantViolation Kind = "statistical-invariant-violation"
)

// Error implements error so a Kind can be used as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// Error is a stage-tagged pipeline error.
type Error struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New formats a message (supporting %w) and tags it with stage and kind.
func New(stage string, kind Kind, format string, args ...interface{}) error {
	return &Error{Stage: stage, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error. A nil err returns nil.
func Wrap(stage string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// StageOf returns the stage of the outermost *Error in err's chain.
func StageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Stage
	}
	return ""
}

// IsAssertion reports whether err signals a logic defect.
func IsAssertion(err error) bool {
	return errors.Is(err, StatisticalInvariantViolation)
}
