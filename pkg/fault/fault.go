// Package fault classifies runtime failures by kind so callers can tell a
// retryable provider hiccup from a broken contract without string matching.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind enumerates the failure classes the runtime distinguishes.
type Kind int

const (
	// KindUnknown is the zero value for errors that were never classified.
	KindUnknown Kind = iota

	// KindTransient covers model or network failures worth retrying.
	KindTransient

	// KindMalformedOutput means the model replied with text that could not be
	// parsed or validated.
	KindMalformedOutput

	// KindCapability is a failure raised by a capability invocation.
	KindCapability

	// KindUnknownAction is an action request naming no registered node.
	KindUnknownAction

	// KindStoreUnavailable means the long-term store or checkpoint log failed.
	KindStoreUnavailable

	// KindContract is a violated internal precondition, such as an
	// action-result without a pending request.
	KindContract

	// KindStepLimit means a turn exhausted its step budget.
	KindStepLimit

	// KindCanceled means the caller's context ended mid-turn.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindMalformedOutput:
		return "malformed_output"
	case KindCapability:
		return "capability"
	case KindUnknownAction:
		return "unknown_action"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindContract:
		return "contract"
	case KindStepLimit:
		return "step_limit"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error carries a Kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns a *Error wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a *Error from a format string. %w verbs are honored.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match against another *Error of the same kind, so that
// errors.Is(err, &fault.Error{Kind: fault.KindTransient}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the kind of the outermost *Error in err's chain. Context
// cancellation maps to KindCanceled when nothing else classified it.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}

	return KindUnknown
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// Wrap annotates err with op, preserving an existing kind or applying kind
// when err is unclassified. A nil err returns nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return &Error{Kind: fe.Kind, Op: op, Err: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCanceled, Op: op, Err: err}
	}

	return &Error{Kind: kind, Op: op, Err: err}
}
