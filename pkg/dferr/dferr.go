// Package dferr defines the error taxonomy shared across dupefind's
// components (hashing, minhash, lsh, planner, storage, similarity).
//
// Errors are wrapped with the component and operation that produced them,
// following the {Component, Operation, Err} pattern used throughout this
// codebase, and carry a Kind so callers can branch on error category without
// depending on a specific sentinel value.
package dferr

import "errors"

// Kind classifies an error into one of the categories defined by the core
// error handling design. None of these are retried internally.
type Kind int

const (
	// Other is the zero value for errors that don't map to a specific kind
	// (typically wrapped backend failures of unknown shape).
	Other Kind = iota

	// InvalidInput covers a null fingerprint on insert, an unparseable
	// tokenizer descriptor, a non-positive n, or a mismatched K/B/R.
	InvalidInput

	// NotFound is raised when a requested document id is absent.
	NotFound

	// InsufficientStorageLevel is raised when an operation requires a
	// higher persistence level than the store was configured with.
	InsufficientStorageLevel

	// AlreadyInitialized is raised by a fresh-init path invoked against an
	// already-prepared store.
	AlreadyInitialized

	// CorruptConfig is raised when settings are missing or unparsable on
	// reload.
	CorruptConfig

	// BackendError wraps an opaque storage-layer failure.
	BackendError

	// PlannerUnreachable is a non-fatal condition: the parameter planner
	// hit its search cap and returned its best-effort configuration. It
	// surfaces as a warning through the caller's logging callback, not as
	// a returned error, but shares the Kind taxonomy for consistency.
	PlannerUnreachable
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case InsufficientStorageLevel:
		return "InsufficientStorageLevel"
	case AlreadyInitialized:
		return "AlreadyInitialized"
	case CorruptConfig:
		return "CorruptConfig"
	case BackendError:
		return "BackendError"
	case PlannerUnreachable:
		return "PlannerUnreachable"
	default:
		return "Other"
	}
}

// Error is the concrete error type returned by dupefind's components.
type Error struct {
	// Kind categorizes the failure.
	Kind Kind

	// Component names the package that raised the error, e.g. "lsh",
	// "minhash", "similarity".
	Component string

	// Op names the operation being performed, e.g. "Insert", "Query".
	Op string

	// Err is the underlying cause. May be nil for pure validation errors
	// (in which case Error() falls back to the Kind's description).
	Err error
}

func (e *Error) Error() string {
	msg := e.Component + "." + e.Op + ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error for the given kind, component, and operation.
func New(kind Kind, component, op string, err error) *Error {
	return &Error{Kind: kind, Component: component, Op: op, Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
