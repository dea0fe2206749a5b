// Package errors provides the engine's error taxonomy: each failure
// mode the spec names (parse, resolution, provider, cancellation,
// dependency, fatal) is a Kind carried by EngineError so callers at the
// request-coordinator boundary can classify and react instead of
// string-matching.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/groovy-lsp/engine/internal/types"
)

// Kind classifies an EngineError per spec §7.
type Kind string

const (
	KindParse        Kind = "parse_error"
	KindResolution    Kind = "resolution_error"
	KindProvider      Kind = "provider_error"
	KindCancellation  Kind = "cancellation"
	KindDependency    Kind = "dependency_error"
	KindFatal         Kind = "fatal"
)

// EngineError wraps an underlying error with classification and
// optional URI/operation context.
type EngineError struct {
	Kind        Kind
	URI         types.URI
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// New creates an EngineError of the given kind wrapping err.
func New(kind Kind, op string, err error) *EngineError {
	return &EngineError{
		Kind:       kind,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithURI attaches the document this error concerns.
func (e *EngineError) WithURI(uri types.URI) *EngineError {
	e.URI = uri
	return e
}

// WithRecoverable marks whether the caller may retry.
func (e *EngineError) WithRecoverable(recoverable bool) *EngineError {
	e.Recoverable = recoverable
	return e
}

func (e *EngineError) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Kind, e.Operation, e.URI, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Kind, e.Operation, e.Underlying)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// IsCancellation reports whether err is (or wraps) a cancellation,
// which callers must propagate to awaiters without logging as a fault.
func IsCancellation(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind == KindCancellation
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// KindOf returns the Kind of err, or "" if err is not an EngineError.
func KindOf(err error) Kind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
