package parser

import "fmt"

// Reason classifies why a generated response was rejected
type Reason string

const (
	ReasonEmpty    Reason = "empty"
	ReasonNoJSON   Reason = "no_json"
	ReasonSyntax   Reason = "syntax"
	ReasonSchema   Reason = "schema"
	ReasonSemantic Reason = "semantic"
	ReasonPanic    Reason = "panic"
)

// Failure describes a rejected response. It implements error so callers can log or wrap it.
type Failure struct {
	Spec   string
	Reason Reason
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s response rejected: %s", f.Spec, f.Reason)
	}
	return fmt.Sprintf("%s response rejected (%s): %s", f.Spec, f.Reason, f.Detail)
}

// Result is either a fully validated value or a Failure, never both.
type Result[T any] struct {
	value   T
	failure *Failure
}

// Ok wraps a validated value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps a failure.
func Fail[T any](f *Failure) Result[T] {
	return Result[T]{failure: f}
}

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool {
	return r.failure == nil
}

// Value returns the value and true, or the zero value and false on failure.
func (r Result[T]) Value() (T, bool) {
	if r.failure != nil {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Failure returns the failure, or nil when the result holds a value.
func (r Result[T]) Failure() *Failure {
	return r.failure
}

// Err returns the failure as an error, or nil.
func (r Result[T]) Err() error {
	if r.failure == nil {
		return nil
	}
	return r.failure
}
