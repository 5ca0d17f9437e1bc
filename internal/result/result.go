// Package result provides a two-state outcome wrapper for fallible pipeline
// operations. Callers branch on the error list instead of catching panics, so
// "no rows" can be a normal success with an empty payload rather than a fault.
package result

// Result holds either a resolved payload or a list of rejection messages,
// never both. The zero value is a resolved zero payload.
type Result[T any] struct {
	payload T
	errs    []string
}

// Resolve returns a successful result carrying payload. An empty payload
// (nil slice, zero struct) is still a success, distinct from a rejection.
func Resolve[T any](payload T) Result[T] {
	return Result[T]{payload: payload}
}

// Reject returns a failed result carrying one or more error descriptions.
func Reject[T any](errs ...string) Result[T] {
	if len(errs) == 0 {
		errs = []string{"rejected"}
	}
	return Result[T]{errs: errs}
}

// Unpack returns the payload and the error list. The payload must not be used
// when the error list is non-empty.
func (r Result[T]) Unpack() (T, []string) {
	return r.payload, r.errs
}

// Rejected reports whether the result carries errors.
func (r Result[T]) Rejected() bool {
	return len(r.errs) > 0
}

// Errors returns the rejection messages, nil for a resolved result.
func (r Result[T]) Errors() []string {
	return r.errs
}
