package llm

// Result holds the outcome of a best-effort stage. Callers decide whether a
// failed result is fatal.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps an error.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Succeeded reports whether the stage produced a value.
func (r Result[T]) Succeeded() bool {
	return r.Err == nil
}

// ValueOr returns the value, or fallback when the stage failed.
func (r Result[T]) ValueOr(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}
