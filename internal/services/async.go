package services

import "context"

type callResult[T any] struct {
	value T
	err   error
}

// callWithContext runs a blocking client call that takes no context and
// returns early when ctx is done. The call itself keeps running in the
// background until the client gives up.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan callResult[T], 1)
	go func() {
		v, err := fn()
		done <- callResult[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
