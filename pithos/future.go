package pithos

import (
	"context"
)

// Future is the pending outcome of a call started with Go.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	value  T
	err    error
}

// Go runs fn in its own goroutine. Cancelling ctx, or calling Cancel,
// cancels the context fn receives.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer cancel()
		f.value, f.err = fn(ctx)
		close(f.done)
	}()

	return f
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel asks the call to stop. A write the server already accepted is not
// rolled back.
func (f *Future[T]) Cancel() {
	f.cancel()
}

// Result blocks until the call completes.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Await blocks until the call completes or ctx is done, whichever is first.
// The call keeps running when ctx ends first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
