package async

import (
	"context"
	"time"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Done is closed once the future completes.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// Await waits for completion or for ctx to end, whichever comes first.
func (f *Future[U]) Await(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits at most timeout and returns ErrTimeout after that.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-t.C:
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete reports completion without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async executes fn(ctx, param) in a new goroutine.
// A context canceled before start completes the future with ctx.Err().
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx, param)
	}()

	return f
}

// Then runs fn with the result of f once it succeeds. An error from f is
// passed through and fn is not called.
func Then[U, V any](ctx context.Context, f *Future[U], fn func(context.Context, U) (V, error)) *Future[V] {
	return Async(ctx, f, func(ctx context.Context, f *Future[U]) (V, error) {
		u, err := f.Await(ctx)
		if err != nil {
			var zero V
			return zero, err
		}
		return fn(ctx, u)
	})
}
