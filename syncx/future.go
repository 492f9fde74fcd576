package syncx

import (
	"context"
	"sync"
	"time"
)

// Future is a value that is resolved asynchronously at a later time.
// Once resolved, every call to Await returns the same value.
type Future[T any] interface {
	// Resolve sets the value of the [Future].
	// Only the first call to Resolve will set the result. Subsequent calls do nothing.
	Resolve(T)
	// Await blocks until the value is made available with [Future.Resolve], or until the timeout elapses if specified.
	// If the timeout is reached, then the zero value of T is returned.
	Await(...time.Duration) T
	// AwaitContext blocks until the value is resolved or the context is done.
	// The context error is returned if the context finishes first.
	AwaitContext(ctx context.Context) (T, error)
	// Done returns a channel that is closed once the [Future] is resolved.
	Done() <-chan struct{}
}

// NewFuture creates an unresolved [Future].
func NewFuture[T any]() Future[T] {
	return &future[T]{
		done: make(chan struct{}),
	}
}

// Resolved creates a [Future] that is already resolved with val.
func Resolved[T any](val T) Future[T] {
	f := &future[T]{
		done: make(chan struct{}),
	}
	f.Resolve(val)
	return f
}

type future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
}

func (f *future[T]) Resolve(val T) {
	f.once.Do(func() {
		f.val = val
		close(f.done)
	})
}

func (f *future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *future[T]) Await(timeout ...time.Duration) T {
	ctx := context.Background()
	if len(timeout) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout[0])
		defer cancel()
	}
	val, _ := f.AwaitContext(ctx)
	return val
}

func (f *future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		// Resolved futures take precedence over an expired context.
		return f.val, nil
	default:
	}
	select {
	case <-f.done:
		return f.val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
