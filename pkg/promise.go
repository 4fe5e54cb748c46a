package pkg

import (
	"context"
)

// Promise runs f on its own goroutine and keeps its result.
type Promise[T any] struct {
	result T
	err    error
	done   chan struct{}
}

func NewPromise[T any](f func() (T, error)) *Promise[T] {
	promise := &Promise[T]{
		done: make(chan struct{}),
	}
	go func() {
		defer close(promise.done)
		promise.result, promise.err = f()
	}()
	return promise
}

func (p *Promise[T]) Poll() (T, error, bool) {
	select {
	case <-p.done:
		return p.result, p.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

func (p *Promise[T]) Get() (T, error) {
	<-p.done
	return p.result, p.err
}

// GetContext is Get that gives up when ctx is done.
func (p *Promise[T]) GetContext(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
