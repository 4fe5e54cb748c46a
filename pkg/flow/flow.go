package flow

import (
	"context"
	"errors"
)

// Flow is a cold stream. Every call runs the producer from the start and
// hands each value to emit. A non-nil error from emit stops the producer and
// is returned to the caller.
type Flow[T any] func(ctx context.Context, emit func(T) error) error

var ErrEmpty = errors.New("flow completed without emitting a value")

var errStop = errors.New("flow: stop collecting")

func (f Flow[T]) Collect(ctx context.Context, fn func(T) error) error {
	err := f(ctx, fn)
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func Of[T any](values ...T) Flow[T] {
	return func(ctx context.Context, emit func(T) error) error {
		for _, v := range values {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	}
}

// Single emits the result of fn once, or fails with its error.
func Single[T any](fn func(ctx context.Context) (T, error)) Flow[T] {
	return func(ctx context.Context, emit func(T) error) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		return emit(v)
	}
}

func Error[T any](err error) Flow[T] {
	return func(ctx context.Context, emit func(T) error) error {
		return err
	}
}

func Map[T, R any](f Flow[T], fn func(T) R) Flow[R] {
	return func(ctx context.Context, emit func(R) error) error {
		return f(ctx, func(v T) error {
			return emit(fn(v))
		})
	}
}

// First collects f until its first value and cancels the rest.
func First[T any](ctx context.Context, f Flow[T]) (T, error) {
	var result T
	found := false
	err := f(ctx, func(v T) error {
		result = v
		found = true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return result, err
	}
	if !found {
		return result, ErrEmpty
	}
	return result, nil
}

func ToSlice[T any](ctx context.Context, f Flow[T]) ([]T, error) {
	result := make([]T, 0)
	err := f(ctx, func(v T) error {
		result = append(result, v)
		return nil
	})
	return result, err
}

// Combine emits transform(a, b) with the latest value of each side once both
// have emitted, and again every time either side emits. It completes when
// both sides complete and fails as soon as either side fails.
func Combine[A, B, R any](fa Flow[A], fb Flow[B], transform func(A, B) R) Flow[R] {
	return func(ctx context.Context, emit func(R) error) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		type update struct {
			a   A
			b   B
			isA bool
			isB bool
		}
		updates := make(chan update)
		errs := make(chan error, 2)
		send := func(u update) error {
			select {
			case updates <- u:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		go func() {
			errs <- fa(ctx, func(v A) error { return send(update{a: v, isA: true}) })
		}()
		go func() {
			errs <- fb(ctx, func(v B) error { return send(update{b: v, isB: true}) })
		}()

		var a A
		var b B
		hasA, hasB := false, false
		running := 2
		for running > 0 {
			select {
			case u := <-updates:
				if u.isA {
					a, hasA = u.a, true
				}
				if u.isB {
					b, hasB = u.b, true
				}
				if hasA && hasB {
					if err := emit(transform(a, b)); err != nil {
						return err
					}
				}
			case err := <-errs:
				running--
				if err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
}

type downstreamError struct {
	err error
}

func (d *downstreamError) Error() string {
	return d.err.Error()
}

func (d *downstreamError) Unwrap() error {
	return d.err
}

// Catch hands a failure of the upstream flow to handler and then completes
// normally. Errors returned by the downstream collector and cancellation of
// ctx pass through untouched.
func Catch[T any](f Flow[T], handler func(ctx context.Context, err error)) Flow[T] {
	return func(ctx context.Context, emit func(T) error) error {
		err := f(ctx, func(v T) error {
			if err := emit(v); err != nil {
				return &downstreamError{err: err}
			}
			return nil
		})
		if err == nil {
			return nil
		}
		var downstream *downstreamError
		if errors.As(err, &downstream) {
			return downstream.err
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		handler(ctx, err)
		return nil
	}
}
