package repository

import (
	"context"

	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
)

// liveQuery runs query once per collection and again after every change
// recorded in changes.
func liveQuery[T any](changes *flow.State[uint64], query func(ctx context.Context) (T, error)) flow.Flow[T] {
	return func(ctx context.Context, emit func(T) error) error {
		return changes.Flow()(ctx, func(uint64) error {
			v, err := query(ctx)
			if err != nil {
				return err
			}
			return emit(v)
		})
	}
}

// ownedBy stops f when owner is cancelled.
func ownedBy[T any](owner *scope.Scope, f flow.Flow[T]) flow.Flow[T] {
	if owner == nil {
		return f
	}
	return func(ctx context.Context, emit func(T) error) error {
		ctx, cancel := owner.Bind(ctx)
		defer cancel()
		return f(ctx, emit)
	}
}

func bump(changes *flow.State[uint64]) {
	changes.Update(func(v uint64) uint64 { return v + 1 })
}
