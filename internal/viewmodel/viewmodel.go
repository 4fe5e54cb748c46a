// Package viewmodel holds the controllers that sit between a UI host and the
// repositories. Controllers never return repository errors to the host: each
// outcome is reported as a one-shot signal.
package viewmodel

import (
	"context"
	"log"

	"github.com/bjarke-xyz/fmh/metrics"
	"github.com/bjarke-xyz/fmh/pkg/event"
	"github.com/bjarke-xyz/fmh/pkg/scope"
)

func emit(ctx context.Context, e *event.Event) {
	metrics.SignalInc(e.Name())
	e.Emit(ctx)
}

// launchWithSignals runs call on s and emits success or failure once it has
// returned. A nil success means the operation has no success signal.
func launchWithSignals(s *scope.Scope, op string, call func(ctx context.Context) error, success *event.Event, failure *event.Event) *scope.Job {
	return s.Launch(op, func(ctx context.Context) {
		err := call(ctx)
		if err != nil {
			log.Printf("%v failed: %v", op, err)
			metrics.RepositoryErrorInc(op)
			emit(ctx, failure)
			return
		}
		if success != nil {
			emit(ctx, success)
		}
	})
}

func onFlowFailure(op string, failure *event.Event) func(ctx context.Context, err error) {
	return func(ctx context.Context, err error) {
		log.Printf("%v failed: %v", op, err)
		metrics.RepositoryErrorInc(op)
		emit(ctx, failure)
	}
}
