package viewmodel

import (
	"github.com/bjarke-xyz/fmh/pkg/event"
	"github.com/bjarke-xyz/fmh/pkg/scope"
)

// Await subscribes to events, starts op and waits for the job it returns.
// The result holds the events that were emitted while op ran. Hosts use it to
// turn a fire-and-forget operation into a request/response.
func Await(op func() *scope.Job, events ...*event.Event) map[*event.Event]bool {
	channels := make([]<-chan struct{}, len(events))
	for i, e := range events {
		ch, unsubscribe := e.Subscribe()
		defer unsubscribe()
		channels[i] = ch
	}
	op().Wait()
	fired := make(map[*event.Event]bool, len(events))
	for i, ch := range channels {
		select {
		case <-ch:
			fired[events[i]] = true
		default:
		}
	}
	return fired
}
