package event

import (
	"context"
	"sync"
)

// Event is a one-shot signal with no payload. An emission reaches only the
// subscribers registered at that moment; with no subscribers it is dropped.
type Event struct {
	name   string
	mu     sync.RWMutex
	nextId int
	subs   map[int]chan struct{}
}

func New(name string) *Event {
	return &Event{
		name: name,
		subs: make(map[int]chan struct{}),
	}
}

func (e *Event) Name() string {
	return e.name
}

// Subscribe registers a listener. The returned func unregisters it and is
// safe to call more than once.
func (e *Event) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	id := e.nextId
	e.nextId++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

func (e *Event) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Emit delivers the signal to the current subscribers, waiting for a slow
// subscriber to make room until ctx is done.
func (e *Event) Emit(ctx context.Context) {
	e.mu.RLock()
	targets := make([]chan struct{}, 0, len(e.subs))
	for _, ch := range e.subs {
		targets = append(targets, ch)
	}
	e.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}
