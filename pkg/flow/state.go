package flow

import (
	"context"
	"sync"
)

// State holds a single value and notifies collectors when it changes.
// Collectors always see the latest value; intermediate values may be skipped
// and equal consecutive values are never emitted twice.
type State[T comparable] struct {
	mu      sync.Mutex
	value   T
	changed chan struct{}
}

func NewState[T comparable](initial T) *State[T] {
	return &State[T]{
		value:   initial,
		changed: make(chan struct{}),
	}
}

func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *State[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(v)
}

// Update applies fn to the current value atomically and returns the result.
func (s *State[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(fn(s.value))
	return s.value
}

func (s *State[T]) setLocked(v T) {
	if v == s.value {
		return
	}
	s.value = v
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *State[T]) snapshot() (T, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.changed
}

// Flow emits the current value and then every change. It never completes on
// its own.
func (s *State[T]) Flow() Flow[T] {
	return func(ctx context.Context, emit func(T) error) error {
		v, changed := s.snapshot()
		if err := emit(v); err != nil {
			return err
		}
		last := v
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
			}
			v, changed = s.snapshot()
			if v == last {
				continue
			}
			if err := emit(v); err != nil {
				return err
			}
			last = v
		}
	}
}
