package pkg

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPromise(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	promise := NewPromise(func() (int, error) {
		<-release
		return 42, nil
	})
	if _, _, done := promise.Poll(); done {
		t.Fatalf("promise done before f returned")
	}
	close(release)
	v, err := promise.Get()
	if err != nil || v != 42 {
		t.Errorf("got %v %v", v, err)
	}
	if v, _, done := promise.Poll(); !done || v != 42 {
		t.Errorf("Poll after Get: got %v %v", v, done)
	}
}

func TestPromiseError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	promise := NewPromise(func() (string, error) { return "", boom })
	if _, err := promise.Get(); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}

func TestPromiseGetContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	promise := NewPromise(func() (int, error) {
		<-release
		return 1, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := promise.GetContext(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

func TestIds(t *testing.T) {
	t.Parallel()

	requestId := NewRequestId()
	if len(requestId) != 12 || strings.Trim(requestId, nanoidAlphabet) != "" {
		t.Errorf("got %q", requestId)
	}
}
