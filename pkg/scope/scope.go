package scope

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
)

// Scope owns the asynchronous work of one component. Everything launched on
// it is cancelled when the scope is cancelled.
type Scope struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	mu         sync.Mutex
	cancelled  bool
	wg         sync.WaitGroup
}

type Job struct {
	name string
	done chan struct{}
}

func (j *Job) Name() string {
	return j.name
}

// Done is closed when the job's function has returned.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Wait() {
	<-j.done
}

// CompletedJob returns a job that is already done, for operations that
// decided not to launch anything.
func CompletedJob(name string) *Job {
	job := &Job{name: name, done: make(chan struct{})}
	close(job.done)
	return job
}

func New(parent context.Context) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

func (s *Scope) Context() context.Context {
	return s.ctx
}

// Launch runs fn on its own goroutine. Once the scope is cancelled, fn is
// never started and the returned job is already done.
func (s *Scope) Launch(name string, fn func(ctx context.Context)) *Job {
	job := &Job{name: name, done: make(chan struct{})}
	s.mu.Lock()
	if s.cancelled || s.ctx.Err() != nil {
		s.mu.Unlock()
		close(job.done)
		return job
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(job.done)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("job %q panicked: %v \n stacktrace: %v", name, r, string(debug.Stack()))
			}
		}()
		fn(s.ctx)
	}()
	return job
}

// Cancel cancels the scope. Calling it more than once has no further effect.
func (s *Scope) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.cancelFunc()
}

func (s *Scope) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled || s.ctx.Err() != nil
}

// Wait blocks until every launched job has returned.
func (s *Scope) Wait() {
	s.wg.Wait()
}

// Bind returns a context that is done when either ctx or the scope is done.
func (s *Scope) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	bound, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}
