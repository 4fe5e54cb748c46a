package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

type JobFunc func(ctx context.Context) error
type jobInfo struct {
	name string
	job  JobFunc
}
type JobManager struct {
	scheduler *gocron.Scheduler
	mu        sync.RWMutex
	jobs      map[string]jobInfo
}

var ErrUnknownJob = errors.New("unknown job")

func NewJobManager() *JobManager {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	return &JobManager{
		scheduler: scheduler,
		jobs:      make(map[string]jobInfo),
	}
}

func (j *JobManager) Start() {
	j.scheduler.StartAsync()
}

func (j *JobManager) Stop() {
	j.scheduler.Stop()
}

// Cron registers job under name. Disabled jobs can still be run with RunJob.
func (j *JobManager) Cron(cronStr string, name string, job JobFunc, enabled bool) error {
	j.mu.Lock()
	j.jobs[name] = jobInfo{
		name: name,
		job:  job,
	}
	j.mu.Unlock()
	if enabled {
		_, err := j.scheduler.Cron(cronStr).Do(func() {
			j.RunJob(context.Background(), name)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %q with cron %q: %w", name, cronStr, err)
		}
	}
	return nil
}

func (j *JobManager) RunJob(ctx context.Context, name string) (err error) {
	j.mu.RLock()
	job, ok := j.jobs[name]
	j.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	start := time.Now()
	log.Printf("Starting job %q", job.name)
	defer func(job jobInfo) {
		if r := recover(); r != nil {
			log.Printf("Job %q panicked: %v \n stacktrace: %v", job.name, r, string(debug.Stack()))
			err = fmt.Errorf("job %q panicked: %v", job.name, r)
		}
	}(job)
	err = job.job(ctx)
	duration := time.Since(start)
	if err != nil {
		log.Printf("Job %q failed after %v ms: %v", job.name, duration.Milliseconds(), err)
	} else {
		log.Printf("Job %q completed successfully after %v ms", job.name, duration.Milliseconds())
	}
	return err
}
