package service

import (
	"context"
	"sync"
	"time"
)

// DefaultSyncInterval is the period of the background scheduler.
const DefaultSyncInterval = 5 * time.Minute

type clientSyncJob struct {
	run func(ctx context.Context)

	trigger chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	next   time.Time
	wg     sync.WaitGroup
}

// NewClientSyncJob creates a clientSyncJob that calls run on every tick and
// on every Trigger. run decides itself whether a cycle is due. The job is
// idle until Start is called.
func NewClientSyncJob(run func(ctx context.Context)) ClientSyncJob {
	return &clientSyncJob{
		run:     run,
		trigger: make(chan struct{}, 1),
	}
}

// Start implements ClientSyncJob. The goroutine exits when ctx is cancelled
// or Stop is called.
func (j *clientSyncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.next = time.Now().Add(interval)
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.setNext(time.Now().Add(interval))
				j.run(jobCtx)
			case <-j.trigger:
				j.run(jobCtx)
			}
		}
	}()
}

func (j *clientSyncJob) setNext(at time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.next = at
}

// Trigger implements ClientSyncJob.
func (j *clientSyncJob) Trigger() {
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// NextRun implements ClientSyncJob.
func (j *clientSyncJob) NextRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel == nil {
		return time.Time{}
	}
	return j.next
}

// Stop implements ClientSyncJob. It cancels the background goroutine's context and
// blocks until the goroutine has fully exited. Safe to call when the job is not
// running (no-op in that case).
func (j *clientSyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()

	// a trigger left over from the previous run must not fire the next one
	select {
	case <-j.trigger:
	default:
	}
}
