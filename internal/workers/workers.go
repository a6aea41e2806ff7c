package workers

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

type Workers struct {
	workers []Worker
}

func NewWorkers(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Add registers more workers before Run.
func (w *Workers) Add(workers ...Worker) {
	w.workers = append(w.workers, workers...)
}

// Run starts every worker in its own goroutine and waits for all of them.
// Cancellation of ctx is a clean stop and is not reported as an error.
func (w *Workers) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, worker := range w.workers {
		worker := worker
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Lifecycle wraps a component with Start and Stop into a Worker: Start is
// called at once, Stop when ctx is done.
func Lifecycle(start func(ctx context.Context) error, stop func()) Worker {
	return WorkerFunc(func(ctx context.Context) error {
		if err := start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		stop()
		return nil
	})
}

// Periodic calls fn every interval until ctx is done. Failures are logged
// and do not stop the loop.
func Periodic(name string, interval time.Duration, fn func(ctx context.Context) error, log *logger.Logger) Worker {
	log = log.WithComponent(name)
	return WorkerFunc(func(ctx context.Context) error {
		if interval <= 0 {
			<-ctx.Done()
			return nil
		}
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if err := fn(ctx); err != nil {
					log.Err(err).Str("func", "workers.Periodic").Msg("periodic run failed")
				}
			}
		}
	})
}
