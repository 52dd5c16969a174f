package service

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

const defaultSyncInterval = 5 * time.Minute

// Syncer is the part of [Synchronizer] the periodic job depends on.
type Syncer interface {
	Start(ctx context.Context, opts SessionOptions) (models.SyncReport, error)
}

// background runs one goroutine that can be stopped and restarted.
type background struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// start stops any previous goroutine, then runs fn until ctx is cancelled or
// stop is called.
func (b *background) start(ctx context.Context, fn func(ctx context.Context)) {
	b.stop()

	b.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		fn(jobCtx)
	}()
}

// stop cancels the goroutine and blocks until it has exited. Safe to call
// when nothing is running.
func (b *background) stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

// SyncJob runs a sync session on a ticker.
type SyncJob struct {
	syncer   Syncer
	interval time.Duration
	bg       background

	logger *logger.Logger
}

// NewSyncJob creates an idle job calling syncer every interval. If interval
// is zero or negative it defaults to 5 minutes.
func NewSyncJob(syncer Syncer, interval time.Duration, logger *logger.Logger) *SyncJob {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &SyncJob{syncer: syncer, interval: interval, logger: logger}
}

// Start stops any previously running loop, then launches a goroutine that
// syncs every interval until ctx is cancelled or Stop is called. Failed
// sessions are logged and do not stop the job.
func (j *SyncJob) Start(ctx context.Context) {
	j.bg.start(ctx, func(ctx context.Context) {
		t := time.NewTicker(j.interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := j.syncer.Start(ctx, SessionOptions{}); err != nil {
					j.logger.Debug().Err(err).Str("func", "SyncJob.Start").Msg("scheduled sync did not complete")
				}
			}
		}
	})
}

// Stop cancels the loop and waits for it to exit.
func (j *SyncJob) Stop() {
	j.bg.stop()
}
