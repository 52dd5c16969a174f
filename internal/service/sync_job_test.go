package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

type countingSyncer struct {
	calls atomic.Int32
	err   error
}

func (s *countingSyncer) Start(context.Context, SessionOptions) (models.SyncReport, error) {
	s.calls.Add(1)
	return models.NewSyncReport(testTarget), s.err
}

func TestSyncJob_RunsOnInterval(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("target unreachable")}
	job := NewSyncJob(syncer, 5*time.Millisecond, logger.Nop())

	job.Start(context.Background())
	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 2 }, time.Second, time.Millisecond,
		"failed sessions do not stop the job")

	job.Stop()
	stopped := syncer.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, syncer.calls.Load())
}

func TestSyncJob_StartTwiceRestarts(t *testing.T) {
	syncer := &countingSyncer{}
	job := NewSyncJob(syncer, 5*time.Millisecond, logger.Nop())

	job.Start(context.Background())
	job.Start(context.Background())
	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 1 }, time.Second, time.Millisecond)

	job.Stop()
	job.Stop()
}

func TestSyncJob_StopsWithContext(t *testing.T) {
	syncer := &countingSyncer{}
	job := NewSyncJob(syncer, time.Hour, logger.Nop())
	assert.Equal(t, time.Hour, job.interval)

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx)
	cancel()
	job.Stop()
	assert.Zero(t, syncer.calls.Load())

	assert.Equal(t, defaultSyncInterval, NewSyncJob(syncer, 0, logger.Nop()).interval)
}
