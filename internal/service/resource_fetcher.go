package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

const (
	defaultFetchConcurrency = 4
	defaultFetchRetryDelay  = 5 * time.Second
	maxFetchRetryDelay      = 5 * time.Minute
)

// ResourceRequest asks for the blob of one resource item. KeyID is the key
// the resource item was encrypted with, or empty for plaintext blobs.
type ResourceRequest struct {
	ID    string
	KeyID string
}

// ResourceFetcher downloads resource blobs into the host's blob store with
// bounded concurrency. It only ever reads from the target.
type ResourceFetcher struct {
	driver adapter.Driver
	blobs  BlobStore
	enc    *EncryptionService
	limit  int

	// retryDelay is the first wait before requeued downloads are retried.
	retryDelay time.Duration

	mu     sync.Mutex
	queue  []ResourceRequest
	queued map[string]struct{}
	wake   chan struct{}
	bg     background

	logger *logger.Logger
}

// NewResourceFetcher creates an idle fetcher. concurrency bounds parallel
// downloads.
func NewResourceFetcher(driver adapter.Driver, blobs BlobStore, enc *EncryptionService, concurrency int, logger *logger.Logger) *ResourceFetcher {
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &ResourceFetcher{
		driver: driver,
		blobs:  blobs,
		enc:    enc,
		limit:  concurrency,

		retryDelay: defaultFetchRetryDelay,

		queued: make(map[string]struct{}),
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Enqueue schedules downloads. Requests for an id already queued are dropped.
func (f *ResourceFetcher) Enqueue(reqs ...ResourceRequest) {
	f.add(reqs...)

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// add queues reqs without waking Run.
func (f *ResourceFetcher) add(reqs ...ResourceRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, req := range reqs {
		if _, ok := f.queued[req.ID]; ok {
			continue
		}
		f.queued[req.ID] = struct{}{}
		f.queue = append(f.queue, req)
	}
}

func (f *ResourceFetcher) backoff() retry.Backoff {
	return retry.WithCappedDuration(maxFetchRetryDelay, retry.NewExponential(f.retryDelay))
}

// Pending returns the number of queued requests.
func (f *ResourceFetcher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Run drains the queue every time new requests arrive, until ctx is done.
// Downloads queued again after a transient failure wait for a growing delay
// unless new requests arrive first.
func (f *ResourceFetcher) Run(ctx context.Context) {
	backoff := f.backoff()
	var retryC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		case <-retryC:
		}
		retryC = nil

		if err := f.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
			f.logger.Err(err).Str("func", "ResourceFetcher.Run").Msg("resource download round failed")
		}

		if f.Pending() == 0 {
			backoff = f.backoff()
			continue
		}
		delay, _ := backoff.Next()
		retryC = time.After(delay)
		f.logger.Debug().
			Str("func", "ResourceFetcher.Run").
			Int("pending", f.Pending()).
			Dur("delay", delay).
			Msg("retrying resource downloads later")
	}
}

// Drain downloads everything queued so far. Downloads failing with a
// transient error are queued again; other failures are logged and dropped.
// The first failure is returned.
func (f *ResourceFetcher) Drain(ctx context.Context) error {
	f.mu.Lock()
	batch := f.queue
	f.queue = nil
	f.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	g := new(errgroup.Group)
	g.SetLimit(f.limit)

	for _, req := range batch {
		g.Go(func() error {
			err := f.fetch(ctx, req)

			f.mu.Lock()
			delete(f.queued, req.ID)
			f.mu.Unlock()

			if err == nil {
				return nil
			}
			if errors.Is(err, adapter.ErrTransient) {
				f.add(req)
			}
			f.logger.Warn().Err(err).
				Str("func", "ResourceFetcher.Drain").
				Str("resource_id", req.ID).
				Msg("resource download failed")
			return err
		})
	}

	return g.Wait()
}

func (f *ResourceFetcher) fetch(ctx context.Context, req ResourceRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	remote := models.ResourceBlobPath(req.ID)
	local := f.blobs.BlobPath(req.ID)

	if req.KeyID == "" {
		data, err := f.driver.Get(ctx, remote, adapter.GetOptions{
			Target:    adapter.TargetFile,
			LocalFS:   f.blobs.FS(),
			LocalPath: local,
		})
		if err != nil {
			return fmt.Errorf("download %s: %w", remote, err)
		}
		if data == nil {
			f.logger.Debug().Str("func", "ResourceFetcher.fetch").Str("path", remote).Msg("resource blob not on target yet")
		}
		return nil
	}

	data, err := f.driver.Get(ctx, remote, adapter.GetOptions{})
	if err != nil {
		return fmt.Errorf("download %s: %w", remote, err)
	}
	if data == nil {
		f.logger.Debug().Str("func", "ResourceFetcher.fetch").Str("path", remote).Msg("resource blob not on target yet")
		return nil
	}

	plain, err := f.enc.DecryptBlob(req.KeyID, data)
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", remote, err)
	}
	if err = util.WriteFile(f.blobs.FS(), local, plain, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", local, err)
	}
	return nil
}

// Start runs [ResourceFetcher.Run] in the background.
func (f *ResourceFetcher) Start(ctx context.Context) {
	f.bg.start(ctx, f.Run)
}

// Stop halts the background loop started by Start and waits for it.
func (f *ResourceFetcher) Stop() {
	f.bg.stop()
}
