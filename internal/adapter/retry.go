package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

// retryingDriver retries calls that fail with [ErrTransient] using capped
// exponential backoff. Every other error is returned on the first attempt.
type retryingDriver struct {
	next       Driver
	maxRetries uint64
	base       time.Duration

	logger *logger.Logger
}

// NewRetryingDriver decorates next with transient-failure retries. A
// maxRetries of 0 disables retrying.
func NewRetryingDriver(next Driver, maxRetries int, base time.Duration, logger *logger.Logger) Driver {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return &retryingDriver{next: next, maxRetries: uint64(maxRetries), base: base, logger: logger}
}

func (r *retryingDriver) backoff() retry.Backoff {
	b := retry.NewExponential(r.base)
	b = retry.WithCappedDuration(30*time.Second, b)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(r.maxRetries, b)
}

func (r *retryingDriver) do(ctx context.Context, op, p string, f func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		err := f(ctx)
		if err != nil && errors.Is(err, ErrTransient) {
			r.logger.Warn().Err(err).
				Str("func", "retryingDriver."+op).
				Str("path", p).
				Int("attempt", attempt).
				Msg("transient backend failure")
			return retry.RetryableError(err)
		}
		return err
	})
}

func (r *retryingDriver) Stat(ctx context.Context, p string) (stat *models.ItemStat, err error) {
	err = r.do(ctx, "Stat", p, func(ctx context.Context) error {
		stat, err = r.next.Stat(ctx, p)
		return err
	})
	return stat, err
}

func (r *retryingDriver) List(ctx context.Context, p string) (result models.ListResult, err error) {
	err = r.do(ctx, "List", p, func(ctx context.Context) error {
		result, err = r.next.List(ctx, p)
		return err
	})
	return result, err
}

func (r *retryingDriver) Get(ctx context.Context, p string, opts GetOptions) (content []byte, err error) {
	err = r.do(ctx, "Get", p, func(ctx context.Context) error {
		content, err = r.next.Get(ctx, p, opts)
		return err
	})
	return content, err
}

func (r *retryingDriver) Put(ctx context.Context, p string, content []byte, opts PutOptions) error {
	return r.do(ctx, "Put", p, func(ctx context.Context) error {
		return r.next.Put(ctx, p, content, opts)
	})
}

func (r *retryingDriver) Delete(ctx context.Context, p string) error {
	return r.do(ctx, "Delete", p, func(ctx context.Context) error {
		return r.next.Delete(ctx, p)
	})
}

func (r *retryingDriver) Mkdir(ctx context.Context, p string) error {
	return r.do(ctx, "Mkdir", p, func(ctx context.Context) error {
		return r.next.Mkdir(ctx, p)
	})
}

func (r *retryingDriver) Move(ctx context.Context, oldPath, newPath string) error {
	return r.do(ctx, "Move", oldPath, func(ctx context.Context) error {
		return r.next.Move(ctx, oldPath, newPath)
	})
}

func (r *retryingDriver) ClearRoot(ctx context.Context, p string) error {
	return r.do(ctx, "ClearRoot", p, func(ctx context.Context) error {
		return r.next.ClearRoot(ctx, p)
	})
}

// Changes forwards to the wrapped driver when it implements [ChangeFeed].
func (r *retryingDriver) Changes(ctx context.Context, cursor string) (page ChangePage, err error) {
	feed, ok := r.next.(ChangeFeed)
	if !ok {
		return ChangePage{}, errors.New("driver has no change feed")
	}

	err = r.do(ctx, "Changes", cursor, func(ctx context.Context) error {
		page, err = feed.Changes(ctx, cursor)
		return err
	})
	return page, err
}
