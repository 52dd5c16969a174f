package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

// flakyDriver fails the first `failures` Put calls with err.
type flakyDriver struct {
	Driver
	failures int
	err      error
	calls    int
}

func (f *flakyDriver) Put(ctx context.Context, p string, content []byte, opts PutOptions) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return f.Driver.Put(ctx, p, content, opts)
}

func (f *flakyDriver) Stat(ctx context.Context, p string) (*models.ItemStat, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.Driver.Stat(ctx, p)
}

func TestRetryingDriver_RetriesTransient(t *testing.T) {
	inner := &flakyDriver{Driver: NewMemoryDriver(logger.Nop()), failures: 2, err: fmt.Errorf("put: %w", ErrTransient)}
	d := NewRetryingDriver(inner, 3, time.Millisecond, logger.Nop())

	require.NoError(t, d.Put(context.Background(), "a.md", []byte("a"), PutOptions{}))
	assert.Equal(t, 3, inner.calls)

	stat, err := inner.Driver.Stat(context.Background(), "a.md")
	require.NoError(t, err)
	assert.NotNil(t, stat)
}

func TestRetryingDriver_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyDriver{Driver: NewMemoryDriver(logger.Nop()), failures: 10, err: ErrTransient}
	d := NewRetryingDriver(inner, 2, time.Millisecond, logger.Nop())

	_, err := d.Stat(context.Background(), "a.md")
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingDriver_NeverRetriesAuth(t *testing.T) {
	inner := &flakyDriver{Driver: NewMemoryDriver(logger.Nop()), failures: 10, err: ErrUnauthorized}
	d := NewRetryingDriver(inner, 5, time.Millisecond, logger.Nop())

	err := d.Put(context.Background(), "a.md", []byte("a"), PutOptions{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingDriver_StopsOnCancel(t *testing.T) {
	inner := &flakyDriver{Driver: NewMemoryDriver(logger.Nop()), failures: 100, err: ErrTransient}
	d := NewRetryingDriver(inner, 100, time.Hour, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Put(ctx, "a.md", []byte("a"), PutOptions{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingDriver_ChangesWithoutFeed(t *testing.T) {
	d := NewRetryingDriver(NewMemoryDriver(logger.Nop()), 1, time.Millisecond, logger.Nop())

	feed, ok := d.(ChangeFeed)
	require.True(t, ok)
	_, err := feed.Changes(context.Background(), "")
	assert.Error(t, err)
}
