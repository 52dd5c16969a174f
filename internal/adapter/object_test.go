package adapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-sync/internal/logger"
)

// fakeBucket is an in-memory objectClient with S3 listing semantics.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	clock   int64
	times   map[string]time.Time
	failGet error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, times: map[string]time.Time{}, clock: 1_700_000_000_000}
}

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}

func (f *fakeBucket) StatObject(_ context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return minio.ObjectInfo{}, noSuchKey
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: f.times[key]}, nil
}

func (f *fakeBucket) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := map[string]minio.ObjectInfo{}
	for key := range f.objects {
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, opts.Prefix)
		if i := strings.Index(rest, "/"); i >= 0 && !opts.Recursive {
			dir := opts.Prefix + rest[:i+1]
			seen[dir] = minio.ObjectInfo{Key: dir}
			continue
		}
		seen[key] = minio.ObjectInfo{Key: key, LastModified: f.times[key]}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- seen[k]
	}
	close(ch)
	return ch
}

func (f *fakeBucket) GetObject(_ context.Context, _, key string, _ minio.GetObjectOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	data, ok := f.objects[key]
	if !ok {
		// minio reports a missing key on first read.
		return io.NopCloser(&errReader{err: noSuchKey}), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBucket) PutObject(_ context.Context, _, key string, r io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock += 1000
	f.objects[key] = data
	f.times[key] = time.UnixMilli(f.clock)
	return minio.UploadInfo{Key: key}, nil
}

func (f *fakeBucket) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	delete(f.times, key)
	return nil
}

func (f *fakeBucket) CopyObject(_ context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[src.Object]
	if !ok {
		return minio.UploadInfo{}, noSuchKey
	}
	f.clock += 1000
	f.objects[dst.Object] = append([]byte(nil), data...)
	f.times[dst.Object] = time.UnixMilli(f.clock)
	return minio.UploadInfo{Key: dst.Object}, nil
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

// ── driver behaviour ────────────────────────────────────────────────────────

func TestObjectDriver_PutGetStatWithPrefix(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket()
	d := newObjectDriver(bucket, "notes", "/sync/", logger.Nop())

	require.NoError(t, d.Put(ctx, noteID+".md", []byte("body"), PutOptions{}))
	assert.Contains(t, bucket.objects, "sync/"+noteID+".md")

	got, err := d.Get(ctx, noteID+".md", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "body", string(got))

	stat, err := d.Stat(ctx, noteID+".md")
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.Equal(t, int64(1_700_000_001_000), stat.UpdatedTime)
}

func TestObjectDriver_MissingKey(t *testing.T) {
	ctx := context.Background()
	d := newObjectDriver(newFakeBucket(), "notes", "", logger.Nop())

	stat, err := d.Stat(ctx, "a.md")
	require.NoError(t, err)
	assert.Nil(t, stat)

	got, err := d.Get(ctx, "a.md", GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, d.Delete(ctx, "a.md"))
}

func TestObjectDriver_ListGroupsDirectories(t *testing.T) {
	ctx := context.Background()
	d := newObjectDriver(newFakeBucket(), "notes", "", logger.Nop())

	require.NoError(t, d.Mkdir(ctx, "locks"))
	require.NoError(t, d.Put(ctx, "a.md", []byte("a"), PutOptions{}))
	require.NoError(t, d.Put(ctx, "locks/sync_c1_1.json", []byte("{}"), PutOptions{}))

	root, err := d.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, root.Items, 2)
	assert.Equal(t, "a.md", root.Items[0].Path)
	assert.Equal(t, "locks", root.Items[1].Path)
	assert.True(t, root.Items[1].IsDir)

	locks, err := d.List(ctx, "locks")
	require.NoError(t, err)
	require.Len(t, locks.Items, 1)
	assert.Equal(t, "locks/sync_c1_1.json", locks.Items[0].Path)
}

func TestObjectDriver_DeleteRemovesChildren(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket()
	d := newObjectDriver(bucket, "notes", "", logger.Nop())

	require.NoError(t, d.Put(ctx, ".sync/version.txt", []byte("1"), PutOptions{}))
	require.NoError(t, d.Put(ctx, ".sync/x", []byte("1"), PutOptions{}))
	require.NoError(t, d.Put(ctx, ".syncing.md", []byte("1"), PutOptions{}))
	require.NoError(t, d.Delete(ctx, ".sync"))

	assert.Len(t, bucket.objects, 1)
	assert.Contains(t, bucket.objects, ".syncing.md")
}

func TestObjectDriver_MoveAndClearRoot(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket()
	d := newObjectDriver(bucket, "notes", "root", logger.Nop())
	bucket.objects["elsewhere"] = []byte("keep")

	require.NoError(t, d.Put(ctx, "temp/a", []byte("a"), PutOptions{}))
	require.NoError(t, d.Move(ctx, "temp/a", "a.md"))
	assert.NotContains(t, bucket.objects, "root/temp/a")
	assert.Contains(t, bucket.objects, "root/a.md")

	assert.ErrorIs(t, d.Move(ctx, "missing", "b.md"), ErrNotFound)

	require.NoError(t, d.ClearRoot(ctx, ""))
	assert.Equal(t, map[string][]byte{"elsewhere": []byte("keep")}, bucket.objects)
}

// ── translateError ──────────────────────────────────────────────────────────

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no such key", err: noSuchKey, want: ErrNotFound},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, want: ErrUnauthorized},
		{name: "bad signature", err: minio.ErrorResponse{Code: "SignatureDoesNotMatch", StatusCode: 403}, want: ErrUnauthorized},
		{name: "slow down", err: minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}, want: ErrTransient},
		{name: "internal", err: minio.ErrorResponse{Code: "InternalError", StatusCode: 500}, want: ErrTransient},
		{name: "network", err: errors.New("dial tcp: connection refused"), want: ErrTransient},
		{name: "cancelled", err: context.Canceled, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tt.err), tt.want)
		})
	}

	assert.NoError(t, translateError(nil))

	structural := minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}
	got := translateError(structural)
	assert.False(t, errors.Is(got, ErrNotFound))
	assert.False(t, errors.Is(got, ErrTransient))
}
