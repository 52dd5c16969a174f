// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/webdav"

	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/logger"
)

// newTestWebDAV запускает настоящий WebDAV сервер в памяти и возвращает
// драйвер, направленный на него.
func newTestWebDAV(t *testing.T, root string) (Driver, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(&webdav.Handler{
		FileSystem: webdav.NewMemFS(),
		LockSystem: webdav.NewMemLS(),
	})
	t.Cleanup(srv.Close)

	d, err := NewWebDAVDriver(config.ClientTarget{URL: srv.URL, Path: root, RequestTimeout: 5 * time.Second}, logger.Nop())
	require.NoError(t, err)
	return d, srv
}

// ── Put / Get / Stat ────────────────────────────────────────────────────────

func TestWebDAV_PutGetStat(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestWebDAV(t, "")

	require.NoError(t, d.Put(ctx, noteID+".md", []byte(`{"id":"n1"}`), PutOptions{}))

	got, err := d.Get(ctx, noteID+".md", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"n1"}`, string(got))

	stat, err := d.Stat(ctx, noteID+".md")
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.Equal(t, noteID+".md", stat.Path)
	assert.False(t, stat.IsDir)
	assert.NotZero(t, stat.UpdatedTime)
}

func TestWebDAV_MissingPath(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestWebDAV(t, "")

	stat, err := d.Stat(ctx, "nope.md")
	require.NoError(t, err)
	assert.Nil(t, stat)

	got, err := d.Get(ctx, "nope.md", GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, d.Delete(ctx, "nope.md"))
}

// Put into a missing collection creates the parents.
func TestWebDAV_PutCreatesParents(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestWebDAV(t, "")

	require.NoError(t, d.Put(ctx, ".resource/abc", []byte("blob"), PutOptions{}))

	got, err := d.Get(ctx, ".resource/abc", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "blob", string(got))
}

// ── Mkdir / List ────────────────────────────────────────────────────────────

func TestWebDAV_MkdirAndList(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestWebDAV(t, "")

	require.NoError(t, d.Mkdir(ctx, "locks"))
	require.NoError(t, d.Mkdir(ctx, "locks"), "mkdir must be idempotent")
	require.NoError(t, d.Put(ctx, "locks/sync_c1_1000.json", []byte("{}"), PutOptions{}))
	require.NoError(t, d.Put(ctx, "a.md", []byte("a"), PutOptions{}))

	root, err := d.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, root.Items, 2)
	assert.Equal(t, "a.md", root.Items[0].Path)
	assert.Equal(t, "locks", root.Items[1].Path)
	assert.True(t, root.Items[1].IsDir)

	locks, err := d.List(ctx, "locks")
	require.NoError(t, err)
	require.Len(t, locks.Items, 1)
	assert.Equal(t, "locks/sync_c1_1000.json", locks.Items[0].Path)
}

func TestWebDAV_RootPathPrefix(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(&webdav.Handler{FileSystem: webdav.NewMemFS(), LockSystem: webdav.NewMemLS()})
	defer srv.Close()

	d, err := NewWebDAVDriver(config.ClientTarget{URL: srv.URL, Path: "/notes app"}, logger.Nop())
	require.NoError(t, err)

	// The first put finds no root collection and creates it.
	require.NoError(t, d.Put(ctx, "a.md", []byte("a"), PutOptions{}))
	require.NoError(t, d.Mkdir(ctx, ""))
	require.NoError(t, d.Mkdir(ctx, "../"))

	list, err := d.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "a.md", list.Items[0].Path)
}

// ── Delete / Move / ClearRoot ───────────────────────────────────────────────

func TestWebDAV_MoveAndDelete(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestWebDAV(t, "")

	require.NoError(t, d.Put(ctx, "a.md", []byte("a"), PutOptions{}))
	require.NoError(t, d.Put(ctx, "b.md", []byte("b"), PutOptions{}))
	require.NoError(t, d.Move(ctx, "a.md", "b.md"))

	got, err := d.Get(ctx, "b.md", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	require.NoError(t, d.Delete(ctx, "b.md"))
	stat, err := d.Stat(ctx, "b.md")
	require.NoError(t, err)
	assert.Nil(t, stat)
}

func TestWebDAV_ClearRoot(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestWebDAV(t, "")

	require.NoError(t, d.Put(ctx, "a.md", []byte("a"), PutOptions{}))
	require.NoError(t, d.Put(ctx, ".sync/version.txt", []byte("1"), PutOptions{}))
	require.NoError(t, d.ClearRoot(ctx, ""))

	list, err := d.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

// ── Error mapping ───────────────────────────────────────────────────────────

func TestWebDAV_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: ErrUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, want: ErrTransient},
		{name: "unavailable", status: http.StatusServiceUnavailable, want: ErrTransient},
		{name: "throttled", status: http.StatusTooManyRequests, want: ErrTransient},
		{name: "bad request", status: http.StatusBadRequest, want: ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			d, err := NewWebDAVDriver(config.ClientTarget{URL: srv.URL}, logger.Nop())
			require.NoError(t, err)

			_, err = d.List(context.Background(), "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWebDAV_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d, err := NewWebDAVDriver(config.ClientTarget{URL: url, RequestTimeout: time.Second}, logger.Nop())
	require.NoError(t, err)

	_, err = d.Stat(context.Background(), "a.md")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestWebDAV_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d, err := NewWebDAVDriver(config.ClientTarget{URL: srv.URL, Username: "alice", Password: "secret"}, logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, d.Put(context.Background(), "a.md", []byte("a"), PutOptions{}))

	d, err = NewWebDAVDriver(config.ClientTarget{URL: srv.URL, Username: "alice", Password: "wrong"}, logger.Nop())
	require.NoError(t, err)
	assert.ErrorIs(t, d.Put(context.Background(), "a.md", []byte("a"), PutOptions{}), ErrUnauthorized)
}

func TestNormalizeBaseURL(t *testing.T) {
	got, err := normalizeBaseURL("dav.example.com/remote.php/")
	require.NoError(t, err)
	assert.Equal(t, "http://dav.example.com/remote.php", got)

	_, err = normalizeBaseURL("  ")
	assert.Error(t, err)
}
