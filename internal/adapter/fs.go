// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

const tempFilePrefix = "put-"

// fsDriver implements [Driver] over a billy filesystem rooted at the target
// directory.
type fsDriver struct {
	fs billy.Filesystem

	// times replaces file modification times for filesystems that do not
	// keep them (memfs reports the current time on every Stat).
	times *mtimeIndex

	logger *logger.Logger
}

// NewFilesystemDriver returns a driver for a plain directory tree on the
// local OS filesystem. Paths cannot escape root.
func NewFilesystemDriver(root string, logger *logger.Logger) Driver {
	return &fsDriver{
		fs:     osfs.New(root, osfs.WithBoundOS()),
		logger: logger,
	}
}

// NewMemoryDriver returns a driver backed by an in-memory filesystem. Every
// caller sharing the returned value sees the same target.
func NewMemoryDriver(logger *logger.Logger) Driver {
	return newBillyDriver(memfs.New(), newMtimeIndex(time.Now), logger)
}

func newBillyDriver(fs billy.Filesystem, times *mtimeIndex, logger *logger.Logger) *fsDriver {
	return &fsDriver{fs: fs, times: times, logger: logger}
}

func (d *fsDriver) Stat(ctx context.Context, p string) (*models.ItemStat, error) {
	p = cleanPath(p)

	fi, err := d.fs.Stat(fsPath(p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}

	stat := d.toStat(p, fi)
	return &stat, nil
}

func (d *fsDriver) List(ctx context.Context, p string) (models.ListResult, error) {
	p = cleanPath(p)

	entries, err := d.fs.ReadDir(fsPath(p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.ListResult{}, nil
		}
		return models.ListResult{}, fmt.Errorf("list %s: %w", p, err)
	}

	result := models.ListResult{Items: make([]models.ItemStat, 0, len(entries))}
	for _, fi := range entries {
		if err := ctx.Err(); err != nil {
			return models.ListResult{}, err
		}
		result.Items = append(result.Items, d.toStat(path.Join(p, fi.Name()), fi))
	}

	sort.Slice(result.Items, func(i, j int) bool { return result.Items[i].Path < result.Items[j].Path })
	return result, nil
}

func (d *fsDriver) Get(ctx context.Context, p string, opts GetOptions) ([]byte, error) {
	p = cleanPath(p)

	src, err := d.fs.Open(fsPath(p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer src.Close()

	if opts.Target == TargetFile {
		if err := writeLocal(localFS(opts.LocalFS), opts.LocalPath, src); err != nil {
			return nil, fmt.Errorf("get %s to %s: %w", p, opts.LocalPath, err)
		}
		return []byte{}, nil
	}

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return content, nil
}

func (d *fsDriver) Put(ctx context.Context, p string, content []byte, opts PutOptions) error {
	p = cleanPath(p)
	if p == "" {
		return fmt.Errorf("put: %w", ErrInvalidPath)
	}

	if opts.Source == SourceFile {
		data, err := util.ReadFile(localFS(opts.LocalFS), opts.LocalPath)
		if err != nil {
			return fmt.Errorf("put %s from %s: %w", p, opts.LocalPath, err)
		}
		content = data
	}

	if err := d.writeAtomic(p, content); err != nil {
		return fmt.Errorf("put %s: %w", p, err)
	}

	d.times.touch(p)
	return nil
}

// writeAtomic writes content to a temp file and renames it over p, so
// readers see either the old or the new content.
func (d *fsDriver) writeAtomic(p string, content []byte) error {
	if err := d.fs.MkdirAll(models.TempDir, 0o755); err != nil {
		return err
	}
	if dir := path.Dir(p); dir != "." {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := util.TempFile(d.fs, models.TempDir, tempFilePrefix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	// osfs reports an absolute name; memfs a relative one.
	name := path.Join(models.TempDir, filepath.Base(tmp.Name()))
	renamed := false
	defer func() {
		if !renamed {
			_ = d.fs.Remove(name)
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = d.fs.Rename(name, fsPath(p)); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	renamed = true
	return nil
}

func (d *fsDriver) Delete(ctx context.Context, p string) error {
	p = cleanPath(p)
	if p == "" {
		return fmt.Errorf("delete: %w", ErrInvalidPath)
	}

	if err := util.RemoveAll(d.fs, fsPath(p)); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}

	d.times.forget(p)
	return nil
}

func (d *fsDriver) Mkdir(ctx context.Context, p string) error {
	p = cleanPath(p)
	if err := d.fs.MkdirAll(fsPath(p), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	return nil
}

func (d *fsDriver) Move(ctx context.Context, oldPath, newPath string) error {
	oldPath, newPath = cleanPath(oldPath), cleanPath(newPath)

	if err := d.fs.Rename(fsPath(oldPath), fsPath(newPath)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("move %s: %w", oldPath, ErrNotFound)
		}
		return fmt.Errorf("move %s to %s: %w", oldPath, newPath, err)
	}

	d.times.forget(oldPath)
	d.times.touch(newPath)
	return nil
}

func (d *fsDriver) ClearRoot(ctx context.Context, p string) error {
	p = cleanPath(p)

	entries, err := d.fs.ReadDir(fsPath(p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("clear %s: %w", p, err)
	}

	for _, fi := range entries {
		child := path.Join(p, fi.Name())
		if err := util.RemoveAll(d.fs, fsPath(child)); err != nil {
			return fmt.Errorf("clear %s: %w", child, err)
		}
	}

	d.times.forgetUnder(p)
	return nil
}

func (d *fsDriver) toStat(p string, fi os.FileInfo) models.ItemStat {
	stat := models.ItemStat{Path: p, IsDir: fi.IsDir(), UpdatedTime: fi.ModTime().UnixMilli()}
	if ms, ok := d.times.get(p); ok {
		stat.UpdatedTime = ms
	}
	return stat
}

// cleanPath normalises a target-relative path: no leading slash, no "..",
// "" for the root.
func cleanPath(p string) string {
	p = path.Clean("/" + p)
	if p == "/" {
		return ""
	}
	return p[1:]
}

func fsPath(p string) string {
	if p == "" {
		return "."
	}
	return p
}

func localFS(fs billy.Filesystem) billy.Filesystem {
	if fs == nil {
		return osfs.Default
	}
	return fs
}

func writeLocal(fs billy.Filesystem, p string, src io.Reader) error {
	dst, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// mtimeIndex hands out strictly increasing millisecond timestamps per
// write, so two writes inside one clock tick still look different.
type mtimeIndex struct {
	mu    sync.Mutex
	now   func() time.Time
	last  int64
	times map[string]int64
}

func newMtimeIndex(now func() time.Time) *mtimeIndex {
	return &mtimeIndex{now: now, times: make(map[string]int64)}
}

func (m *mtimeIndex) touch(p string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := m.now().UnixMilli()
	if ms <= m.last {
		ms = m.last + 1
	}
	m.last = ms
	m.times[p] = ms
}

func (m *mtimeIndex) get(p string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.times[p]
	return ms, ok
}

func (m *mtimeIndex) forget(p string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.times, p)
	prefix := p + "/"
	for k := range m.times {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.times, k)
		}
	}
}

func (m *mtimeIndex) forgetUnder(p string) {
	if m == nil {
		return
	}
	if p == "" {
		m.mu.Lock()
		m.times = make(map[string]int64)
		m.mu.Unlock()
		return
	}
	m.forget(p)
}
