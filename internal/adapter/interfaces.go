// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the storage driver abstraction used by the sync
// engine to talk to one remote target.
//
// The primary abstraction is [Driver], a uniform file-like contract
// (stat/list/get/put/delete/mkdir/move) that decouples the service layer from
// the backend. The package ships a billy-backed filesystem driver (also used
// for the in-memory target), a WebDAV driver over resty and an S3-compatible
// object driver over minio-go. [NewDriver] resolves a configured backend kind
// to a driver and its [Capabilities].
//
// Error values defined in errors.go are mapped from backend-specific failures
// so that callers can use [errors.Is] for transport-agnostic handling
// (e.g. [ErrNotFound], [ErrUnauthorized], [ErrTransient]).
package adapter

import (
	"context"

	"github.com/go-git/go-billy/v5"

	"github.com/MKhiriev/go-note-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/driver_mock.go -package=mock

// Driver is the contract every remote backend satisfies. Paths are slash
// separated and relative to the target root.
//
// Put and Mkdir may be retried after a partial failure, so both must be safe
// to repeat: Put overwrites and Mkdir of an existing directory succeeds.
type Driver interface {
	// Stat returns the metadata of path, or nil and no error when the path
	// does not exist.
	Stat(ctx context.Context, path string) (*models.ItemStat, error)

	// List returns the direct children of path. Entry paths are relative to
	// the target root.
	List(ctx context.Context, path string) (models.ListResult, error)

	// Get reads path. It returns nil and no error when the path does not
	// exist. With TargetFile the content is written to opts.LocalPath and
	// the returned slice is empty.
	Get(ctx context.Context, path string, opts GetOptions) ([]byte, error)

	// Put writes content to path, creating or overwriting it. With SourceFile
	// the content is read from opts.LocalPath and the content argument is
	// ignored.
	Put(ctx context.Context, path string, content []byte, opts PutOptions) error

	// Delete removes path. A missing path is not an error.
	Delete(ctx context.Context, path string) error

	// Mkdir creates the directory path. An existing directory is not an
	// error.
	Mkdir(ctx context.Context, path string) error

	// Move renames oldPath to newPath, replacing newPath if present.
	Move(ctx context.Context, oldPath, newPath string) error

	// ClearRoot removes everything below path.
	ClearRoot(ctx context.Context, path string) error
}

// ChangeFeed is implemented by backends that can report changes since an
// opaque cursor on their own. The delta engine uses it instead of listing
// when the driver's [Capabilities] advertise NativeDelta.
type ChangeFeed interface {
	// Changes returns one page of changes after cursor. An empty cursor
	// means "from the beginning".
	Changes(ctx context.Context, cursor string) (ChangePage, error)
}

// ChangePage is one page returned by [ChangeFeed.Changes].
type ChangePage struct {
	Items   []models.DeltaItem
	Cursor  string
	HasMore bool
}

// Target selects where [Driver.Get] places the content.
type Target int

const (
	// TargetBuffer returns the content in memory.
	TargetBuffer Target = iota
	// TargetFile writes the content to a local file.
	TargetFile
)

// Source selects where [Driver.Put] reads the content from.
type Source int

const (
	// SourceBuffer uses the content argument.
	SourceBuffer Source = iota
	// SourceFile reads a local file.
	SourceFile
)

// GetOptions controls [Driver.Get].
type GetOptions struct {
	Target Target
	// LocalFS is the host filesystem LocalPath lives on. Defaults to the
	// OS filesystem.
	LocalFS   billy.Filesystem
	LocalPath string
}

// PutOptions controls [Driver.Put].
type PutOptions struct {
	Source    Source
	LocalFS   billy.Filesystem
	LocalPath string
}
