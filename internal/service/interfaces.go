// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

//go:generate mockgen -source=interfaces.go -destination=../mock/local_store_mock.go -package=mock

import (
	"context"

	"github.com/MKhiriev/go-note-sync/models"
	"github.com/go-git/go-billy/v5"
)

// LocalStore is the host's item source and sink. The synchronizer only moves
// serialized items through it and never interprets item bodies.
//
// Every method taking a targetID keeps its bookkeeping per target, so one
// local database can be synced with several targets.
type LocalStore interface {
	// ChangedItems returns the items whose updated_time differs from the time
	// recorded by the last successful sync with targetID, including items
	// that were never synced. Conflict records are never returned.
	ChangedItems(ctx context.Context, targetID string) ([]models.Item, error)

	// DeletedItems returns local deletions not yet pushed to targetID.
	DeletedItems(ctx context.Context, targetID string) ([]models.DeletedItem, error)

	// LoadItem returns the local copy of an item, or nil when it does not exist.
	LoadItem(ctx context.Context, id string) (*models.Item, error)

	// UpsertRemote writes a decrypted remote item into the local store
	// without recording a local change.
	UpsertRemote(ctx context.Context, item models.Item) error

	// DeleteLocal removes an item that was deleted remotely. No deletion
	// marker is recorded for targetID and the item's sync info there is
	// dropped. Other targets the item was synced with get a marker.
	DeleteLocal(ctx context.Context, targetID, id string) error

	// SaveConflict stores the losing remote copy of an item in the local
	// conflicts container.
	SaveConflict(ctx context.Context, conflict models.Conflict) error

	// SyncInfo returns what was recorded at the last sync of the item with
	// targetID, or nil when the item was never synced there.
	SyncInfo(ctx context.Context, targetID, id string) (*models.SyncInfo, error)

	// MarkSynced records info as the last sync point of the item.
	MarkSynced(ctx context.Context, targetID, id string, info models.SyncInfo) error

	// ClearDeleted drops the deletion marker and the sync info of an item
	// whose deletion reached targetID.
	ClearDeleted(ctx context.Context, targetID, id string) error

	// QueueDecryption remembers that an item could not be decrypted because
	// keyID was not loaded.
	QueueDecryption(ctx context.Context, id, keyID string) error

	// RecordDecryptionFailure counts a failed decryption with a loaded key
	// and disables the item once maxAttempts is reached.
	RecordDecryptionFailure(ctx context.Context, targetID, id string, maxAttempts int) (disabled bool, err error)

	// IsSyncDisabled reports whether the item was disabled for targetID.
	IsSyncDisabled(ctx context.Context, targetID, id string) (bool, error)

	// ClearDisabled re-enables every disabled item of targetID.
	ClearDisabled(ctx context.Context, targetID string) error
}

// ContextStore persists the opaque sync context of each target. Values are
// handed back verbatim.
type ContextStore interface {
	LoadContext(ctx context.Context, targetID string) (string, error)
	SaveContext(ctx context.Context, targetID, value string) error
}

// KeyService is the key-management capability the encryption layer relies on.
// It is implemented by crypto.KeyChain.
type KeyService interface {
	IsLoaded(keyID string) bool
	ActiveKeyID() (string, bool)
	Encrypt(keyID string, plaintext []byte) (string, error)
	Decrypt(keyID string, cipherText string) ([]byte, error)
}

// BlobStore locates resource blobs on the host.
type BlobStore interface {
	FS() billy.Filesystem
	BlobPath(id string) string
}

// Observer receives progress reports of a running session. Reports are
// delivered from a separate goroutine and intermediate ones may be dropped.
type Observer interface {
	OnProgress(report models.SyncReport)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(report models.SyncReport)

func (f ObserverFunc) OnProgress(report models.SyncReport) {
	f(report)
}
