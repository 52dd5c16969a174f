package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

const testTarget = "target"

func testID(n int) string {
	return fmt.Sprintf("%032x", n)
}

func testNote(n int, updated int64, title string) models.Item {
	return models.Item{
		ID:          testID(n),
		Type:        models.TypeNote,
		UpdatedTime: updated,
		Body:        json.RawMessage(fmt.Sprintf(`{"title":%q}`, title)),
	}
}

// fakeStore is an in-memory LocalStore and ContextStore with the same
// bookkeeping rules as the SQLite store.
type fakeStore struct {
	mu        sync.Mutex
	items     map[string]models.Item
	conflicts []models.Conflict
	synced    map[string]map[string]models.SyncInfo
	deleted   map[string]map[string]models.DeletedItem
	queue     map[string]string
	failures  map[string]map[string]int
	disabled  map[string]map[string]bool
	contexts  map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:    make(map[string]models.Item),
		synced:   make(map[string]map[string]models.SyncInfo),
		deleted:  make(map[string]map[string]models.DeletedItem),
		queue:    make(map[string]string),
		failures: make(map[string]map[string]int),
		disabled: make(map[string]map[string]bool),
		contexts: make(map[string]string),
	}
}

func nested[V any](m map[string]map[string]V, key string) map[string]V {
	inner, ok := m[key]
	if !ok {
		inner = make(map[string]V)
		m[key] = inner
	}
	return inner
}

// save records a local edit.
func (f *fakeStore) save(item models.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
	for _, byID := range f.deleted {
		delete(byID, item.ID)
	}
}

// remove records a local deletion.
func (f *fakeStore) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return
	}
	delete(f.items, id)
	for target, byID := range f.synced {
		if _, ok := byID[id]; ok {
			nested(f.deleted, target)[id] = models.DeletedItem{ID: id, Type: item.Type}
		}
	}
}

func (f *fakeStore) item(id string) (models.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	return item, ok
}

func (f *fakeStore) conflictList() []models.Conflict {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Conflict(nil), f.conflicts...)
}

func (f *fakeStore) queued() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.queue))
	for k, v := range f.queue {
		out[k] = v
	}
	return out
}

func (f *fakeStore) ChangedItems(_ context.Context, targetID string) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Item
	for id, item := range f.items {
		info, ok := f.synced[targetID][id]
		if !ok || info.SyncTime != item.UpdatedTime {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedTime != out[j].UpdatedTime {
			return out[i].UpdatedTime < out[j].UpdatedTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) DeletedItems(_ context.Context, targetID string) ([]models.DeletedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.DeletedItem
	for _, d := range f.deleted[targetID] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) LoadItem(_ context.Context, id string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeStore) UpsertRemote(_ context.Context, item models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[item.ID] = item
	delete(f.queue, item.ID)
	for _, byID := range f.failures {
		delete(byID, item.ID)
	}
	return nil
}

func (f *fakeStore) DeleteLocal(_ context.Context, targetID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if item, ok := f.items[id]; ok {
		for target, byID := range f.synced {
			if _, ok := byID[id]; ok && target != targetID {
				nested(f.deleted, target)[id] = models.DeletedItem{ID: id, Type: item.Type}
			}
		}
	}
	delete(f.items, id)
	delete(f.synced[targetID], id)
	delete(f.queue, id)
	delete(f.failures[targetID], id)
	delete(f.disabled[targetID], id)
	return nil
}

func (f *fakeStore) SaveConflict(_ context.Context, conflict models.Conflict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflicts = append(f.conflicts, conflict)
	delete(f.queue, conflict.OriginalID)
	return nil
}

func (f *fakeStore) SyncInfo(_ context.Context, targetID, id string) (*models.SyncInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, ok := f.synced[targetID][id]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (f *fakeStore) MarkSynced(_ context.Context, targetID, id string, info models.SyncInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	nested(f.synced, targetID)[id] = info
	return nil
}

func (f *fakeStore) ClearDeleted(_ context.Context, targetID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.deleted[targetID], id)
	delete(f.synced[targetID], id)
	return nil
}

func (f *fakeStore) QueueDecryption(_ context.Context, id, keyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[id] = keyID
	return nil
}

func (f *fakeStore) RecordDecryptionFailure(_ context.Context, targetID, id string, maxAttempts int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	failures := nested(f.failures, targetID)
	failures[id]++
	if failures[id] >= maxAttempts {
		nested(f.disabled, targetID)[id] = true
	}
	return f.disabled[targetID][id], nil
}

func (f *fakeStore) IsSyncDisabled(_ context.Context, targetID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disabled[targetID][id], nil
}

func (f *fakeStore) ClearDisabled(_ context.Context, targetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.disabled[targetID] {
		delete(f.failures[targetID], id)
	}
	delete(f.disabled, targetID)
	return nil
}

func (f *fakeStore) LoadContext(_ context.Context, targetID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contexts[targetID], nil
}

func (f *fakeStore) SaveContext(_ context.Context, targetID, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts[targetID] = value
	return nil
}

// memBlobs keeps resource blobs in memory.
type memBlobs struct {
	fs billy.Filesystem
}

func newMemBlobs() *memBlobs {
	return &memBlobs{fs: memfs.New()}
}

func (b *memBlobs) FS() billy.Filesystem      { return b.fs }
func (b *memBlobs) BlobPath(id string) string { return "blobs/" + id }

// countingDriver counts writes per path.
type countingDriver struct {
	adapter.Driver

	mu   sync.Mutex
	puts map[string]int
}

func newCountingDriver(next adapter.Driver) *countingDriver {
	return &countingDriver{Driver: next, puts: make(map[string]int)}
}

func (d *countingDriver) Put(ctx context.Context, p string, content []byte, opts adapter.PutOptions) error {
	d.mu.Lock()
	d.puts[p]++
	d.mu.Unlock()
	return d.Driver.Put(ctx, p, content, opts)
}

// itemPuts returns the number of writes to item files.
func (d *countingDriver) itemPuts() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := 0
	for p, n := range d.puts {
		if _, ok := models.ItemIDFromPath(p); ok {
			total += n
		}
	}
	return total
}

// hookDriver calls onGet before every read.
type hookDriver struct {
	adapter.Driver
	onGet func(p string)
}

func (d *hookDriver) Get(ctx context.Context, p string, opts adapter.GetOptions) ([]byte, error) {
	if d.onGet != nil {
		d.onGet(p)
	}
	return d.Driver.Get(ctx, p, opts)
}

type clientOptions struct {
	keys     KeyService
	encrypt  bool
	blobs    BlobStore
	fetcher  *ResourceFetcher
	observer Observer
}

func newTestClient(t *testing.T, driver adapter.Driver, clientID string, store *fakeStore, opts clientOptions) *Synchronizer {
	t.Helper()
	return NewSynchronizer(SessionDeps{
		TargetID: testTarget,
		ClientID: clientID,
		Driver:   driver,
		Store:    store,
		Contexts: store,
		Keys:     opts.keys,
		Blobs:    opts.blobs,
		Fetcher:  opts.fetcher,
		Observer: opts.observer,
		Sync: config.ClientSync{
			MaxDecryptionAttempts: 2,
			DeltaPageSize:         2,
			EncryptionEnabled:     opts.encrypt,
		},
		Logger: logger.Nop(),
	})
}

func newMemoryTarget() adapter.Driver {
	return adapter.NewMemoryDriver(logger.Nop())
}
