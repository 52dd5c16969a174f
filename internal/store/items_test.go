package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/internal/validators"
	"github.com/MKhiriev/go-note-sync/models"
)

const (
	targetA = "target-a"
	targetB = "target-b"
)

func testID(n int) string {
	return fmt.Sprintf("%032x", n)
}

func newTestStorages(t *testing.T) *ClientStorages {
	t.Helper()
	s, err := NewClientStorages(context.Background(), config.ClientStorage{
		DB: config.ClientDB{DSN: ":memory:"},
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func note(n int, updated int64, title string) models.Item {
	return models.Item{
		ID:          testID(n),
		Type:        models.TypeNote,
		UpdatedTime: updated,
		Body:        json.RawMessage(fmt.Sprintf(`{"title":%q}`, title)),
	}
}

func ids(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestItemStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.SaveItem(ctx, note(1, 1000, "first")))

	got, err := s.LoadItem(ctx, testID(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.TypeNote, got.Type)
	assert.Equal(t, int64(1000), got.UpdatedTime)
	assert.JSONEq(t, `{"title":"first"}`, string(got.Body))

	require.NoError(t, s.SaveItem(ctx, note(1, 1100, "edited")))
	got, err = s.LoadItem(ctx, testID(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1100), got.UpdatedTime)
	assert.JSONEq(t, `{"title":"edited"}`, string(got.Body))

	missing, err := s.LoadItem(ctx, testID(2))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestItemStore_SaveItem_Invalid(t *testing.T) {
	s := newTestStorages(t).Items

	err := s.SaveItem(context.Background(), models.Item{ID: "nope", Type: models.TypeNote})
	assert.ErrorIs(t, err, ErrInvalidItem)

	err = s.SaveItem(context.Background(), models.Item{ID: testID(1), Type: models.ItemType(99)})
	assert.ErrorIs(t, err, ErrInvalidItem)

	err = s.SaveItem(context.Background(), models.Item{ID: testID(1), Type: models.TypeNote, Body: []byte(`{"title":`)})
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.ErrorIs(t, err, validators.ErrInvalidBody)

	err = s.SaveConflict(context.Background(), models.Conflict{OriginalID: testID(1), Item: note(1, 1, "same id")})
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.ErrorIs(t, err, validators.ErrInvalidOriginalID)
}

func TestItemStore_ChangedItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.SaveItem(ctx, note(1, 1000, "a")))
	require.NoError(t, s.SaveItem(ctx, note(2, 900, "b")))

	changed, err := s.ChangedItems(ctx, targetA)
	require.NoError(t, err)
	assert.Equal(t, []string{testID(2), testID(1)}, ids(changed), "never-synced items, oldest first")

	require.NoError(t, s.MarkSynced(ctx, targetA, testID(1), models.SyncInfo{SyncTime: 1000, RemoteTime: 5}))

	changed, err = s.ChangedItems(ctx, targetA)
	require.NoError(t, err)
	assert.Equal(t, []string{testID(2)}, ids(changed))

	// other targets keep their own bookkeeping
	changed, err = s.ChangedItems(ctx, targetB)
	require.NoError(t, err)
	assert.Len(t, changed, 2)

	require.NoError(t, s.SaveItem(ctx, note(1, 1200, "a2")))
	changed, err = s.ChangedItems(ctx, targetA)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{testID(1), testID(2)}, ids(changed))
}

func TestItemStore_SyncInfo(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	info, err := s.SyncInfo(ctx, targetA, testID(1))
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, s.MarkSynced(ctx, targetA, testID(1), models.SyncInfo{SyncTime: 10, RemoteTime: 20}))
	require.NoError(t, s.MarkSynced(ctx, targetA, testID(1), models.SyncInfo{SyncTime: 11, RemoteTime: 21}))

	info, err = s.SyncInfo(ctx, targetA, testID(1))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, models.SyncInfo{SyncTime: 11, RemoteTime: 21}, *info)
}

func TestItemStore_DeleteItem_MarksSyncedTargets(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.SaveItem(ctx, note(1, 1000, "synced")))
	require.NoError(t, s.SaveItem(ctx, note(2, 1000, "local only")))
	require.NoError(t, s.MarkSynced(ctx, targetA, testID(1), models.SyncInfo{SyncTime: 1000, RemoteTime: 1}))
	require.NoError(t, s.MarkSynced(ctx, targetB, testID(1), models.SyncInfo{SyncTime: 1000, RemoteTime: 1}))

	require.NoError(t, s.DeleteItem(ctx, testID(1)))
	require.NoError(t, s.DeleteItem(ctx, testID(2)))

	for _, target := range []string{targetA, targetB} {
		deleted, err := s.DeletedItems(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, []models.DeletedItem{{ID: testID(1), Type: models.TypeNote}}, deleted, target)
	}

	got, err := s.LoadItem(ctx, testID(1))
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.ClearDeleted(ctx, targetA, testID(1)))

	deleted, err := s.DeletedItems(ctx, targetA)
	require.NoError(t, err)
	assert.Empty(t, deleted)
	info, err := s.SyncInfo(ctx, targetA, testID(1))
	require.NoError(t, err)
	assert.Nil(t, info)

	deleted, err = s.DeletedItems(ctx, targetB)
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
}

func TestItemStore_DeleteItem_NotFound(t *testing.T) {
	s := newTestStorages(t).Items

	err := s.DeleteItem(context.Background(), testID(7))
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestItemStore_SaveItem_DropsDeletionMarker(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.SaveItem(ctx, note(1, 1000, "a")))
	require.NoError(t, s.MarkSynced(ctx, targetA, testID(1), models.SyncInfo{SyncTime: 1000, RemoteTime: 1}))
	require.NoError(t, s.DeleteItem(ctx, testID(1)))
	require.NoError(t, s.SaveItem(ctx, note(1, 2000, "restored")))

	deleted, err := s.DeletedItems(ctx, targetA)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestItemStore_DeleteLocal(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.SaveItem(ctx, note(1, 1000, "a")))
	require.NoError(t, s.MarkSynced(ctx, targetA, testID(1), models.SyncInfo{SyncTime: 1000, RemoteTime: 1}))
	require.NoError(t, s.MarkSynced(ctx, targetB, testID(1), models.SyncInfo{SyncTime: 1000, RemoteTime: 1}))

	require.NoError(t, s.DeleteLocal(ctx, targetA, testID(1)))

	got, err := s.LoadItem(ctx, testID(1))
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err := s.DeletedItems(ctx, targetA)
	require.NoError(t, err)
	assert.Empty(t, deleted, "the deletion came from this target")

	info, err := s.SyncInfo(ctx, targetA, testID(1))
	require.NoError(t, err)
	assert.Nil(t, info)

	deleted, err = s.DeletedItems(ctx, targetB)
	require.NoError(t, err)
	assert.Equal(t, []models.DeletedItem{{ID: testID(1), Type: models.TypeNote}}, deleted)

	// deleting something that is already gone is not an error
	require.NoError(t, s.DeleteLocal(ctx, targetA, testID(9)))
}

func TestItemStore_DeleteLocalClearsDecryptionState(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.QueueDecryption(ctx, testID(1), "key-1"))
	_, err := s.RecordDecryptionFailure(ctx, targetA, testID(2), 1)
	require.NoError(t, err)

	require.NoError(t, s.DeleteLocal(ctx, targetA, testID(1)))
	require.NoError(t, s.DeleteLocal(ctx, targetA, testID(2)))

	pending, err := s.PendingDecryption(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	disabled, err := s.IsSyncDisabled(ctx, targetA, testID(2))
	require.NoError(t, err)
	assert.False(t, disabled)
}

func TestItemStore_Conflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.SaveItem(ctx, note(1, 1100, "local")))
	require.NoError(t, s.QueueDecryption(ctx, testID(1), "key-1"))
	remote := note(2, 1050, "remote")
	require.NoError(t, s.SaveConflict(ctx, models.Conflict{OriginalID: testID(1), Item: remote}))

	pending, err := s.PendingDecryption(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "the remote copy was read")

	conflicts, err := s.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, testID(1), conflicts[0].OriginalID)
	assert.Equal(t, testID(2), conflicts[0].Item.ID)
	assert.JSONEq(t, `{"title":"remote"}`, string(conflicts[0].Item.Body))

	changed, err := s.ChangedItems(ctx, targetA)
	require.NoError(t, err)
	assert.Equal(t, []string{testID(1)}, ids(changed), "conflict copies never sync")

	got, err := s.LoadItem(ctx, testID(2))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestItemStore_DecryptionQueue(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.QueueDecryption(ctx, testID(1), "key-1"))
	require.NoError(t, s.QueueDecryption(ctx, testID(1), "key-2"))
	require.NoError(t, s.QueueDecryption(ctx, testID(2), "key-1"))

	pending, err := s.PendingDecryption(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	byID := map[string]string{}
	for _, p := range pending {
		byID[p.ItemID] = p.KeyID
	}
	assert.Equal(t, "key-2", byID[testID(1)])

	require.NoError(t, s.UpsertRemote(ctx, note(1, 1000, "decrypted")))

	pending, err = s.PendingDecryption(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, testID(2), pending[0].ItemID)
}

func TestItemStore_DecryptionFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	for attempt, want := range []bool{false, false, true} {
		disabled, err := s.RecordDecryptionFailure(ctx, targetA, testID(1), 3)
		require.NoError(t, err)
		assert.Equal(t, want, disabled, "attempt %d", attempt+1)
	}

	disabled, err := s.IsSyncDisabled(ctx, targetA, testID(1))
	require.NoError(t, err)
	assert.True(t, disabled)

	disabled, err = s.IsSyncDisabled(ctx, targetB, testID(1))
	require.NoError(t, err)
	assert.False(t, disabled)

	require.NoError(t, s.ClearDisabled(ctx, targetA))
	disabled, err = s.IsSyncDisabled(ctx, targetA, testID(1))
	require.NoError(t, err)
	assert.False(t, disabled)

	// counting starts over after re-enabling
	disabled, err = s.RecordDecryptionFailure(ctx, targetA, testID(1), 3)
	require.NoError(t, err)
	assert.False(t, disabled)
}

func TestItemStore_DecryptionFailures_SingleAttempt(t *testing.T) {
	s := newTestStorages(t).Items

	disabled, err := s.RecordDecryptionFailure(context.Background(), targetA, testID(1), 1)
	require.NoError(t, err)
	assert.True(t, disabled)
}

func TestItemStore_ItemsByType(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Items

	require.NoError(t, s.SaveItem(ctx, note(1, 1000, "n")))
	require.NoError(t, s.SaveItem(ctx, models.Item{ID: testID(2), Type: models.TypeMasterKey, UpdatedTime: 5, Body: json.RawMessage(`{"id":"k"}`)}))

	keys, err := s.ItemsByType(ctx, models.TypeMasterKey)
	require.NoError(t, err)
	assert.Equal(t, []string{testID(2)}, ids(keys))
}

func TestContextStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Contexts

	value, err := s.LoadContext(ctx, targetA)
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, s.SaveContext(ctx, targetA, `{"cursor":"1"}`))
	require.NoError(t, s.SaveContext(ctx, targetA, `{"cursor":"2"}`))

	value, err = s.LoadContext(ctx, targetA)
	require.NoError(t, err)
	assert.Equal(t, `{"cursor":"2"}`, value)

	value, err = s.LoadContext(ctx, targetB)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSettingsStore_ClientID(t *testing.T) {
	ctx := context.Background()
	s := newTestStorages(t).Settings

	calls := 0
	generate := func() string {
		calls++
		return "client-1"
	}

	id, err := s.ClientID(ctx, generate)
	require.NoError(t, err)
	assert.Equal(t, "client-1", id)

	id, err = s.ClientID(ctx, generate)
	require.NoError(t, err)
	assert.Equal(t, "client-1", id)
	assert.Equal(t, 1, calls)
}

func TestBlobDir(t *testing.T) {
	dir, err := NewBlobDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, testID(3), dir.BlobPath(testID(3)))

	f, err := dir.FS().Create(dir.BlobPath(testID(3)))
	require.NoError(t, err)
	_, err = f.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = dir.FS().Stat(testID(3))
	assert.NoError(t, err)
}
