package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/internal/mock"
	"github.com/MKhiriev/go-note-sync/models"
)

func putNote(t *testing.T, driver adapter.Driver, n int, title string) {
	t.Helper()
	content, err := models.MarshalItem(testNote(n, int64(n), title))
	require.NoError(t, err)
	require.NoError(t, driver.Put(context.Background(), models.ItemPath(testID(n)), content, adapter.PutOptions{}))
}

func deltaIDs(items []models.DeltaItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

// drain walks every page of one delta.
func drain(t *testing.T, e *DeltaEngine, dc DeltaContext) ([]models.DeltaItem, DeltaContext) {
	t.Helper()
	var all []models.DeltaItem
	for {
		page, err := e.Delta(context.Background(), dc)
		require.NoError(t, err)
		all = append(all, page.Items...)
		dc = page.Context
		if !page.HasMore {
			return all, dc
		}
		assert.False(t, dc.Complete())
	}
}

func TestDeltaEngine_BasicPaging(t *testing.T) {
	ctx := context.Background()
	driver := newMemoryTarget()
	for n := 1; n <= 3; n++ {
		putNote(t, driver, n, "note")
	}

	e := NewDeltaEngine(driver, adapter.Capabilities{}, 2, logger.Nop())
	assert.False(t, e.Native())

	first, err := e.Delta(ctx, DeltaContext{})
	require.NoError(t, err)
	assert.True(t, first.HasMore)
	assert.Equal(t, []string{testID(1), testID(2)}, deltaIDs(first.Items))
	assert.False(t, first.Context.Complete())

	second, err := e.Delta(ctx, first.Context)
	require.NoError(t, err)
	assert.False(t, second.HasMore)
	assert.Equal(t, []string{testID(3)}, deltaIDs(second.Items))
	assert.True(t, second.Context.Complete())
	assert.Len(t, second.Context.Snapshot, 3)

	again, err := e.Delta(ctx, second.Context)
	require.NoError(t, err)
	assert.Empty(t, again.Items, "nothing changed since the snapshot")
	assert.False(t, again.HasMore)
}

func TestDeltaEngine_UpdatesAndDeletions(t *testing.T) {
	ctx := context.Background()
	driver := newMemoryTarget()
	putNote(t, driver, 1, "one")
	putNote(t, driver, 2, "two")

	e := NewDeltaEngine(driver, adapter.Capabilities{}, 10, logger.Nop())
	_, dc := drain(t, e, DeltaContext{})

	putNote(t, driver, 2, "two, edited")
	require.NoError(t, driver.Delete(ctx, models.ItemPath(testID(1))))

	items, _ := drain(t, e, dc)
	require.Len(t, items, 2)

	assert.Equal(t, testID(1), items[0].ID)
	assert.True(t, items[0].Deleted)

	assert.Equal(t, testID(2), items[1].ID)
	assert.False(t, items[1].Deleted)
	stat, err := driver.Stat(ctx, models.ItemPath(testID(2)))
	require.NoError(t, err)
	assert.Equal(t, stat.UpdatedTime, items[1].UpdatedTime)
}

func TestDeltaEngine_IgnoresNonItemPaths(t *testing.T) {
	ctx := context.Background()
	driver := newMemoryTarget()
	putNote(t, driver, 1, "one")
	require.NoError(t, driver.Put(ctx, models.InfoFile, []byte(`{"version":3}`), adapter.PutOptions{}))
	require.NoError(t, driver.Put(ctx, "locks/sync_client.json", []byte(`{}`), adapter.PutOptions{}))
	require.NoError(t, driver.Put(ctx, models.ResourceBlobPath(testID(9)), []byte("blob"), adapter.PutOptions{}))
	require.NoError(t, driver.Put(ctx, "readme.txt", []byte("hello"), adapter.PutOptions{}))

	e := NewDeltaEngine(driver, adapter.Capabilities{}, 10, logger.Nop())
	items, dc := drain(t, e, DeltaContext{})
	assert.Equal(t, []string{testID(1)}, deltaIDs(items))
	assert.Len(t, dc.Snapshot, 1)
}

func TestDeltaEngine_RecordAndForget(t *testing.T) {
	driver := newMemoryTarget()
	putNote(t, driver, 1, "one")

	e := NewDeltaEngine(driver, adapter.Capabilities{}, 10, logger.Nop())
	_, dc := drain(t, e, DeltaContext{})

	putNote(t, driver, 2, "written by this client")
	stat, err := driver.Stat(context.Background(), models.ItemPath(testID(2)))
	require.NoError(t, err)
	dc.Record(stat.Path, stat.UpdatedTime)

	items, dc := drain(t, e, dc)
	assert.Empty(t, items, "own writes are not reported back")

	dc.Forget(models.ItemPath(testID(1)))
	items, _ = drain(t, e, dc)
	assert.Equal(t, []string{testID(1)}, deltaIDs(items))
}

func TestDeltaEngine_MarkUnread(t *testing.T) {
	ctx := context.Background()
	driver := newMemoryTarget()
	putNote(t, driver, 1, "one")
	putNote(t, driver, 2, "two")

	e := NewDeltaEngine(driver, adapter.Capabilities{}, 10, logger.Nop())
	items, dc := drain(t, e, DeltaContext{})
	require.Len(t, items, 2)

	unread := items[0]
	dc.MarkUnread(unread)

	for range 2 {
		items, dc = drain(t, e, dc)
		assert.Equal(t, []string{unread.ID}, deltaIDs(items), "reported until applied")
		assert.False(t, items[0].Deleted)
		dc.MarkUnread(items[0])
	}

	require.NoError(t, driver.Delete(ctx, unread.Path))
	items, dc = drain(t, e, dc)
	require.Len(t, items, 1)
	assert.Equal(t, unread.ID, items[0].ID)
	assert.True(t, items[0].Deleted, "deletion of an unread item is still seen")
	assert.NotContains(t, dc.Snapshot, unread.Path)
}

type feedDriver struct {
	adapter.Driver
	adapter.ChangeFeed
}

func TestDeltaEngine_NativeFeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mock.NewMockChangeFeed(ctrl)
	driver := feedDriver{Driver: newMemoryTarget(), ChangeFeed: feed}

	gomock.InOrder(
		feed.EXPECT().Changes(gomock.Any(), "").Return(adapter.ChangePage{
			Items:   []models.DeltaItem{{ID: testID(1), Path: models.ItemPath(testID(1)), UpdatedTime: 10}},
			Cursor:  "c1",
			HasMore: true,
		}, nil),
		feed.EXPECT().Changes(gomock.Any(), "c1").Return(adapter.ChangePage{
			Items:  []models.DeltaItem{{ID: testID(2), Path: models.ItemPath(testID(2)), Deleted: true}},
			Cursor: "c2",
		}, nil),
	)

	e := NewDeltaEngine(driver, adapter.Capabilities{NativeDelta: true}, 10, logger.Nop())
	require.True(t, e.Native())

	// A basic-mode context is not a valid cursor and restarts the feed.
	items, dc := drain(t, e, DeltaContext{Snapshot: map[string]int64{"x.md": 1}})
	assert.Equal(t, []string{testID(1), testID(2)}, deltaIDs(items))
	assert.True(t, items[1].Deleted)
	assert.Equal(t, DeltaContext{Native: true, Cursor: "c2"}, dc)

	dc.Record("ignored.md", 5)
	assert.Nil(t, dc.Snapshot)
}

func TestDeltaEngine_NativeFeedRepeatsUnread(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mock.NewMockChangeFeed(ctrl)
	driver := feedDriver{Driver: newMemoryTarget(), ChangeFeed: feed}

	unread := models.DeltaItem{ID: testID(1), Path: models.ItemPath(testID(1)), UpdatedTime: 10}
	fresh := models.DeltaItem{ID: testID(2), Path: models.ItemPath(testID(2)), UpdatedTime: 11}
	feed.EXPECT().Changes(gomock.Any(), "c1").Return(adapter.ChangePage{
		Items:  []models.DeltaItem{fresh},
		Cursor: "c2",
	}, nil)

	e := NewDeltaEngine(driver, adapter.Capabilities{NativeDelta: true}, 10, logger.Nop())

	dc := DeltaContext{Native: true, Cursor: "c1"}
	dc.MarkUnread(unread)
	dc.MarkUnread(unread)
	require.Len(t, dc.Unread, 1)

	items, next := drain(t, e, dc)
	assert.Equal(t, []string{testID(1), testID(2)}, deltaIDs(items))
	assert.Equal(t, DeltaContext{Native: true, Cursor: "c2"}, next)
}

func TestDeltaEngine_FeedWithoutCapabilityIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := feedDriver{Driver: newMemoryTarget(), ChangeFeed: mock.NewMockChangeFeed(ctrl)}

	e := NewDeltaEngine(driver, adapter.Capabilities{}, 0, logger.Nop())
	assert.False(t, e.Native())
	assert.Equal(t, defaultDeltaPageSize, e.pageSize)

	page, err := e.Delta(context.Background(), DeltaContext{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestParseDeltaContext(t *testing.T) {
	dc, err := ParseDeltaContext("")
	require.NoError(t, err)
	assert.Equal(t, DeltaContext{}, dc)
	assert.True(t, dc.Complete())

	want := DeltaContext{Snapshot: map[string]int64{models.ItemPath(testID(1)): 42}}
	encoded, err := want.Encode()
	require.NoError(t, err)
	dc, err = ParseDeltaContext(encoded)
	require.NoError(t, err)
	assert.Equal(t, want, dc)

	_, err = ParseDeltaContext("{broken")
	assert.ErrorIs(t, err, ErrInvalidSyncContext)
}
