package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

const defaultDeltaPageSize = 100

// unreadTime marks a snapshot entry whose content was not applied. No
// backend reports it, so the path is listed as changed every time while its
// deletion is still detected.
const unreadTime int64 = -1

// DeltaContext is the decoded form of a target's sync context.
//
// In basic mode Snapshot maps every item path seen by the delta to its
// backend updated_time. In native mode Cursor is the backend's own change
// cursor and Unread holds feed entries that must be handed out again. Between
// pages of one delta the context is incomplete and Pending holds the changes
// not handed out yet.
type DeltaContext struct {
	Native     bool               `json:"native,omitempty"`
	Cursor     string             `json:"cursor,omitempty"`
	Snapshot   map[string]int64   `json:"snapshot,omitempty"`
	Unread     []models.DeltaItem `json:"unread,omitempty"`
	Pending    []models.DeltaItem `json:"pending,omitempty"`
	Incomplete bool               `json:"incomplete,omitempty"`
}

// ParseDeltaContext decodes a persisted context. The empty string is a valid
// context meaning "full resync".
func ParseDeltaContext(value string) (DeltaContext, error) {
	if value == "" {
		return DeltaContext{}, nil
	}

	var dc DeltaContext
	if err := json.Unmarshal([]byte(value), &dc); err != nil {
		return DeltaContext{}, fmt.Errorf("%w: %v", ErrInvalidSyncContext, err)
	}
	return dc, nil
}

// Encode returns the persisted form of the context.
func (c DeltaContext) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Complete reports whether every page of the delta was consumed. Only
// complete contexts may be persisted.
func (c DeltaContext) Complete() bool {
	return !c.Incomplete
}

// Record stores the stat time of an item written during the session so the
// next delta does not report it back.
func (c *DeltaContext) Record(path string, updatedTime int64) {
	if c.Native {
		return
	}
	if c.Snapshot == nil {
		c.Snapshot = make(map[string]int64)
	}
	c.Snapshot[path] = updatedTime
}

// MarkUnread keeps a change whose content could not be applied. The next
// delta reports it again, as a change while it exists and as a deletion
// once it is gone.
func (c *DeltaContext) MarkUnread(change models.DeltaItem) {
	if c.Native {
		for _, u := range c.Unread {
			if u.Path == change.Path {
				return
			}
		}
		c.Unread = append(c.Unread, change)
		return
	}
	if c.Snapshot == nil {
		c.Snapshot = make(map[string]int64)
	}
	c.Snapshot[change.Path] = unreadTime
}

// Forget drops path from the context. It is used for items deleted from the
// target by this client.
func (c *DeltaContext) Forget(path string) {
	delete(c.Snapshot, path)
}

// DeltaPage is one page of changes.
type DeltaPage struct {
	Items   []models.DeltaItem
	HasMore bool
	Context DeltaContext
}

// DeltaEngine turns driver listings into "changed since context" pages.
type DeltaEngine struct {
	driver   adapter.Driver
	feed     adapter.ChangeFeed
	pageSize int

	logger *logger.Logger
}

// NewDeltaEngine builds an engine for driver. When caps advertise NativeDelta
// and driver implements [adapter.ChangeFeed], the backend's feed is used.
func NewDeltaEngine(driver adapter.Driver, caps adapter.Capabilities, pageSize int, logger *logger.Logger) *DeltaEngine {
	if pageSize <= 0 {
		pageSize = defaultDeltaPageSize
	}

	e := &DeltaEngine{driver: driver, pageSize: pageSize, logger: logger}
	if feed, ok := driver.(adapter.ChangeFeed); ok && caps.NativeDelta {
		e.feed = feed
	}
	return e
}

// Native reports whether the engine uses the backend change feed.
func (e *DeltaEngine) Native() bool {
	return e.feed != nil
}

// Delta returns the next page of changes after dc. Callers pass the Context
// of the previous page back in until HasMore is false.
func (e *DeltaEngine) Delta(ctx context.Context, dc DeltaContext) (DeltaPage, error) {
	if e.feed != nil {
		return e.nativeDelta(ctx, dc)
	}
	if dc.Incomplete {
		return e.nextPage(dc.Pending, dc.Snapshot), nil
	}
	return e.basicDelta(ctx, dc)
}

func (e *DeltaEngine) nativeDelta(ctx context.Context, dc DeltaContext) (DeltaPage, error) {
	cursor := ""
	if dc.Native {
		cursor = dc.Cursor
	}

	page, err := e.feed.Changes(ctx, cursor)
	if err != nil {
		return DeltaPage{}, fmt.Errorf("read change feed: %w", err)
	}

	items := page.Items
	if !dc.Incomplete && len(dc.Unread) > 0 {
		items = append(append([]models.DeltaItem(nil), dc.Unread...), page.Items...)
	}

	return DeltaPage{
		Items:   items,
		HasMore: page.HasMore,
		Context: DeltaContext{Native: true, Cursor: page.Cursor, Incomplete: page.HasMore},
	}, nil
}

func (e *DeltaEngine) basicDelta(ctx context.Context, dc DeltaContext) (DeltaPage, error) {
	listing, err := e.driver.List(ctx, "")
	if err != nil {
		return DeltaPage{}, fmt.Errorf("list target root: %w", err)
	}
	if listing.HasMore {
		e.logger.Warn().
			Str("func", "DeltaEngine.basicDelta").
			Int("items", len(listing.Items)).
			Msg("driver truncated the root listing")
	}

	current := make(map[string]int64, len(listing.Items))
	for _, stat := range listing.Items {
		if stat.IsDir {
			continue
		}
		if _, ok := models.ItemIDFromPath(stat.Path); !ok {
			continue
		}
		current[stat.Path] = stat.UpdatedTime
	}

	var changes []models.DeltaItem
	for p, updated := range current {
		// != rather than > so that clock rollbacks are still seen.
		if prev, ok := dc.Snapshot[p]; ok && prev == updated {
			continue
		}
		id, _ := models.ItemIDFromPath(p)
		changes = append(changes, models.DeltaItem{Path: p, ID: id, UpdatedTime: updated})
	}
	for p := range dc.Snapshot {
		if _, ok := current[p]; ok {
			continue
		}
		id, _ := models.ItemIDFromPath(p)
		changes = append(changes, models.DeltaItem{Path: p, ID: id, Deleted: true})
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].UpdatedTime != changes[j].UpdatedTime {
			return changes[i].UpdatedTime < changes[j].UpdatedTime
		}
		return changes[i].Path < changes[j].Path
	})

	e.logger.Debug().
		Str("func", "DeltaEngine.basicDelta").
		Int("listed", len(current)).
		Int("changes", len(changes)).
		Msg("computed basic delta")

	return e.nextPage(changes, current), nil
}

func (e *DeltaEngine) nextPage(pending []models.DeltaItem, snapshot map[string]int64) DeltaPage {
	n := min(len(pending), e.pageSize)
	items, rest := pending[:n], pending[n:]

	if len(rest) == 0 {
		return DeltaPage{Items: items, Context: DeltaContext{Snapshot: snapshot}}
	}

	return DeltaPage{
		Items:   items,
		HasMore: true,
		Context: DeltaContext{
			Snapshot:   snapshot,
			Pending:    rest,
			Incomplete: true,
		},
	}
}
