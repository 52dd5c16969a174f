// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/internal/validators"
	"github.com/MKhiriev/go-note-sync/models"
)

var itemColumns = []string{"i.id", "i.type", "i.updated_time", "i.body"}

// ItemStore is the SQLite-backed host database of items. Besides the items
// themselves it keeps per-target sync bookkeeping: sync points, deletion
// markers, the decryption queue and decryption failure counters.
type ItemStore struct {
	db        *DB
	validator validators.Validator
	now       func() time.Time
	logger    *logger.Logger
}

func NewItemStore(db *DB, logger *logger.Logger) *ItemStore {
	return &ItemStore{db: db, validator: validators.NewItemValidator(), now: time.Now, logger: logger}
}

// SaveItem records a local edit. Re-creating a deleted item drops its
// pending deletion markers.
func (s *ItemStore) SaveItem(ctx context.Context, item models.Item) error {
	if err := s.validator.Validate(ctx, item); err != nil {
		return fmt.Errorf("%w: id=%q: %w", ErrInvalidItem, item.ID, err)
	}

	err := s.db.withTx(ctx, "ItemStore.SaveItem", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := exec(ctx, tx, upsertItem(item)); err != nil {
			return err
		}
		_, err := exec(ctx, tx, builder.Delete("deleted_items").Where(sq.Eq{"item_id": item.ID}))
		return err
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.SaveItem").
			Str("id", item.ID).
			Msg("failed to save item")
		return fmt.Errorf("failed to save item (id=%s): %w", item.ID, err)
	}
	return nil
}

// DeleteItem removes an item locally and leaves a deletion marker for every
// target the item was synced with.
func (s *ItemStore) DeleteItem(ctx context.Context, id string) error {
	err := s.db.withTx(ctx, "ItemStore.DeleteItem", func(ctx context.Context, tx *sql.Tx) error {
		var itemType models.ItemType
		row, err := queryRow(ctx, tx, builder.Select("type").From("items").Where(sq.Eq{"id": id, "is_conflict": 0}))
		if err != nil {
			return err
		}
		if err = row.Scan(&itemType); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrItemNotFound
			}
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		if _, err = exec(ctx, tx, insertDeletionMarkers(id, itemType, s.now().UnixMilli(), sq.Eq{"item_id": id})); err != nil {
			return err
		}
		_, err = exec(ctx, tx, builder.Delete("items").Where(sq.Eq{"id": id}))
		return err
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.DeleteItem").
			Str("id", id).
			Msg("failed to delete item")
		return fmt.Errorf("failed to delete item (id=%s): %w", id, err)
	}
	return nil
}

// ItemsByType returns every non-conflict item of the given type.
func (s *ItemStore) ItemsByType(ctx context.Context, itemType models.ItemType) ([]models.Item, error) {
	stmt := builder.Select(itemColumns...).
		From("items i").
		Where(sq.Eq{"i.type": int(itemType), "i.is_conflict": 0}).
		OrderBy("i.updated_time", "i.id")

	items, err := s.selectItems(ctx, stmt)
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.ItemsByType").
			Int("type", int(itemType)).
			Msg("failed to query items")
		return nil, fmt.Errorf("failed to query items of type %s: %w", itemType, err)
	}
	return items, nil
}

// Conflicts returns the stored conflict copies, oldest first.
func (s *ItemStore) Conflicts(ctx context.Context) ([]models.Conflict, error) {
	stmt := builder.Select(append(itemColumns, "i.conflict_original_id")...).
		From("items i").
		Where(sq.Eq{"i.is_conflict": 1}).
		OrderBy("i.updated_time", "i.id")

	var conflicts []models.Conflict
	err := s.db.retry(ctx, "ItemStore.Conflicts", func(ctx context.Context) error {
		conflicts = nil
		rows, err := query(ctx, s.db, stmt)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c models.Conflict
			var body []byte
			if err = rows.Scan(&c.Item.ID, &c.Item.Type, &c.Item.UpdatedTime, &body, &c.OriginalID); err != nil {
				return fmt.Errorf("%w: %w", ErrScanningRows, err)
			}
			c.Item.Body = rawBody(body)
			conflicts = append(conflicts, c)
		}
		return rows.Err()
	})
	if err != nil {
		s.logger.Err(err).Str("func", "ItemStore.Conflicts").Msg("failed to query conflicts")
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	return conflicts, nil
}

// PendingDecryption returns the queued items waiting for a key, oldest
// first.
func (s *ItemStore) PendingDecryption(ctx context.Context) ([]models.PendingDecryption, error) {
	stmt := builder.Select("item_id", "key_id", "queued_time").
		From("decryption_queue").
		OrderBy("queued_time", "item_id")

	var pending []models.PendingDecryption
	err := s.db.retry(ctx, "ItemStore.PendingDecryption", func(ctx context.Context) error {
		pending = nil
		rows, err := query(ctx, s.db, stmt)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p models.PendingDecryption
			if err = rows.Scan(&p.ItemID, &p.KeyID, &p.QueuedTime); err != nil {
				return fmt.Errorf("%w: %w", ErrScanningRows, err)
			}
			pending = append(pending, p)
		}
		return rows.Err()
	})
	if err != nil {
		s.logger.Err(err).Str("func", "ItemStore.PendingDecryption").Msg("failed to query decryption queue")
		return nil, fmt.Errorf("failed to query decryption queue: %w", err)
	}
	return pending, nil
}

func (s *ItemStore) ChangedItems(ctx context.Context, targetID string) ([]models.Item, error) {
	stmt := builder.Select(itemColumns...).
		From("items i").
		LeftJoin("sync_items s ON s.item_id = i.id AND s.target_id = ?", targetID).
		Where(sq.Eq{"i.is_conflict": 0}).
		Where(sq.Or{
			sq.Eq{"s.item_id": nil},
			sq.Expr("s.sync_time <> i.updated_time"),
		}).
		OrderBy("i.updated_time", "i.id")

	items, err := s.selectItems(ctx, stmt)
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.ChangedItems").
			Str("target_id", targetID).
			Msg("failed to query changed items")
		return nil, fmt.Errorf("failed to query changed items: %w", err)
	}
	return items, nil
}

func (s *ItemStore) DeletedItems(ctx context.Context, targetID string) ([]models.DeletedItem, error) {
	stmt := builder.Select("item_id", "item_type").
		From("deleted_items").
		Where(sq.Eq{"target_id": targetID}).
		OrderBy("deleted_time", "item_id")

	var deleted []models.DeletedItem
	err := s.db.retry(ctx, "ItemStore.DeletedItems", func(ctx context.Context) error {
		deleted = nil
		rows, err := query(ctx, s.db, stmt)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var d models.DeletedItem
			if err = rows.Scan(&d.ID, &d.Type); err != nil {
				return fmt.Errorf("%w: %w", ErrScanningRows, err)
			}
			deleted = append(deleted, d)
		}
		return rows.Err()
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.DeletedItems").
			Str("target_id", targetID).
			Msg("failed to query deleted items")
		return nil, fmt.Errorf("failed to query deleted items: %w", err)
	}
	return deleted, nil
}

func (s *ItemStore) LoadItem(ctx context.Context, id string) (*models.Item, error) {
	stmt := builder.Select(itemColumns...).
		From("items i").
		Where(sq.Eq{"i.id": id, "i.is_conflict": 0})

	items, err := s.selectItems(ctx, stmt)
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.LoadItem").
			Str("id", id).
			Msg("failed to load item")
		return nil, fmt.Errorf("failed to load item (id=%s): %w", id, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// UpsertRemote also takes the item off the decryption queue and resets its
// failure counters: a readable copy has arrived.
func (s *ItemStore) UpsertRemote(ctx context.Context, item models.Item) error {
	if err := s.validator.Validate(ctx, item); err != nil {
		return fmt.Errorf("%w: id=%q: %w", ErrInvalidItem, item.ID, err)
	}

	err := s.db.withTx(ctx, "ItemStore.UpsertRemote", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := exec(ctx, tx, upsertItem(item)); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, builder.Delete("decryption_queue").Where(sq.Eq{"item_id": item.ID})); err != nil {
			return err
		}
		_, err := exec(ctx, tx, builder.Delete("decryption_failures").Where(sq.Eq{"item_id": item.ID}))
		return err
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.UpsertRemote").
			Str("id", item.ID).
			Msg("failed to write remote item")
		return fmt.Errorf("failed to write remote item (id=%s): %w", item.ID, err)
	}
	return nil
}

func (s *ItemStore) DeleteLocal(ctx context.Context, targetID, id string) error {
	err := s.db.withTx(ctx, "ItemStore.DeleteLocal", func(ctx context.Context, tx *sql.Tx) error {
		var itemType models.ItemType
		row, err := queryRow(ctx, tx, builder.Select("type").From("items").Where(sq.Eq{"id": id, "is_conflict": 0}))
		if err != nil {
			return err
		}
		switch err = row.Scan(&itemType); {
		case errors.Is(err, sql.ErrNoRows):
			// already gone locally; only the bookkeeping is left
		case err != nil:
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		default:
			others := sq.And{sq.Eq{"item_id": id}, sq.NotEq{"target_id": targetID}}
			if _, err = exec(ctx, tx, insertDeletionMarkers(id, itemType, s.now().UnixMilli(), others)); err != nil {
				return err
			}
		}

		if _, err = exec(ctx, tx, builder.Delete("items").Where(sq.Eq{"id": id, "is_conflict": 0})); err != nil {
			return err
		}
		if _, err = exec(ctx, tx, builder.Delete("sync_items").Where(sq.Eq{"target_id": targetID, "item_id": id})); err != nil {
			return err
		}
		if _, err = exec(ctx, tx, builder.Delete("decryption_queue").Where(sq.Eq{"item_id": id})); err != nil {
			return err
		}
		_, err = exec(ctx, tx, builder.Delete("decryption_failures").Where(sq.Eq{"target_id": targetID, "item_id": id}))
		return err
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.DeleteLocal").
			Str("target_id", targetID).
			Str("id", id).
			Msg("failed to apply remote deletion")
		return fmt.Errorf("failed to apply remote deletion (id=%s): %w", id, err)
	}
	return nil
}

func (s *ItemStore) SaveConflict(ctx context.Context, conflict models.Conflict) error {
	if err := s.validator.Validate(ctx, conflict); err != nil {
		return fmt.Errorf("%w: conflict of %q: %w", ErrInvalidItem, conflict.OriginalID, err)
	}

	stmt := builder.Insert("items").
		Columns("id", "type", "updated_time", "body", "is_conflict", "conflict_original_id").
		Values(conflict.Item.ID, int(conflict.Item.Type), conflict.Item.UpdatedTime, []byte(conflict.Item.Body), 1, conflict.OriginalID)

	// The remote copy is now held locally, so it no longer waits for a key.
	err := s.db.withTx(ctx, "ItemStore.SaveConflict", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := exec(ctx, tx, stmt); err != nil {
			return err
		}
		_, err := exec(ctx, tx, builder.Delete("decryption_queue").Where(sq.Eq{"item_id": conflict.OriginalID}))
		return err
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.SaveConflict").
			Str("original_id", conflict.OriginalID).
			Msg("failed to save conflict")
		return fmt.Errorf("failed to save conflict of %s: %w", conflict.OriginalID, err)
	}
	return nil
}

func (s *ItemStore) SyncInfo(ctx context.Context, targetID, id string) (*models.SyncInfo, error) {
	stmt := builder.Select("sync_time", "remote_time").
		From("sync_items").
		Where(sq.Eq{"target_id": targetID, "item_id": id})

	var info *models.SyncInfo
	err := s.db.retry(ctx, "ItemStore.SyncInfo", func(ctx context.Context) error {
		row, err := queryRow(ctx, s.db, stmt)
		if err != nil {
			return err
		}
		var si models.SyncInfo
		switch err = row.Scan(&si.SyncTime, &si.RemoteTime); {
		case errors.Is(err, sql.ErrNoRows):
			info = nil
			return nil
		case err != nil:
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		info = &si
		return nil
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.SyncInfo").
			Str("target_id", targetID).
			Str("id", id).
			Msg("failed to read sync info")
		return nil, fmt.Errorf("failed to read sync info (id=%s): %w", id, err)
	}
	return info, nil
}

func (s *ItemStore) MarkSynced(ctx context.Context, targetID, id string, info models.SyncInfo) error {
	stmt := builder.Insert("sync_items").
		Columns("target_id", "item_id", "sync_time", "remote_time").
		Values(targetID, id, info.SyncTime, info.RemoteTime).
		Suffix("ON CONFLICT (target_id, item_id) DO UPDATE SET sync_time = excluded.sync_time, remote_time = excluded.remote_time")

	if err := s.execRetry(ctx, "ItemStore.MarkSynced", stmt); err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.MarkSynced").
			Str("target_id", targetID).
			Str("id", id).
			Msg("failed to record sync point")
		return fmt.Errorf("failed to record sync point (id=%s): %w", id, err)
	}
	return nil
}

func (s *ItemStore) ClearDeleted(ctx context.Context, targetID, id string) error {
	err := s.db.withTx(ctx, "ItemStore.ClearDeleted", func(ctx context.Context, tx *sql.Tx) error {
		where := sq.Eq{"target_id": targetID, "item_id": id}
		if _, err := exec(ctx, tx, builder.Delete("deleted_items").Where(where)); err != nil {
			return err
		}
		_, err := exec(ctx, tx, builder.Delete("sync_items").Where(where))
		return err
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.ClearDeleted").
			Str("target_id", targetID).
			Str("id", id).
			Msg("failed to clear deletion marker")
		return fmt.Errorf("failed to clear deletion marker (id=%s): %w", id, err)
	}
	return nil
}

func (s *ItemStore) QueueDecryption(ctx context.Context, id, keyID string) error {
	stmt := builder.Insert("decryption_queue").
		Columns("item_id", "key_id", "queued_time").
		Values(id, keyID, s.now().UnixMilli()).
		Suffix("ON CONFLICT (item_id) DO UPDATE SET key_id = excluded.key_id")

	if err := s.execRetry(ctx, "ItemStore.QueueDecryption", stmt); err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.QueueDecryption").
			Str("id", id).
			Str("key_id", keyID).
			Msg("failed to queue item for decryption")
		return fmt.Errorf("failed to queue item for decryption (id=%s): %w", id, err)
	}
	return nil
}

func (s *ItemStore) RecordDecryptionFailure(ctx context.Context, targetID, id string, maxAttempts int) (bool, error) {
	var disabled bool
	err := s.db.withTx(ctx, "ItemStore.RecordDecryptionFailure", func(ctx context.Context, tx *sql.Tx) error {
		stmt := builder.Insert("decryption_failures").
			Columns("target_id", "item_id", "attempts", "disabled").
			Values(targetID, id, 1, boolToInt(maxAttempts <= 1)).
			Suffix("ON CONFLICT (target_id, item_id) DO UPDATE SET "+
				"attempts = decryption_failures.attempts + 1, "+
				"disabled = CASE WHEN decryption_failures.attempts + 1 >= ? THEN 1 ELSE 0 END", maxAttempts)
		if _, err := exec(ctx, tx, stmt); err != nil {
			return err
		}

		row, err := queryRow(ctx, tx, builder.Select("disabled").
			From("decryption_failures").
			Where(sq.Eq{"target_id": targetID, "item_id": id}))
		if err != nil {
			return err
		}
		if err = row.Scan(&disabled); err != nil {
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.RecordDecryptionFailure").
			Str("target_id", targetID).
			Str("id", id).
			Msg("failed to record decryption failure")
		return false, fmt.Errorf("failed to record decryption failure (id=%s): %w", id, err)
	}
	return disabled, nil
}

func (s *ItemStore) IsSyncDisabled(ctx context.Context, targetID, id string) (bool, error) {
	stmt := builder.Select("disabled").
		From("decryption_failures").
		Where(sq.Eq{"target_id": targetID, "item_id": id})

	var disabled bool
	err := s.db.retry(ctx, "ItemStore.IsSyncDisabled", func(ctx context.Context) error {
		row, err := queryRow(ctx, s.db, stmt)
		if err != nil {
			return err
		}
		switch err = row.Scan(&disabled); {
		case errors.Is(err, sql.ErrNoRows):
			disabled = false
			return nil
		case err != nil:
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.IsSyncDisabled").
			Str("target_id", targetID).
			Str("id", id).
			Msg("failed to read disabled flag")
		return false, fmt.Errorf("failed to read disabled flag (id=%s): %w", id, err)
	}
	return disabled, nil
}

func (s *ItemStore) ClearDisabled(ctx context.Context, targetID string) error {
	stmt := builder.Delete("decryption_failures").Where(sq.Eq{"target_id": targetID, "disabled": 1})

	if err := s.execRetry(ctx, "ItemStore.ClearDisabled", stmt); err != nil {
		s.logger.Err(err).
			Str("func", "ItemStore.ClearDisabled").
			Str("target_id", targetID).
			Msg("failed to re-enable items")
		return fmt.Errorf("failed to re-enable items: %w", err)
	}
	return nil
}

func (s *ItemStore) execRetry(ctx context.Context, op string, stmt sq.Sqlizer) error {
	return s.db.retry(ctx, op, func(ctx context.Context) error {
		_, err := exec(ctx, s.db, stmt)
		return err
	})
}

func (s *ItemStore) selectItems(ctx context.Context, stmt sq.SelectBuilder) ([]models.Item, error) {
	var items []models.Item
	err := s.db.retry(ctx, "ItemStore.selectItems", func(ctx context.Context) error {
		items = nil
		rows, err := query(ctx, s.db, stmt)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var item models.Item
			var body []byte
			if err = rows.Scan(&item.ID, &item.Type, &item.UpdatedTime, &body); err != nil {
				return fmt.Errorf("%w: %w", ErrScanningRows, err)
			}
			item.Body = rawBody(body)
			items = append(items, item)
		}
		return rows.Err()
	})
	return items, err
}

func upsertItem(item models.Item) sq.InsertBuilder {
	return builder.Insert("items").
		Columns("id", "type", "updated_time", "body").
		Values(item.ID, int(item.Type), item.UpdatedTime, []byte(item.Body)).
		Suffix("ON CONFLICT (id) DO UPDATE SET type = excluded.type, updated_time = excluded.updated_time, body = excluded.body")
}

// insertDeletionMarkers records a deletion of id for every target matched
// by syncedWhere in sync_items.
func insertDeletionMarkers(id string, itemType models.ItemType, deletedTime int64, syncedWhere sq.Sqlizer) sq.InsertBuilder {
	synced := builder.Select("target_id", "item_id").
		Column("? AS item_type", int(itemType)).
		Column("? AS deleted_time", deletedTime).
		From("sync_items").
		Where(syncedWhere)

	return builder.Insert("deleted_items").
		Columns("target_id", "item_id", "item_type", "deleted_time").
		Select(synced).
		Suffix("ON CONFLICT (target_id, item_id) DO UPDATE SET deleted_time = excluded.deleted_time")
}

func rawBody(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	return json.RawMessage(body)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
