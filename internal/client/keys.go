package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MKhiriev/go-note-sync/internal/crypto"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

// UnlockKeys loads every master key stored locally that password opens and
// activates the newest one. When encrypt is set and nothing could be loaded,
// a new master key is generated and saved as an item so it syncs to other
// clients.
func UnlockKeys(ctx context.Context, items MasterKeyStore, kc *crypto.KeyChain, password string, encrypt bool, log *logger.Logger) error {
	if password == "" {
		log.Info().Str("func", "client.UnlockKeys").Msg("no master password, encrypted items stay locked")
		return nil
	}

	stored, err := items.ItemsByType(ctx, models.TypeMasterKey)
	if err != nil {
		return fmt.Errorf("load master keys: %w", err)
	}

	var newest *crypto.MasterKey
	for _, item := range stored {
		var mk crypto.MasterKey
		if err = json.Unmarshal(item.Body, &mk); err != nil {
			log.Warn().Err(err).Str("func", "client.UnlockKeys").Str("item_id", item.ID).Msg("skipping malformed master key")
			continue
		}
		if err = kc.LoadMasterKey(mk, password); err != nil {
			log.Warn().Err(err).Str("func", "client.UnlockKeys").Str("key_id", mk.ID).Msg("master key not unlocked")
			continue
		}
		if newest == nil || mk.CreatedTime > newest.CreatedTime {
			newest = &mk
		}
	}

	if newest == nil && encrypt {
		mk, err := kc.GenerateMasterKey(password)
		if err != nil {
			return fmt.Errorf("generate master key: %w", err)
		}
		if err = saveMasterKey(ctx, items, mk); err != nil {
			return err
		}
		log.Info().Str("func", "client.UnlockKeys").Str("key_id", mk.ID).Msg("generated new master key")
		newest = &mk
	}

	if newest == nil {
		return nil
	}
	if err = kc.SetActive(newest.ID); err != nil {
		return fmt.Errorf("activate master key: %w", err)
	}

	log.Info().
		Str("func", "client.UnlockKeys").
		Str("active_key_id", newest.ID).
		Int("stored", len(stored)).
		Msg("master keys unlocked")
	return nil
}

func saveMasterKey(ctx context.Context, items MasterKeyStore, mk crypto.MasterKey) error {
	body, err := json.Marshal(mk)
	if err != nil {
		return fmt.Errorf("encode master key: %w", err)
	}

	item := models.Item{
		ID:          mk.ID,
		Type:        models.TypeMasterKey,
		UpdatedTime: time.Now().UnixMilli(),
		Body:        body,
	}
	if err = items.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("save master key: %w", err)
	}
	return nil
}
