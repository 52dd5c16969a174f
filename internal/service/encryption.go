package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-note-sync/models"
)

// EncryptionService wraps item serialization with end-to-end encryption.
//
// When enabled, every encryptable item is sealed with the key service's
// active key before it leaves the host. Decryption is driven by the
// envelope alone, so encrypted items are read even when encryption is
// disabled locally, as long as their key is loaded.
type EncryptionService struct {
	keys    KeyService
	enabled bool
}

// NewEncryptionService builds the encryption layer. keys may be nil when the
// host has no key service, in which case enabled must be false.
func NewEncryptionService(keys KeyService, enabled bool) *EncryptionService {
	return &EncryptionService{keys: keys, enabled: enabled}
}

// Enabled reports whether outgoing items are encrypted.
func (s *EncryptionService) Enabled() bool {
	return s.enabled
}

// ActiveKeyID returns the key new payloads are sealed with, or "" when
// outgoing data stays in plaintext.
func (s *EncryptionService) ActiveKeyID() (string, error) {
	if !s.enabled {
		return "", nil
	}
	if s.keys == nil {
		return "", ErrNoActiveKey
	}
	keyID, ok := s.keys.ActiveKeyID()
	if !ok || !s.keys.IsLoaded(keyID) {
		return "", ErrNoActiveKey
	}
	return keyID, nil
}

// EncryptItem returns the envelope that is written to the target for item.
// Items of kinds that are never encrypted, and all items while encryption is
// disabled, are returned unchanged.
func (s *EncryptionService) EncryptItem(item models.Item) (models.Item, error) {
	if !s.enabled || !item.Type.Encryptable() || item.EncryptionApplied {
		return item, nil
	}

	keyID, err := s.ActiveKeyID()
	if err != nil {
		return models.Item{}, err
	}

	plain, err := models.MarshalItem(item)
	if err != nil {
		return models.Item{}, fmt.Errorf("marshal item %s: %w", item.ID, err)
	}
	cipherText, err := s.keys.Encrypt(keyID, plain)
	if err != nil {
		return models.Item{}, fmt.Errorf("encrypt item %s: %w", item.ID, err)
	}

	return models.Item{
		ID:                   item.ID,
		Type:                 item.Type,
		UpdatedTime:          item.UpdatedTime,
		EncryptionApplied:    true,
		EncryptionKeyID:      keyID,
		EncryptionCipherText: cipherText,
	}, nil
}

// DecryptItem reverses [EncryptionService.EncryptItem]. Plaintext items are
// returned unchanged. A missing key yields a [*KeyNotLoadedError]; any other
// failure wraps [ErrDecryptionFailed].
func (s *EncryptionService) DecryptItem(envelope models.Item) (models.Item, error) {
	if !envelope.EncryptionApplied {
		return envelope, nil
	}

	keyID := envelope.EncryptionKeyID
	if s.keys == nil || !s.keys.IsLoaded(keyID) {
		return models.Item{}, &KeyNotLoadedError{KeyID: keyID}
	}

	plain, err := s.keys.Decrypt(keyID, envelope.EncryptionCipherText)
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: item %s: %w", ErrDecryptionFailed, envelope.ID, err)
	}

	item, err := models.UnmarshalItem(plain)
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: item %s: %w", ErrDecryptionFailed, envelope.ID, err)
	}
	if item.ID != envelope.ID || item.Type != envelope.Type {
		return models.Item{}, fmt.Errorf("%w: item %s: %w", ErrDecryptionFailed, envelope.ID, ErrEnvelopeMismatch)
	}
	return item, nil
}

// Serialize encrypts item when needed and returns its wire form.
func (s *EncryptionService) Serialize(item models.Item) ([]byte, error) {
	envelope, err := s.EncryptItem(item)
	if err != nil {
		return nil, err
	}
	return models.MarshalItem(envelope)
}

// Deserialize decodes a wire form and decrypts it. The envelope is returned
// alongside the item so callers can see which key, if any, was used.
func (s *EncryptionService) Deserialize(data []byte) (item, envelope models.Item, err error) {
	envelope, err = models.UnmarshalItem(data)
	if err != nil {
		return models.Item{}, models.Item{}, err
	}

	item, err = s.DecryptItem(envelope)
	if err != nil {
		return models.Item{}, envelope, err
	}
	return item, envelope, nil
}

// EncryptBlob seals resource content with keyID. An empty keyID leaves the
// content as is.
func (s *EncryptionService) EncryptBlob(keyID string, content []byte) ([]byte, error) {
	if keyID == "" {
		return content, nil
	}
	if s.keys == nil {
		return nil, ErrNoActiveKey
	}

	cipherText, err := s.keys.Encrypt(keyID, content)
	if err != nil {
		return nil, fmt.Errorf("encrypt blob: %w", err)
	}
	return []byte(cipherText), nil
}

// DecryptBlob reverses [EncryptionService.EncryptBlob].
func (s *EncryptionService) DecryptBlob(keyID string, content []byte) ([]byte, error) {
	if keyID == "" {
		return content, nil
	}
	if s.keys == nil || !s.keys.IsLoaded(keyID) {
		return nil, &KeyNotLoadedError{KeyID: keyID}
	}

	plain, err := s.keys.Decrypt(keyID, string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: blob: %w", ErrDecryptionFailed, err)
	}
	return plain, nil
}

// isKeyNotLoaded extracts the key id of a [*KeyNotLoadedError].
func isKeyNotLoaded(err error) (string, bool) {
	var keyErr *KeyNotLoadedError
	if errors.As(err, &keyErr) {
		return keyErr.KeyID, true
	}
	return "", false
}
