// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/MKhiriev/go-note-sync/internal/utils"
	"golang.org/x/crypto/argon2"
)

// MasterKey is the persisted form of one data-encryption key. The key itself
// is stored wrapped by a key-encryption key derived from the user's password,
// so a MasterKey is safe to sync to a remote target as is.
type MasterKey struct {
	ID          string `json:"id"`
	Salt        []byte `json:"salt"`
	Content     []byte `json:"content"`
	CreatedTime int64  `json:"created_time"`
}

// KeyChain holds the unwrapped data-encryption keys of the current process
// and encrypts and decrypts payloads with them.
type KeyChain struct {
	// Argon2id tuning parameters. Stored in the struct so they can be
	// adjusted per deployment target (e.g. mobile vs. desktop).
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
	argonKeyLen  uint32

	ids *utils.IDGenerator

	mu     sync.RWMutex
	keys   map[string][]byte
	active string
}

// NewKeyChain constructs an empty [KeyChain] with the Argon2id parameters
// recommended by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (256 bits)
func NewKeyChain() *KeyChain {
	return &KeyChain{
		argonTime:    1,
		argonMemory:  64 * 1024, // 64 MiB
		argonThreads: 4,
		argonKeyLen:  32, // 256 bits
		ids:          utils.NewIDGenerator(),
		keys:         make(map[string][]byte),
	}
}

// GenerateMasterKey creates a fresh data-encryption key, wraps it with a KEK
// derived from password and loads it. The new key is not made active.
func (k *KeyChain) GenerateMasterKey(password string) (MasterKey, error) {
	if password == "" {
		return MasterKey{}, ErrEmptyPassword
	}

	salt, err := randomBytes(16)
	if err != nil {
		return MasterKey{}, fmt.Errorf("generate salt: %w", err)
	}
	dek, err := randomBytes(32)
	if err != nil {
		return MasterKey{}, fmt.Errorf("generate data key: %w", err)
	}

	wrapped, err := seal(k.deriveKEK(password, salt), dek)
	if err != nil {
		return MasterKey{}, fmt.Errorf("wrap data key: %w", err)
	}

	mk := MasterKey{
		ID:          k.ids.Generate(),
		Salt:        salt,
		Content:     wrapped,
		CreatedTime: time.Now().UnixMilli(),
	}

	k.mu.Lock()
	k.keys[mk.ID] = dek
	k.mu.Unlock()

	return mk, nil
}

// LoadMasterKey unwraps mk with password and keeps the data key in memory.
// A wrong password is reported as [ErrWrongPassword].
func (k *KeyChain) LoadMasterKey(mk MasterKey, password string) error {
	dek, err := open(k.deriveKEK(password, mk.Salt), mk.Content)
	if err != nil {
		return fmt.Errorf("load master key %s: %w", mk.ID, ErrWrongPassword)
	}

	k.mu.Lock()
	k.keys[mk.ID] = dek
	k.mu.Unlock()
	return nil
}

// Unload forgets a loaded key. Unloading the active key leaves the chain
// without an active key.
func (k *KeyChain) Unload(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	delete(k.keys, keyID)
	if k.active == keyID {
		k.active = ""
	}
}

// SetActive selects the key used for new encryptions.
func (k *KeyChain) SetActive(keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[keyID]; !ok {
		return fmt.Errorf("activate %s: %w", keyID, ErrKeyNotLoaded)
	}
	k.active = keyID
	return nil
}

func (k *KeyChain) IsLoaded(keyID string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()

	_, ok := k.keys[keyID]
	return ok
}

func (k *KeyChain) ActiveKeyID() (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return k.active, k.active != ""
}

// Encrypt seals plaintext with the key keyID. The output is the Base64
// (standard encoding) form of nonce (12 bytes) ‖ ciphertext.
func (k *KeyChain) Encrypt(keyID string, plaintext []byte) (string, error) {
	dek, err := k.key(keyID)
	if err != nil {
		return "", err
	}

	blob, err := seal(dek, plaintext)
	if err != nil {
		return "", fmt.Errorf("encrypt with %s: %w", keyID, err)
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses [KeyChain.Encrypt]. A tampered payload or a payload sealed
// with another key fails the GCM authentication check.
func (k *KeyChain) Decrypt(keyID string, cipherText string) ([]byte, error) {
	dek, err := k.key(keyID)
	if err != nil {
		return nil, err
	}

	blob, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	plaintext, err := open(dek, blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt with %s: %w", keyID, err)
	}
	return plaintext, nil
}

func (k *KeyChain) key(keyID string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	dek, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", keyID, ErrKeyNotLoaded)
	}
	return dek, nil
}

// deriveKEK derives a 256-bit key-encryption key from password and salt using
// Argon2id. The result exists only in memory.
func (k *KeyChain) deriveKEK(password string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		k.argonTime,
		k.argonMemory,
		k.argonThreads,
		k.argonKeyLen,
	)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// seal encrypts plaintext with AES-256-GCM. A random nonce is prepended to
// the ciphertext so that open can locate it: blob = nonce ‖ ciphertext.
func seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(gcm.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, blob []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, ErrCipherTextTooShort
	}

	// Split the blob into nonce and actual ciphertext.
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
