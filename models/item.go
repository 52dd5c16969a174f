// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/hex"
	"encoding/json"
	"path"
	"strings"
)

// ItemType identifies the kind of record carried by an [Item].
// Numeric values are part of the wire format and must never be renumbered.
type ItemType int

const (
	TypeNote      ItemType = 1
	TypeFolder    ItemType = 2
	TypeResource  ItemType = 4
	TypeTag       ItemType = 5
	TypeNoteTag   ItemType = 6
	TypeMasterKey ItemType = 9
	TypeRevision  ItemType = 13
)

// String returns the lowercase name used in logs and progress counters.
func (t ItemType) String() string {
	switch t {
	case TypeNote:
		return "note"
	case TypeFolder:
		return "folder"
	case TypeResource:
		return "resource"
	case TypeTag:
		return "tag"
	case TypeNoteTag:
		return "note_tag"
	case TypeMasterKey:
		return "master_key"
	case TypeRevision:
		return "revision"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the known item kinds.
func (t ItemType) Valid() bool {
	return t.String() != "unknown"
}

// Encryptable reports whether items of this kind may be end-to-end encrypted.
// Key material is stored in its own wrapped form and is never re-encrypted.
func (t ItemType) Encryptable() bool {
	return t != TypeMasterKey
}

// Item is the serialized, typed record exchanged with a remote target.
//
// The synchronizer treats Body as an opaque blob owned by the note layer.
// When EncryptionApplied is true, Body is empty and EncryptionCipherText
// holds the encrypted JSON form of the whole plaintext item.
type Item struct {
	ID                   string          `json:"id"`
	Type                 ItemType        `json:"type_"`
	UpdatedTime          int64           `json:"updated_time"`
	EncryptionApplied    bool            `json:"encryption_applied"`
	EncryptionKeyID      string          `json:"encryption_key_id,omitempty"`
	EncryptionCipherText string          `json:"encryption_cipher_text,omitempty"`
	Body                 json.RawMessage `json:"body,omitempty"`
}

// Path returns the backend path of the item.
func (i Item) Path() string {
	return ItemPath(i.ID)
}

const (
	// ItemExt is the file extension of every item file at the target root.
	ItemExt = ".md"
	// ResourceDir holds resource blobs, one file per resource id.
	ResourceDir = ".resource"
	// LocksDir holds lock files.
	LocksDir = "locks"
	// TempDir is scratch space created by migrations.
	TempDir = "temp"
	// InfoFile records the target's structural version.
	InfoFile = "info.json"
)

// ItemPath derives the backend path for an item id. The same id always maps
// to the same path on every client.
func ItemPath(id string) string {
	return id + ItemExt
}

// ResourceBlobPath derives the backend path of a resource's binary content.
func ResourceBlobPath(id string) string {
	return path.Join(ResourceDir, id)
}

// ItemIDFromPath extracts the item id from a root-level item path.
// It returns false for anything that is not an item file (lock files,
// info.json, directories, foreign files).
func ItemIDFromPath(p string) (string, bool) {
	if strings.Contains(p, "/") || !strings.HasSuffix(p, ItemExt) {
		return "", false
	}
	id := strings.TrimSuffix(p, ItemExt)
	if !IsValidID(id) {
		return "", false
	}
	return id, true
}

// IsValidID reports whether id is a 32-character lowercase hex identifier.
func IsValidID(id string) bool {
	if len(id) != 32 || strings.ToLower(id) != id {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// MarshalItem encodes item into its wire form.
func MarshalItem(item Item) ([]byte, error) {
	return json.Marshal(item)
}

// UnmarshalItem decodes the wire form of an item and checks the fields the
// synchronizer depends on.
func UnmarshalItem(data []byte) (Item, error) {
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return Item{}, err
	}
	if !IsValidID(item.ID) {
		return Item{}, ErrInvalidItemID
	}
	if !item.Type.Valid() {
		return Item{}, ErrInvalidItemType
	}
	return item, nil
}
