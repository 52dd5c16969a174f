package validators

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-note-sync/models"
)

// Field name constants used to specify which fields should be validated.
const (
	// FieldID targets the 32-hex item identifier.
	FieldID = "id"

	// FieldType targets the item kind.
	FieldType = "type"

	// FieldUpdatedTime targets the millisecond modification time.
	FieldUpdatedTime = "updated_time"

	// FieldBody targets the opaque JSON body of a plaintext item.
	FieldBody = "body"

	// FieldEncryption targets the envelope fields: an encrypted item needs a
	// key id and cipher text and carries no body, a plaintext item carries
	// neither.
	FieldEncryption = "encryption"

	// FieldOriginalID targets the canonical id a conflict copy refers to.
	FieldOriginalID = "original_id"
)

// ItemValidator implements the Validator interface for items and
// conflict copies. It accepts both value and pointer forms.
type ItemValidator struct {
}

func NewItemValidator() Validator {
	return &ItemValidator{}
}

// Validate dispatches on the dynamic type of obj. Supported types are
// models.Item and models.Conflict. Optional fields restrict validation to
// the named subset.
func (v *ItemValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Item:
		return v.validateItem(ctx, value, fields...)
	case *models.Item:
		return v.validateItem(ctx, *value, fields...)

	case models.Conflict:
		return v.validateConflict(ctx, value, fields...)
	case *models.Conflict:
		return v.validateConflict(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

// validateItem checks FieldID, FieldType, FieldUpdatedTime, FieldBody and
// FieldEncryption by default.
func (v *ItemValidator) validateItem(_ context.Context, item models.Item, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldID, FieldType, FieldUpdatedTime, FieldBody, FieldEncryption}
	}

	for _, f := range fields {
		switch f {
		case FieldID:
			if !models.IsValidID(item.ID) {
				return ErrInvalidID
			}
		case FieldType:
			if !item.Type.Valid() {
				return ErrInvalidType
			}
		case FieldUpdatedTime:
			if item.UpdatedTime < 0 {
				return ErrInvalidUpdatedTime
			}
		case FieldBody:
			if len(item.Body) > 0 && !json.Valid(item.Body) {
				return ErrInvalidBody
			}
		case FieldEncryption:
			if item.EncryptionApplied {
				if item.EncryptionKeyID == "" || item.EncryptionCipherText == "" || len(item.Body) > 0 {
					return ErrInvalidEnvelope
				}
			} else if item.EncryptionKeyID != "" || item.EncryptionCipherText != "" {
				return ErrInvalidEnvelope
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateConflict checks the original id and then the copy itself. Item
// fields given in fields apply to the copy.
func (v *ItemValidator) validateConflict(ctx context.Context, conflict models.Conflict, fields ...string) error {
	var itemFields []string
	checkOriginal := len(fields) == 0
	for _, f := range fields {
		if f == FieldOriginalID {
			checkOriginal = true
			continue
		}
		itemFields = append(itemFields, f)
	}

	if checkOriginal {
		if !models.IsValidID(conflict.OriginalID) || conflict.OriginalID == conflict.Item.ID {
			return ErrInvalidOriginalID
		}
	}
	if len(fields) > 0 && len(itemFields) == 0 {
		return nil
	}
	return v.validateItem(ctx, conflict.Item, itemFields...)
}
