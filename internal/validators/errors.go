package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidID          = errors.New("invalid item id")
	ErrInvalidType        = errors.New("invalid item type")
	ErrInvalidUpdatedTime = errors.New("invalid updated time")
	ErrInvalidBody        = errors.New("item body is not valid JSON")
	ErrInvalidEnvelope    = errors.New("inconsistent encryption fields")
	ErrInvalidOriginalID  = errors.New("invalid conflict original id")
)
