package models

import "errors"

// Decoding errors returned by [UnmarshalItem].
var (
	ErrInvalidItemID   = errors.New("invalid item id")
	ErrInvalidItemType = errors.New("invalid item type")
)
