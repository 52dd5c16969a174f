package models

// Conflict is the remote version of an item that lost to a local edit.
// It is stored verbatim under a new id in the local conflicts container.
type Conflict struct {
	// OriginalID is the id of the canonical item the conflict belongs to.
	OriginalID string
	// Item is the losing copy, re-identified with a fresh id.
	Item Item
}
