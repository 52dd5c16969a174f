package models

// DeletedItem is a local deletion that has not been pushed to a target yet.
type DeletedItem struct {
	ID   string
	Type ItemType
}

// SyncInfo is what the host remembers about an item's last successful sync
// with one target.
type SyncInfo struct {
	// SyncTime is the item's UpdatedTime when it was last synced.
	SyncTime int64
	// RemoteTime is the backend stat time recorded for the item at that point.
	RemoteTime int64
}

// PendingDecryption is a remote item that could not be decrypted because its
// key was not loaded at sync time.
type PendingDecryption struct {
	ItemID     string
	KeyID      string
	QueuedTime int64
}
