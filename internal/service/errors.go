package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
)

var (
	ErrHasSyncLock      = errors.New("target is locked by another sync session")
	ErrHasExclusiveLock = errors.New("target is locked by a migration")
	ErrLockNotHeld      = errors.New("lock is not held")

	ErrSessionCancelled     = errors.New("sync session cancelled")
	ErrNoActiveKey          = errors.New("encryption is enabled but no key is active")
	ErrDecryptionFailed     = errors.New("item decryption failed")
	ErrEnvelopeMismatch     = errors.New("decrypted item does not match its envelope")
	ErrInvalidSyncContext   = errors.New("invalid sync context")
	ErrUnknownTargetVersion = errors.New("target version record is unreadable")
)

// ErrorKind is the closed set of failure classes a session can end with.
type ErrorKind int

const (
	KindFatal ErrorKind = iota
	KindNetwork
	KindAuth
	KindLockContention
	KindKeyUnavailable
	KindVersionMismatch
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindLockContention:
		return "lock_contention"
	case KindKeyUnavailable:
		return "key_unavailable"
	case KindVersionMismatch:
		return "version_mismatch"
	case KindCancelled:
		return "cancelled"
	default:
		return "fatal"
	}
}

// Retryable reports whether a later session may succeed without operator
// action.
func (k ErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindLockContention || k == KindKeyUnavailable
}

// SyncError is the error returned by a failed session.
type SyncError struct {
	Kind ErrorKind
	// KeyID is set for KindKeyUnavailable.
	KeyID string
	Err   error
}

func (e *SyncError) Error() string {
	if e.KeyID != "" {
		return fmt.Sprintf("sync %s (key %s): %v", e.Kind, e.KeyID, e.Err)
	}
	return fmt.Sprintf("sync %s: %v", e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// KeyNotLoadedError is raised when an item is encrypted with a key that is
// not loaded in the key service.
type KeyNotLoadedError struct {
	KeyID string
}

func (e *KeyNotLoadedError) Error() string {
	return fmt.Sprintf("master key %s is not loaded", e.KeyID)
}

// VersionMismatchError is raised when the target's structural version differs
// from the one this client expects.
type VersionMismatchError struct {
	TargetVersion   int
	ExpectedVersion int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("target version %d, expected %d", e.TargetVersion, e.ExpectedVersion)
}

// NeedsUpgrade reports whether running the migration manager resolves the
// mismatch. A newer target requires a newer client instead.
func (e *VersionMismatchError) NeedsUpgrade() bool {
	return e.TargetVersion < e.ExpectedVersion
}

// Classify maps err to its [ErrorKind].
func Classify(err error) ErrorKind {
	var syncErr *SyncError
	var keyErr *KeyNotLoadedError
	var versionErr *VersionMismatchError

	switch {
	case errors.As(err, &syncErr):
		return syncErr.Kind
	case errors.Is(err, ErrSessionCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrHasSyncLock), errors.Is(err, ErrHasExclusiveLock):
		return KindLockContention
	case errors.As(err, &keyErr), errors.Is(err, ErrNoActiveKey):
		return KindKeyUnavailable
	case errors.As(err, &versionErr):
		return KindVersionMismatch
	case errors.Is(err, adapter.ErrUnauthorized):
		return KindAuth
	case errors.Is(err, adapter.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	default:
		return KindFatal
	}
}

// newSyncError wraps err into a [SyncError] unless it already is one.
func newSyncError(err error) *SyncError {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}

	out := &SyncError{Kind: Classify(err), Err: err}
	var keyErr *KeyNotLoadedError
	if errors.As(err, &keyErr) {
		out.KeyID = keyErr.KeyID
	}
	return out
}
