// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// LockType distinguishes a regular sync lock from the exclusive lock taken
// by migrations.
type LockType string

const (
	LockTypeSync      LockType = "sync"
	LockTypeExclusive LockType = "exclusive"
)

// Lock is an advisory marker stored on the target. The whole record is
// encoded in the file name so that a directory listing is enough to read
// every lock.
type Lock struct {
	ClientID   string        `json:"client_id"`
	Type       LockType      `json:"type"`
	AcquiredAt time.Time     `json:"acquired_at"`
	StaleAfter time.Duration `json:"stale_after"`
}

// Path returns the backend path of the lock file.
func (l Lock) Path() string {
	name := fmt.Sprintf("%s_%s_%d.json", l.Type, l.ClientID, l.AcquiredAt.UnixMilli())
	return path.Join(LocksDir, name)
}

// IsStale reports whether the lock is older than its StaleAfter window.
func (l Lock) IsStale(now time.Time) bool {
	return now.Sub(l.AcquiredAt) > l.StaleAfter
}

// ParseLockPath decodes a lock file name produced by [Lock.Path]. StaleAfter
// is not part of the name and is left for the caller to fill in.
func ParseLockPath(p string) (Lock, bool) {
	name := strings.TrimSuffix(path.Base(p), ".json")
	if name == path.Base(p) {
		return Lock{}, false
	}

	// The client id sits between the first and the last underscore and may
	// itself contain underscores.
	first, last := strings.Index(name, "_"), strings.LastIndex(name, "_")
	if first < 0 || last <= first+1 {
		return Lock{}, false
	}

	lockType := LockType(name[:first])
	if lockType != LockTypeSync && lockType != LockTypeExclusive {
		return Lock{}, false
	}
	ms, err := strconv.ParseInt(name[last+1:], 10, 64)
	if err != nil {
		return Lock{}, false
	}

	return Lock{ClientID: name[first+1 : last], Type: lockType, AcquiredAt: time.UnixMilli(ms)}, true
}
