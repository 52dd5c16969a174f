// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SyncState is the position of a session in the synchronizer state machine.
type SyncState string

const (
	StateIdle           SyncState = "idle"
	StateStarted        SyncState = "started"
	StateDownloading    SyncState = "downloading"
	StateDeletingLocal  SyncState = "deleting_local"
	StateUploading      SyncState = "uploading"
	StateDeletingRemote SyncState = "deleting_remote"
	StateClosing        SyncState = "closing"
	StateCancelling     SyncState = "cancelling"
	StateError          SyncState = "error"
)

// SyncAction names one counted operation of a session.
type SyncAction string

const (
	ActionFetched       SyncAction = "fetched"
	ActionCreateLocal   SyncAction = "create_local"
	ActionUpdateLocal   SyncAction = "update_local"
	ActionDeleteLocal   SyncAction = "delete_local"
	ActionCreateRemote  SyncAction = "create_remote"
	ActionUpdateRemote  SyncAction = "update_remote"
	ActionDeleteRemote  SyncAction = "delete_remote"
	ActionSkipped       SyncAction = "skipped"
	ActionConflict      SyncAction = "conflict"
	ActionKeyNotLoaded  SyncAction = "key_not_loaded"
	ActionDecryptFailed SyncAction = "decrypt_failed"
)

// SyncReport carries the coarse counters of one session. Counters are keyed
// by action, then by item kind.
type SyncReport struct {
	TargetID   string
	State      SyncState
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Counters   map[SyncAction]map[ItemType]int
	Conflicts  []Conflict
	Errors     []error
}

// NewSyncReport returns an empty report for targetID.
func NewSyncReport(targetID string) SyncReport {
	return SyncReport{
		TargetID: targetID,
		State:    StateIdle,
		Counters: make(map[SyncAction]map[ItemType]int),
	}
}

// Inc increments the counter of action for the given kind.
func (r *SyncReport) Inc(action SyncAction, kind ItemType) {
	byKind, ok := r.Counters[action]
	if !ok {
		byKind = make(map[ItemType]int)
		r.Counters[action] = byKind
	}
	byKind[kind]++
}

// Count returns the total of action across every kind.
func (r SyncReport) Count(action SyncAction) int {
	total := 0
	for _, n := range r.Counters[action] {
		total += n
	}
	return total
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r SyncReport) Clone() SyncReport {
	out := r
	out.Counters = make(map[SyncAction]map[ItemType]int, len(r.Counters))
	for action, byKind := range r.Counters {
		m := make(map[ItemType]int, len(byKind))
		for k, v := range byKind {
			m[k] = v
		}
		out.Counters[action] = m
	}
	out.Conflicts = append([]Conflict(nil), r.Conflicts...)
	out.Errors = append([]error(nil), r.Errors...)
	return out
}
