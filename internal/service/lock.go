// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

const (
	defaultLockStaleAfter  = 3 * time.Minute
	defaultLockSettleDelay = 500 * time.Millisecond
)

// LockManager takes and releases advisory locks stored under locks/ on the
// target. Backends offer no compare-and-swap, so acquisition writes the lock
// and then re-reads the directory to detect a concurrent writer.
type LockManager struct {
	driver      adapter.Driver
	clientID    string
	staleAfter  time.Duration
	settleDelay time.Duration
	now         func() time.Time

	mu   sync.Mutex
	held *models.Lock

	logger *logger.Logger
}

// NewLockManager creates a lock manager acting on behalf of clientID.
func NewLockManager(driver adapter.Driver, clientID string, staleAfter, settleDelay time.Duration, logger *logger.Logger) *LockManager {
	if staleAfter <= 0 {
		staleAfter = defaultLockStaleAfter
	}
	if settleDelay < 0 {
		settleDelay = defaultLockSettleDelay
	}
	return &LockManager{
		driver:      driver,
		clientID:    clientID,
		staleAfter:  staleAfter,
		settleDelay: settleDelay,
		now:         time.Now,
		logger:      logger,
	}
}

// Acquire takes a lock of the given type. It fails with [ErrHasSyncLock] or
// [ErrHasExclusiveLock] when another client holds a live lock.
func (m *LockManager) Acquire(ctx context.Context, lockType models.LockType) (models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held != nil {
		return models.Lock{}, fmt.Errorf("%s lock already held by this client: %w", m.held.Type, errForLock(*m.held))
	}

	others, err := m.otherLocks(ctx, true)
	if err != nil {
		return models.Lock{}, err
	}
	if len(others) > 0 {
		return models.Lock{}, errForLock(others[0])
	}

	lock := models.Lock{
		ClientID:   m.clientID,
		Type:       lockType,
		// Lock files only carry milliseconds; both sides of a race must
		// compare the same value.
		AcquiredAt: time.UnixMilli(m.now().UnixMilli()),
		StaleAfter: m.staleAfter,
	}
	if err = m.write(ctx, lock); err != nil {
		return models.Lock{}, err
	}

	// Optimistic check: look for a lock written concurrently with ours.
	others, err = m.otherLocks(ctx, false)
	if err != nil {
		m.remove(ctx, lock)
		return models.Lock{}, err
	}
	if len(others) > 0 {
		winner := lock
		for _, other := range others {
			if lockBefore(other, winner) {
				winner = other
			}
		}
		if winner.ClientID != m.clientID {
			m.remove(ctx, lock)
			return models.Lock{}, errForLock(winner)
		}

		// We won the tie-break; give the losers time to back off.
		if err = sleepCtx(ctx, m.settleDelay); err != nil {
			m.remove(ctx, lock)
			return models.Lock{}, err
		}
		others, err = m.otherLocks(ctx, false)
		if err != nil {
			m.remove(ctx, lock)
			return models.Lock{}, err
		}
		if len(others) > 0 {
			m.remove(ctx, lock)
			return models.Lock{}, errForLock(others[0])
		}
	}

	m.held = &lock
	m.logger.Debug().
		Str("func", "LockManager.Acquire").
		Str("type", string(lockType)).
		Str("path", lock.Path()).
		Msg("lock acquired")

	return lock, nil
}

// Release deletes the lock taken by [LockManager.Acquire].
func (m *LockManager) Release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held == nil {
		return ErrLockNotHeld
	}

	lock := *m.held
	if err := m.driver.Delete(ctx, lock.Path()); err != nil {
		return fmt.Errorf("release %s lock: %w", lock.Type, err)
	}
	m.held = nil

	m.logger.Debug().
		Str("func", "LockManager.Release").
		Str("path", lock.Path()).
		Msg("lock released")
	return nil
}

// Locks returns every live lock on the target.
func (m *LockManager) Locks(ctx context.Context) ([]models.Lock, error) {
	listing, err := m.driver.List(ctx, models.LocksDir)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}

	now := m.now()
	var locks []models.Lock
	for _, stat := range listing.Items {
		lock, ok := models.ParseLockPath(stat.Path)
		if !ok {
			continue
		}
		lock.StaleAfter = m.staleAfter
		if lock.IsStale(now) {
			continue
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

// otherLocks returns the live locks held by other clients, ordered by
// acquisition. With cleanup set, this client's stale lock files are deleted.
func (m *LockManager) otherLocks(ctx context.Context, cleanup bool) ([]models.Lock, error) {
	listing, err := m.driver.List(ctx, models.LocksDir)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}

	now := m.now()
	var others []models.Lock
	for _, stat := range listing.Items {
		lock, ok := models.ParseLockPath(stat.Path)
		if !ok {
			continue
		}
		lock.StaleAfter = m.staleAfter

		switch {
		case lock.ClientID == m.clientID:
			if cleanup && lock.IsStale(now) {
				m.remove(ctx, lock)
			}
		case lock.IsStale(now):
			m.logger.Info().
				Str("func", "LockManager.otherLocks").
				Str("path", stat.Path).
				Msg("ignoring stale lock")
		default:
			others = append(others, lock)
		}
	}

	sort.Slice(others, func(i, j int) bool { return lockBefore(others[i], others[j]) })
	return others, nil
}

func (m *LockManager) write(ctx context.Context, lock models.Lock) error {
	content, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}
	if err = m.driver.Put(ctx, lock.Path(), content, adapter.PutOptions{}); err != nil {
		return fmt.Errorf("write %s lock: %w", lock.Type, err)
	}
	return nil
}

func (m *LockManager) remove(ctx context.Context, lock models.Lock) {
	if err := m.driver.Delete(context.WithoutCancel(ctx), lock.Path()); err != nil {
		m.logger.Warn().Err(err).
			Str("func", "LockManager.remove").
			Str("path", lock.Path()).
			Msg("failed to delete lock file")
	}
}

// lockBefore orders locks by acquisition time, then by client id. The first
// lock in this order wins a race.
func lockBefore(a, b models.Lock) bool {
	if !a.AcquiredAt.Equal(b.AcquiredAt) {
		return a.AcquiredAt.Before(b.AcquiredAt)
	}
	return a.ClientID < b.ClientID
}

func errForLock(lock models.Lock) error {
	if lock.Type == models.LockTypeExclusive {
		return ErrHasExclusiveLock
	}
	return ErrHasSyncLock
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
