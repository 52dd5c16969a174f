// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/models"
)

// CurrentTargetVersion is the target layout this client reads and writes.
const CurrentTargetVersion = 3

const (
	legacySyncDir   = ".sync"
	legacyLockDir   = ".lock"
	legacyInfoAfter = 2 // from this version on the record lives in info.json
)

var legacyVersionPath = path.Join(legacySyncDir, "version.txt")

// MigrationStep upgrades a target from Version-1 to Version. Apply must be
// safe to run again after a partial failure.
type MigrationStep struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, driver adapter.Driver) error
}

// DefaultMigrationSteps returns the ordered upgrade steps up to
// [CurrentTargetVersion].
func DefaultMigrationSteps() []MigrationStep {
	return []MigrationStep{
		{
			Version: 1,
			Name:    "create directories",
			Apply: func(ctx context.Context, driver adapter.Driver) error {
				for _, dir := range []string{models.LocksDir, models.ResourceDir, models.TempDir} {
					if err := driver.Mkdir(ctx, dir); err != nil {
						return fmt.Errorf("mkdir %s: %w", dir, err)
					}
				}
				return nil
			},
		},
		{
			// Writing the record is the whole step; it happens in recordVersion.
			Version: 2,
			Name:    "move version record to info.json",
			Apply:   func(context.Context, adapter.Driver) error { return nil },
		},
		{
			Version: 3,
			Name:    "remove legacy directories",
			Apply: func(ctx context.Context, driver adapter.Driver) error {
				for _, dir := range []string{legacySyncDir, legacyLockDir} {
					if err := driver.Delete(ctx, dir); err != nil {
						return fmt.Errorf("delete %s: %w", dir, err)
					}
				}
				return nil
			},
		},
	}
}

// TargetState is what a target says about its own layout.
type TargetState struct {
	Version int
	// Empty is set when the target holds neither a version record nor any
	// item, so it can be initialised instead of migrated.
	Empty bool
}

// MigrationManager upgrades a target's structure, one numbered step at a
// time, under the exclusive lock.
type MigrationManager struct {
	driver adapter.Driver
	locks  *LockManager
	steps  []MigrationStep
	now    func() time.Time

	logger *logger.Logger
}

// NewMigrationManager creates a manager running steps in Version order. A nil
// steps slice selects [DefaultMigrationSteps].
func NewMigrationManager(driver adapter.Driver, locks *LockManager, steps []MigrationStep, logger *logger.Logger) *MigrationManager {
	if steps == nil {
		steps = DefaultMigrationSteps()
	}
	steps = slices.Clone(steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })

	return &MigrationManager{driver: driver, locks: locks, steps: steps, now: time.Now, logger: logger}
}

// LatestVersion is the version reached after every step has run.
func (m *MigrationManager) LatestVersion() int {
	latest := 0
	for _, step := range m.steps {
		latest = max(latest, step.Version)
	}
	return latest
}

// State reads the target's version record.
func (m *MigrationManager) State(ctx context.Context) (TargetState, error) {
	data, err := m.driver.Get(ctx, models.InfoFile, adapter.GetOptions{})
	if err != nil {
		return TargetState{}, fmt.Errorf("read %s: %w", models.InfoFile, err)
	}
	if data != nil {
		var info models.TargetInfo
		if err = json.Unmarshal(data, &info); err != nil {
			return TargetState{}, fmt.Errorf("%w: %s: %v", ErrUnknownTargetVersion, models.InfoFile, err)
		}
		return TargetState{Version: info.Version}, nil
	}

	data, err = m.driver.Get(ctx, legacyVersionPath, adapter.GetOptions{})
	if err != nil {
		return TargetState{}, fmt.Errorf("read %s: %w", legacyVersionPath, err)
	}
	if data != nil {
		version, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return TargetState{}, fmt.Errorf("%w: %s: %v", ErrUnknownTargetVersion, legacyVersionPath, err)
		}
		return TargetState{Version: version}, nil
	}

	listing, err := m.driver.List(ctx, "")
	if err != nil {
		return TargetState{}, fmt.Errorf("list target root: %w", err)
	}
	for _, stat := range listing.Items {
		if _, ok := models.ItemIDFromPath(stat.Path); ok {
			return TargetState{Version: 0}, nil
		}
	}
	return TargetState{Version: 0, Empty: true}, nil
}

// Initialize brings an empty target to the latest layout without going
// through the legacy record. The caller must hold a lock.
func (m *MigrationManager) Initialize(ctx context.Context) error {
	for _, step := range m.steps {
		if err := step.Apply(ctx, m.driver); err != nil {
			return fmt.Errorf("initialise target, step %d (%s): %w", step.Version, step.Name, err)
		}
	}
	return m.recordVersion(ctx, m.LatestVersion())
}

// Upgrade runs every step newer than the target's version under the
// exclusive lock and returns the version reached. On failure the returned
// version is the last one fully applied.
func (m *MigrationManager) Upgrade(ctx context.Context) (version int, err error) {
	if _, err = m.locks.Acquire(ctx, models.LockTypeExclusive); err != nil {
		return 0, err
	}
	defer func() {
		if releaseErr := m.locks.Release(context.WithoutCancel(ctx)); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	state, err := m.State(ctx)
	if err != nil {
		return 0, err
	}
	version = state.Version

	if state.Empty {
		if err = m.Initialize(ctx); err != nil {
			return version, err
		}
		return m.LatestVersion(), nil
	}

	for _, step := range m.steps {
		if step.Version <= version {
			continue
		}

		m.logger.Info().
			Str("func", "MigrationManager.Upgrade").
			Int("from", version).
			Int("to", step.Version).
			Str("step", step.Name).
			Msg("applying target migration")

		if err = step.Apply(ctx, m.driver); err != nil {
			return version, fmt.Errorf("migration step %d (%s): %w", step.Version, step.Name, err)
		}
		if err = m.recordVersion(ctx, step.Version); err != nil {
			return version, fmt.Errorf("migration step %d (%s): %w", step.Version, step.Name, err)
		}
		version = step.Version
	}

	return version, nil
}

func (m *MigrationManager) recordVersion(ctx context.Context, version int) error {
	if version < legacyInfoAfter {
		content := []byte(strconv.Itoa(version))
		if err := m.driver.Put(ctx, legacyVersionPath, content, adapter.PutOptions{}); err != nil {
			return fmt.Errorf("write %s: %w", legacyVersionPath, err)
		}
		return nil
	}

	content, err := json.Marshal(models.TargetInfo{Version: version, UpdatedTime: m.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode %s: %w", models.InfoFile, err)
	}
	if err = m.driver.Put(ctx, models.InfoFile, content, adapter.PutOptions{}); err != nil {
		return fmt.Errorf("write %s: %w", models.InfoFile, err)
	}
	return nil
}
