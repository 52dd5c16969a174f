// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/singleflight"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/internal/utils"
	"github.com/MKhiriev/go-note-sync/models"
)

const defaultMaxDecryptionAttempts = 3

// SyncStep selects the phases a session runs.
type SyncStep int

const (
	StepDelta SyncStep = 1 << iota
	StepUpdateRemote
	StepDeleteRemote

	AllSteps = StepDelta | StepUpdateRemote | StepDeleteRemote
)

// SessionOptions tunes one call to [Synchronizer.Start].
type SessionOptions struct {
	// Steps defaults to AllSteps.
	Steps SyncStep
}

// SessionDeps carries everything a synchronizer needs. Only the process
// entry point builds it; nothing in this package keeps global state.
type SessionDeps struct {
	TargetID     string
	ClientID     string
	Driver       adapter.Driver
	Capabilities adapter.Capabilities

	Store    LocalStore
	Contexts ContextStore
	// Keys may be nil when the host has no key service.
	Keys KeyService
	// Blobs and Fetcher may be nil; resource blobs are then not transferred.
	Blobs    BlobStore
	Fetcher  *ResourceFetcher
	Observer Observer

	Sync   config.ClientSync
	Logger *logger.Logger
}

// Synchronizer runs sync sessions between the local store and one target.
type Synchronizer struct {
	targetID string
	driver   adapter.Driver
	store    LocalStore
	contexts ContextStore
	blobs    BlobStore
	fetcher  *ResourceFetcher
	observer Observer

	delta      *DeltaEngine
	enc        *EncryptionService
	locks      *LockManager
	migrations *MigrationManager
	ids        *utils.IDGenerator

	maxDecryptionAttempts int

	group     singleflight.Group
	state     atomic.Value
	running   atomic.Bool
	cancelled atomic.Bool

	logger *logger.Logger
}

// NewSynchronizer wires the delta engine, encryption layer, lock manager and
// migration manager for deps.Driver.
func NewSynchronizer(deps SessionDeps) *Synchronizer {
	log := deps.Logger.WithTarget(deps.TargetID, deps.ClientID)

	maxAttempts := deps.Sync.MaxDecryptionAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxDecryptionAttempts
	}

	locks := NewLockManager(deps.Driver, deps.ClientID, deps.Sync.LockStaleAfter, deps.Sync.LockSettleDelay, log)

	s := &Synchronizer{
		targetID:              deps.TargetID,
		driver:                deps.Driver,
		store:                 deps.Store,
		contexts:              deps.Contexts,
		blobs:                 deps.Blobs,
		fetcher:               deps.Fetcher,
		observer:              deps.Observer,
		delta:                 NewDeltaEngine(deps.Driver, deps.Capabilities, deps.Sync.DeltaPageSize, log),
		enc:                   NewEncryptionService(deps.Keys, deps.Sync.EncryptionEnabled),
		locks:                 locks,
		migrations:            NewMigrationManager(deps.Driver, locks, nil, log),
		ids:                   utils.NewIDGenerator(),
		maxDecryptionAttempts: maxAttempts,
		logger:                log,
	}
	s.state.Store(models.StateIdle)
	return s
}

// Locks returns the lock manager shared with the migration manager.
func (s *Synchronizer) Locks() *LockManager { return s.locks }

// Migrations returns the target's migration manager.
func (s *Synchronizer) Migrations() *MigrationManager { return s.migrations }

// Encryption returns the encryption layer used for items and blobs.
func (s *Synchronizer) Encryption() *EncryptionService { return s.enc }

// State returns the state of the running session, or idle.
func (s *Synchronizer) State() models.SyncState {
	st, _ := s.state.Load().(models.SyncState)
	return st
}

// Cancel asks the running session to stop. The session checks the request
// between items and unwinds through lock release; it has stopped once
// [Synchronizer.State] reports idle again.
func (s *Synchronizer) Cancel() {
	if s.running.Load() {
		s.cancelled.Store(true)
	}
}

// RetryDisabledItems re-enables items disabled after repeated decryption
// failures. They are fetched again by the next session.
func (s *Synchronizer) RetryDisabledItems(ctx context.Context) error {
	if err := s.store.ClearDisabled(ctx, s.targetID); err != nil {
		return fmt.Errorf("clear disabled items: %w", err)
	}
	return nil
}

// Start runs one session. A caller arriving while a session is in flight
// receives that session's result instead of starting another. Failures are
// returned as [*SyncError].
func (s *Synchronizer) Start(ctx context.Context, opts SessionOptions) (models.SyncReport, error) {
	v, err, _ := s.group.Do(s.targetID, func() (any, error) {
		return s.run(ctx, opts)
	})

	report, _ := v.(models.SyncReport)
	return report.Clone(), err
}

// session holds everything scoped to one run.
type session struct {
	report   models.SyncReport
	notifier *progressNotifier

	// deleted holds local deletions not yet pushed.
	deleted map[string]struct{}
	// unread holds remote changes that could not be applied. They are
	// pulled again by the next session and local edits to them are held
	// back until then.
	unread map[string]models.DeltaItem
}

func (sess *session) inc(action models.SyncAction, kind models.ItemType) {
	sess.report.Inc(action, kind)
	sess.notifier.notify(sess.report)
}

func (s *Synchronizer) run(ctx context.Context, opts SessionOptions) (models.SyncReport, error) {
	if opts.Steps == 0 {
		opts.Steps = AllSteps
	}

	s.cancelled.Store(false)
	s.running.Store(true)
	defer s.running.Store(false)

	sess := &session{
		report:   models.NewSyncReport(s.targetID),
		notifier: newProgressNotifier(s.observer),
		deleted:  make(map[string]struct{}),
		unread:   make(map[string]models.DeltaItem),
	}
	defer sess.notifier.close()
	sess.report.StartedAt = time.Now()

	err := s.runSession(ctx, sess, opts)
	sess.report.FinishedAt = time.Now()

	if err == nil {
		sess.report.Status = "completed"
		s.setState(sess, models.StateIdle)
		s.logger.Info().
			Str("func", "Synchronizer.run").
			Int("fetched", sess.report.Count(models.ActionFetched)).
			Int("pushed", sess.report.Count(models.ActionCreateRemote)+sess.report.Count(models.ActionUpdateRemote)).
			Int("conflicts", sess.report.Count(models.ActionConflict)).
			Dur("took", sess.report.FinishedAt.Sub(sess.report.StartedAt)).
			Msg("sync session completed")
		return sess.report, nil
	}

	syncErr := newSyncError(err)
	sess.report.Errors = append(sess.report.Errors, syncErr)

	switch syncErr.Kind {
	case KindLockContention:
		// Not a failure: another session owns the target right now.
		sess.report.Status = "target is locked, try again later"
		s.logger.Info().Err(err).Str("func", "Synchronizer.run").Msg("sync session skipped")
		s.setState(sess, models.StateIdle)
	case KindCancelled:
		sess.report.Status = "cancelled"
		s.logger.Info().Str("func", "Synchronizer.run").Msg("sync session cancelled")
		s.setState(sess, models.StateIdle)
	default:
		sess.report.Status = err.Error()
		s.logger.Error().Err(err).
			Str("func", "Synchronizer.run").
			Str("kind", syncErr.Kind.String()).
			Msg("sync session failed")
		sess.report.State = models.StateError
		sess.notifier.notify(sess.report)
		s.state.Store(models.StateIdle)
	}

	return sess.report, syncErr
}

func (s *Synchronizer) runSession(ctx context.Context, sess *session, opts SessionOptions) (err error) {
	s.setState(sess, models.StateStarted)

	if _, err = s.locks.Acquire(ctx, models.LockTypeSync); err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.locks.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.logger.Warn().Err(releaseErr).Str("func", "Synchronizer.runSession").Msg("failed to release sync lock")
		}
	}()

	if err = s.checkTarget(ctx); err != nil {
		return err
	}

	dc, err := s.loadContext(ctx)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeletedItems(ctx, s.targetID)
	if err != nil {
		return fmt.Errorf("load local deletions: %w", err)
	}
	for _, d := range deleted {
		sess.deleted[d.ID] = struct{}{}
	}

	if opts.Steps&StepDelta != 0 {
		if dc, err = s.pull(ctx, sess, dc); err != nil {
			return err
		}
	}
	if opts.Steps&StepUpdateRemote != 0 {
		if err = s.pushChanges(ctx, sess, &dc); err != nil {
			return err
		}
	}
	if opts.Steps&StepDeleteRemote != 0 {
		if err = s.pushDeletions(ctx, sess, &dc); err != nil {
			return err
		}
	}

	s.setState(sess, models.StateClosing)
	return s.saveContext(ctx, dc)
}

// checkTarget refuses to sync a target whose layout differs from ours.
// Empty targets are initialised at the latest layout.
func (s *Synchronizer) checkTarget(ctx context.Context) error {
	state, err := s.migrations.State(ctx)
	if err != nil {
		return fmt.Errorf("read target version: %w", err)
	}

	if state.Empty {
		s.logger.Info().Str("func", "Synchronizer.checkTarget").Msg("initialising empty target")
		return s.migrations.Initialize(ctx)
	}

	if latest := s.migrations.LatestVersion(); state.Version != latest {
		return &VersionMismatchError{TargetVersion: state.Version, ExpectedVersion: latest}
	}
	return nil
}

func (s *Synchronizer) loadContext(ctx context.Context) (DeltaContext, error) {
	value, err := s.contexts.LoadContext(ctx, s.targetID)
	if err != nil {
		return DeltaContext{}, fmt.Errorf("load sync context: %w", err)
	}

	dc, err := ParseDeltaContext(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("func", "Synchronizer.loadContext").Msg("discarding sync context, doing a full resync")
		return DeltaContext{}, nil
	}
	if dc.Incomplete {
		dc.Pending, dc.Incomplete = nil, false
	}
	return dc, nil
}

func (s *Synchronizer) saveContext(ctx context.Context, dc DeltaContext) error {
	if !dc.Complete() {
		return nil
	}

	value, err := dc.Encode()
	if err != nil {
		return fmt.Errorf("encode sync context: %w", err)
	}
	if err = s.contexts.SaveContext(ctx, s.targetID, value); err != nil {
		return fmt.Errorf("save sync context: %w", err)
	}
	return nil
}

// pull drains every delta page and applies remote changes locally. The
// returned context is only meaningful when no error is returned.
func (s *Synchronizer) pull(ctx context.Context, sess *session, dc DeltaContext) (DeltaContext, error) {
	s.setState(sess, models.StateDownloading)

	cursor := dc
	for {
		if err := s.checkCancel(ctx, sess); err != nil {
			return dc, err
		}

		page, err := s.delta.Delta(ctx, cursor)
		if err != nil {
			return dc, err
		}

		for _, change := range page.Items {
			if err = s.checkCancel(ctx, sess); err != nil {
				return dc, err
			}
			if err = s.pullItem(ctx, sess, change); err != nil {
				return dc, err
			}
		}

		cursor = page.Context
		if !page.HasMore {
			break
		}
	}

	for _, change := range sess.unread {
		cursor.MarkUnread(change)
	}
	return cursor, nil
}

func (s *Synchronizer) pullItem(ctx context.Context, sess *session, change models.DeltaItem) error {
	if change.Deleted {
		s.setState(sess, models.StateDeletingLocal)
		defer s.setState(sess, models.StateDownloading)
		return s.applyRemoteDeletion(ctx, sess, change)
	}

	disabled, err := s.store.IsSyncDisabled(ctx, s.targetID, change.ID)
	if err != nil {
		return fmt.Errorf("check disabled %s: %w", change.ID, err)
	}
	if disabled {
		sess.unread[change.Path] = change
		return nil
	}

	info, err := s.store.SyncInfo(ctx, s.targetID, change.ID)
	if err != nil {
		return fmt.Errorf("load sync info %s: %w", change.ID, err)
	}
	if info != nil && change.UpdatedTime != 0 && info.RemoteTime == change.UpdatedTime {
		// Applied by an earlier session that did not get to save its context.
		return nil
	}

	data, err := s.driver.Get(ctx, change.Path, adapter.GetOptions{})
	if err != nil {
		return fmt.Errorf("get %s: %w", change.Path, err)
	}
	if data == nil {
		// Deleted between listing and reading; the next delta reports it.
		return nil
	}

	remote, envelope, err := s.enc.Deserialize(data)
	if err != nil {
		return s.handleUnreadable(ctx, sess, change, envelope, err)
	}
	sess.inc(models.ActionFetched, remote.Type)

	synced := models.SyncInfo{SyncTime: remote.UpdatedTime, RemoteTime: change.UpdatedTime}

	local, err := s.store.LoadItem(ctx, remote.ID)
	if err != nil {
		return fmt.Errorf("load local %s: %w", remote.ID, err)
	}

	switch {
	case local == nil:
		if _, ok := sess.deleted[remote.ID]; ok {
			// The local deletion is pushed later in this session.
			sess.inc(models.ActionSkipped, remote.Type)
			return nil
		}
		if err = s.store.UpsertRemote(ctx, remote); err != nil {
			return fmt.Errorf("create local %s: %w", remote.ID, err)
		}
		sess.inc(models.ActionCreateLocal, remote.Type)
		s.enqueueResource(remote, envelope)

	case local.UpdatedTime == remote.UpdatedTime:
		sess.inc(models.ActionSkipped, remote.Type)

	case !localChanged(*local, info):
		if err = s.store.UpsertRemote(ctx, remote); err != nil {
			return fmt.Errorf("update local %s: %w", remote.ID, err)
		}
		sess.inc(models.ActionUpdateLocal, remote.Type)
		s.enqueueResource(remote, envelope)

	default:
		// Both sides changed: the local copy stays canonical and is pushed
		// later; the remote copy is kept verbatim as a conflict.
		if err = s.saveConflict(ctx, sess, remote); err != nil {
			return err
		}
		synced.SyncTime = 0
		if info != nil {
			synced.SyncTime = info.SyncTime
		}
	}

	if err = s.store.MarkSynced(ctx, s.targetID, remote.ID, synced); err != nil {
		return fmt.Errorf("mark synced %s: %w", remote.ID, err)
	}
	return nil
}

// handleUnreadable deals with an item that could not be decoded or
// decrypted. Only that item is skipped; it stays in the context as unread so
// it is pulled again.
func (s *Synchronizer) handleUnreadable(ctx context.Context, sess *session, change models.DeltaItem, envelope models.Item, cause error) error {
	sess.unread[change.Path] = change

	if keyID, ok := isKeyNotLoaded(cause); ok {
		if err := s.store.QueueDecryption(ctx, change.ID, keyID); err != nil {
			return fmt.Errorf("queue decryption %s: %w", change.ID, err)
		}
		sess.inc(models.ActionKeyNotLoaded, envelope.Type)
		s.logger.Info().
			Str("func", "Synchronizer.handleUnreadable").
			Str("item_id", change.ID).
			Str("key_id", keyID).
			Msg("master key not loaded, item queued for decryption")
		return nil
	}

	if errors.Is(cause, ErrDecryptionFailed) {
		disabled, err := s.store.RecordDecryptionFailure(ctx, s.targetID, change.ID, s.maxDecryptionAttempts)
		if err != nil {
			return fmt.Errorf("record decryption failure %s: %w", change.ID, err)
		}
		sess.inc(models.ActionDecryptFailed, envelope.Type)
		s.logger.Warn().Err(cause).
			Str("func", "Synchronizer.handleUnreadable").
			Str("item_id", change.ID).
			Bool("disabled", disabled).
			Msg("could not decrypt item")
		return nil
	}

	// Malformed content is not retried within the session and does not
	// stop it either.
	sess.report.Errors = append(sess.report.Errors, fmt.Errorf("decode %s: %w", change.Path, cause))
	sess.inc(models.ActionSkipped, envelope.Type)
	s.logger.Warn().Err(cause).
		Str("func", "Synchronizer.handleUnreadable").
		Str("path", change.Path).
		Msg("skipping malformed item")
	return nil
}

func (s *Synchronizer) saveConflict(ctx context.Context, sess *session, remote models.Item) error {
	copied := remote
	copied.ID = s.ids.Generate()
	conflict := models.Conflict{OriginalID: remote.ID, Item: copied}

	if err := s.store.SaveConflict(ctx, conflict); err != nil {
		return fmt.Errorf("save conflict for %s: %w", remote.ID, err)
	}
	sess.report.Conflicts = append(sess.report.Conflicts, conflict)
	sess.inc(models.ActionConflict, remote.Type)

	s.logger.Info().
		Str("func", "Synchronizer.saveConflict").
		Str("item_id", remote.ID).
		Str("conflict_id", copied.ID).
		Msg("remote copy saved as conflict")
	return nil
}

func (s *Synchronizer) applyRemoteDeletion(ctx context.Context, sess *session, change models.DeltaItem) error {
	local, err := s.store.LoadItem(ctx, change.ID)
	if err != nil {
		return fmt.Errorf("load local %s: %w", change.ID, err)
	}
	if local == nil {
		// Only bookkeeping such as a queued decryption is left.
		if err = s.store.DeleteLocal(ctx, s.targetID, change.ID); err != nil {
			return fmt.Errorf("delete local %s: %w", change.ID, err)
		}
		return nil
	}

	info, err := s.store.SyncInfo(ctx, s.targetID, change.ID)
	if err != nil {
		return fmt.Errorf("load sync info %s: %w", change.ID, err)
	}
	if localChanged(*local, info) {
		// Keep the local edit; it is pushed again below.
		sess.inc(models.ActionSkipped, local.Type)
		return nil
	}

	if err = s.store.DeleteLocal(ctx, s.targetID, change.ID); err != nil {
		return fmt.Errorf("delete local %s: %w", change.ID, err)
	}
	sess.inc(models.ActionDeleteLocal, local.Type)
	return nil
}

func (s *Synchronizer) pushChanges(ctx context.Context, sess *session, dc *DeltaContext) error {
	s.setState(sess, models.StateUploading)

	items, err := s.store.ChangedItems(ctx, s.targetID)
	if err != nil {
		return fmt.Errorf("load local changes: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	keyID, err := s.enc.ActiveKeyID()
	if err != nil {
		return err
	}

	for _, item := range items {
		if err = s.checkCancel(ctx, sess); err != nil {
			return err
		}

		if _, ok := sess.unread[item.Path()]; ok {
			// The remote copy was not read and must not be overwritten.
			sess.inc(models.ActionSkipped, item.Type)
			s.logger.Info().
				Str("func", "Synchronizer.pushChanges").
				Str("item_id", item.ID).
				Msg("local change held back until the remote copy can be read")
			continue
		}

		info, err := s.store.SyncInfo(ctx, s.targetID, item.ID)
		if err != nil {
			return fmt.Errorf("load sync info %s: %w", item.ID, err)
		}

		if item.Type == models.TypeResource {
			if err = s.pushBlob(ctx, item, keyID); err != nil {
				return err
			}
		}

		data, err := s.enc.Serialize(item)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", item.ID, err)
		}

		p := item.Path()
		if err = s.driver.Put(ctx, p, data, adapter.PutOptions{}); err != nil {
			return fmt.Errorf("put %s: %w", p, err)
		}

		stat, err := s.driver.Stat(ctx, p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		var remoteTime int64
		if stat != nil {
			remoteTime = stat.UpdatedTime
		}

		if err = s.store.MarkSynced(ctx, s.targetID, item.ID, models.SyncInfo{SyncTime: item.UpdatedTime, RemoteTime: remoteTime}); err != nil {
			return fmt.Errorf("mark synced %s: %w", item.ID, err)
		}
		dc.Record(p, remoteTime)

		if info == nil {
			sess.inc(models.ActionCreateRemote, item.Type)
		} else {
			sess.inc(models.ActionUpdateRemote, item.Type)
		}
	}
	return nil
}

// pushBlob uploads a resource's content before its metadata item. The blob
// is encrypted when the item itself is.
func (s *Synchronizer) pushBlob(ctx context.Context, item models.Item, keyID string) error {
	if s.blobs == nil {
		return nil
	}

	local := s.blobs.BlobPath(item.ID)
	remote := models.ResourceBlobPath(item.ID)

	if _, err := s.blobs.FS().Stat(local); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug().Str("func", "Synchronizer.pushBlob").Str("item_id", item.ID).Msg("resource has no local blob")
			return nil
		}
		return fmt.Errorf("stat blob %s: %w", local, err)
	}

	if keyID == "" {
		err := s.driver.Put(ctx, remote, nil, adapter.PutOptions{
			Source:    adapter.SourceFile,
			LocalFS:   s.blobs.FS(),
			LocalPath: local,
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", remote, err)
		}
		return nil
	}

	content, err := util.ReadFile(s.blobs.FS(), local)
	if err != nil {
		return fmt.Errorf("read blob %s: %w", local, err)
	}
	sealed, err := s.enc.EncryptBlob(keyID, content)
	if err != nil {
		return err
	}
	if err = s.driver.Put(ctx, remote, sealed, adapter.PutOptions{}); err != nil {
		return fmt.Errorf("put %s: %w", remote, err)
	}
	return nil
}

func (s *Synchronizer) pushDeletions(ctx context.Context, sess *session, dc *DeltaContext) error {
	s.setState(sess, models.StateDeletingRemote)

	deleted, err := s.store.DeletedItems(ctx, s.targetID)
	if err != nil {
		return fmt.Errorf("load local deletions: %w", err)
	}

	for _, d := range deleted {
		if err = s.checkCancel(ctx, sess); err != nil {
			return err
		}

		p := models.ItemPath(d.ID)
		if err = s.driver.Delete(ctx, p); err != nil {
			return fmt.Errorf("delete %s: %w", p, err)
		}
		if d.Type == models.TypeResource {
			if err = s.driver.Delete(ctx, models.ResourceBlobPath(d.ID)); err != nil {
				return fmt.Errorf("delete blob of %s: %w", d.ID, err)
			}
		}

		if err = s.store.ClearDeleted(ctx, s.targetID, d.ID); err != nil {
			return fmt.Errorf("clear deletion %s: %w", d.ID, err)
		}
		dc.Forget(p)
		sess.inc(models.ActionDeleteRemote, d.Type)
	}
	return nil
}

func (s *Synchronizer) enqueueResource(item, envelope models.Item) {
	if s.fetcher == nil || item.Type != models.TypeResource {
		return
	}
	s.fetcher.Enqueue(ResourceRequest{ID: item.ID, KeyID: envelope.EncryptionKeyID})
}

// checkCancel is called between items.
func (s *Synchronizer) checkCancel(ctx context.Context, sess *session) error {
	if s.cancelled.Load() {
		s.setState(sess, models.StateCancelling)
		return ErrSessionCancelled
	}
	if err := ctx.Err(); err != nil {
		s.setState(sess, models.StateCancelling)
		return err
	}
	return nil
}

func (s *Synchronizer) setState(sess *session, state models.SyncState) {
	s.state.Store(state)
	sess.report.State = state
	sess.notifier.notify(sess.report)
}

// localChanged reports whether the local copy was edited after its last sync.
func localChanged(local models.Item, info *models.SyncInfo) bool {
	return info == nil || local.UpdatedTime != info.SyncTime
}
