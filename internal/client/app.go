package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/app"
	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/crypto"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/internal/service"
	"github.com/MKhiriev/go-note-sync/internal/store"
	"github.com/MKhiriev/go-note-sync/internal/tui"
	"github.com/MKhiriev/go-note-sync/internal/workers"
	"github.com/MKhiriev/go-note-sync/models"
)

// Deps is everything the client runtime is built from.
type Deps struct {
	Config       *config.ClientConfig
	ClientID     string
	Storages     *store.ClientStorages
	Driver       adapter.Driver
	Capabilities adapter.Capabilities
	Keys         *crypto.KeyChain
	Out          io.Writer
	Logger       *logger.Logger
}

type App struct {
	syncer  *service.Synchronizer
	workers *workers.Workers
	items   *store.ItemStore
	out     io.Writer

	logger *logger.Logger
}

func NewApp(deps Deps) (*App, error) {
	if deps.Config == nil || deps.Storages == nil || deps.Driver == nil || deps.Keys == nil {
		return nil, errors.New("client app: missing dependency")
	}

	cfg := deps.Config
	log := deps.Logger.WithTarget(cfg.Target.ID, deps.ClientID)

	fetcher := service.NewResourceFetcher(
		deps.Driver,
		deps.Storages.Blobs,
		service.NewEncryptionService(deps.Keys, cfg.Sync.EncryptionEnabled),
		cfg.Workers.ResourceFetchConcurrency,
		log,
	)

	syncer := service.NewSynchronizer(service.SessionDeps{
		TargetID:     cfg.Target.ID,
		ClientID:     deps.ClientID,
		Driver:       deps.Driver,
		Capabilities: deps.Capabilities,
		Store:        deps.Storages.Items,
		Contexts:     deps.Storages.Contexts,
		Keys:         deps.Keys,
		Blobs:        deps.Storages.Blobs,
		Fetcher:      fetcher,
		Observer:     tui.NewPrinter(deps.Out),
		Sync:         cfg.Sync,
		Logger:       log,
	})

	job := service.NewSyncJob(syncer, cfg.Workers.SyncInterval, log)

	return &App{
		syncer:  syncer,
		workers: workers.NewWorkers(log, fetcher, job),
		items:   deps.Storages.Items,
		out:     deps.Out,
		logger:  log,
	}, nil
}

// Run syncs once, then keeps the periodic job and the resource fetcher
// running until ctx is done. A failed first sync is reported and does not
// stop the client.
func (a *App) Run(ctx context.Context) error {
	if pending, err := a.items.PendingDecryption(ctx); err != nil {
		a.logger.Warn().Err(err).Str("func", "App.Run").Msg("could not read decryption queue")
	} else if len(pending) > 0 {
		a.logger.Info().Str("func", "App.Run").Int("items", len(pending)).Msg("items are waiting for a master key")
	}

	if _, err := a.SyncOnce(ctx); err != nil {
		a.logger.Warn().Err(err).Str("func", "App.Run").Msg("initial sync failed")
	}

	a.workers.Start(ctx)
	defer a.workers.Stop()

	<-ctx.Done()
	return nil
}

// SyncOnce runs one session and prints its report. A target with an older
// layout is upgraded and the session retried once.
func (a *App) SyncOnce(ctx context.Context) (models.SyncReport, error) {
	report, err := a.syncer.Start(ctx, service.SessionOptions{})

	var versionErr *service.VersionMismatchError
	if errors.As(err, &versionErr) && versionErr.NeedsUpgrade() {
		a.logger.Info().
			Str("func", "App.SyncOnce").
			Int("target_version", versionErr.TargetVersion).
			Msg("upgrading target layout")

		if _, upErr := a.syncer.Migrations().Upgrade(ctx); upErr != nil {
			err = fmt.Errorf("%w: %w", err, upErr)
		} else {
			report, err = a.syncer.Start(ctx, service.SessionOptions{})
		}
	}

	if err != nil {
		fmt.Fprintln(a.out, tui.RenderError(err, Hint(err)))
		return report, err
	}

	fmt.Fprintln(a.out, tui.RenderReport(report))
	return report, nil
}

// Hint returns the operator message for a session failure.
func Hint(err error) string {
	switch service.Classify(err) {
	case service.KindNetwork:
		return app.MsgNetworkFailure
	case service.KindAuth:
		return app.MsgAuthFailure
	case service.KindLockContention:
		return app.MsgLockContention
	case service.KindKeyUnavailable:
		return app.MsgKeyUnavailable
	case service.KindVersionMismatch:
		var versionErr *service.VersionMismatchError
		if errors.As(err, &versionErr) && !versionErr.NeedsUpgrade() {
			return app.MsgClientTooOld
		}
		return app.MsgTargetNeedsUpgrade
	case service.KindCancelled:
		return app.MsgCancelled
	default:
		return app.MsgInternalError
	}
}
