package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-note-sync/internal/adapter"
	"github.com/MKhiriev/go-note-sync/internal/client"
	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/crypto"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/internal/store"
	"github.com/MKhiriev/go-note-sync/internal/tui"
	"github.com/MKhiriev/go-note-sync/internal/utils"
	"github.com/MKhiriev/go-note-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	fmt.Println(tui.RenderBuildInfo(models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)))

	cfg, err := config.GetClientConfig()
	if err != nil {
		logger.NewClientLogger("go-note-sync", "info").Fatal().Err(err).Msg("error getting configs")
	}
	log := logger.NewClientLogger("go-note-sync", cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storages, err := store.NewClientStorages(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}
	defer storages.Close()

	clientID := cfg.App.ClientID
	if clientID == "" {
		if clientID, err = storages.Settings.ClientID(ctx, utils.NewIDGenerator().Generate); err != nil {
			log.Fatal().Err(err).Msg("resolve client id")
		}
	}

	keys := crypto.NewKeyChain()
	if err = client.UnlockKeys(ctx, storages.Items, keys, cfg.App.MasterPassword, cfg.Sync.EncryptionEnabled, log); err != nil {
		log.Fatal().Err(err).Msg("unlock master keys")
	}

	driver, caps, err := adapter.NewRegistry().Open(cfg.Target, cfg.Sync, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open sync target")
	}

	app, err := client.NewApp(client.Deps{
		Config:       cfg,
		ClientID:     clientID,
		Storages:     storages,
		Driver:       driver,
		Capabilities: caps,
		Keys:         keys,
		Out:          os.Stdout,
		Logger:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = app.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}
