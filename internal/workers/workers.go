package workers

import (
	"context"

	"github.com/MKhiriev/go-note-sync/internal/logger"
)

type Workers struct {
	workers []Worker
	logger  *logger.Logger
}

// NewWorkers groups ws. They are started in the given order and stopped in
// reverse.
func NewWorkers(logger *logger.Logger, ws ...Worker) *Workers {
	return &Workers{workers: ws, logger: logger}
}

func (w *Workers) Start(ctx context.Context) {
	for _, worker := range w.workers {
		worker.Start(ctx)
	}
	if w.logger != nil {
		w.logger.Info().Str("func", "Workers.Start").Int("workers", len(w.workers)).Msg("background workers started")
	}
}

func (w *Workers) Stop() {
	for i := len(w.workers) - 1; i >= 0; i-- {
		w.workers[i].Stop()
	}
	if w.logger != nil {
		w.logger.Info().Str("func", "Workers.Stop").Msg("background workers stopped")
	}
}
