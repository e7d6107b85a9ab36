package worker

import (
	"context"
	"sync"
	"time"

	"contest-engine/internal/service"

	"github.com/rs/zerolog"
)

type RotationWorker struct {
	service  service.RotationService
	interval time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
	wg       *sync.WaitGroup
	running  sync.Mutex
}

func NewRotationWorker(svc service.RotationService, interval time.Duration, logger zerolog.Logger) *RotationWorker {
	return &RotationWorker{
		service:  svc,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		wg:       &sync.WaitGroup{},
	}
}

func (w *RotationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info().Dur("interval", w.interval).Msg("Rotation worker started")

		for {
			select {
			case <-ticker.C:
				w.rotate(ctx)
			case <-w.stopChan:
				w.logger.Info().Msg("Rotation worker stopping")
				return
			case <-ctx.Done():
				w.logger.Info().Msg("Rotation worker stopping (context done)")
				return
			}
		}
	}()
}

// rotate skips a tick when the previous rotation is still in flight.
func (w *RotationWorker) rotate(ctx context.Context) {
	if !w.running.TryLock() {
		w.logger.Warn().Msg("Previous rotation still running, skipping tick")
		return
	}
	defer w.running.Unlock()

	w.logger.Debug().Msg("Running daily rotation")
	if err := w.service.RotateDailyContest(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Failed to rotate daily contest")
	}
}

func (w *RotationWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}
