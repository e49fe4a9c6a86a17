// Package worker runs the periodic jobs of the edge process.
package worker

import (
	"context"
	"errors"
	"time"

	"spendwise/internal/log"
	"spendwise/internal/offline"
)

// Updater refreshes the precached shell and reports how many assets failed.
type Updater interface {
	Update(ctx context.Context) (int, error)
}

// UpdateWorker periodically asks the registration to refresh its precache,
// the way a browser rechecks a registered controller.
type UpdateWorker struct {
	updater  Updater
	interval time.Duration
	logger   *log.Logger
}

func NewUpdateWorker(updater Updater, interval time.Duration, logger *log.Logger) *UpdateWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &UpdateWorker{
		updater:  updater,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run checks for updates every interval until ctx is done.
func (w *UpdateWorker) Run(ctx context.Context) {
	w.logger.InfoContext(ctx, "Update worker started", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Update worker stopped")
			return
		case <-ticker.C:
			_ = w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single update check. Having no active controller yet is
// not an error.
func (w *UpdateWorker) RunOnce(ctx context.Context) error {
	start := time.Now()
	failed, err := w.updater.Update(ctx)
	switch {
	case errors.Is(err, offline.ErrNoController):
		w.logger.DebugContext(ctx, "No active controller, skipping update")
		return nil
	case err != nil:
		w.logger.ErrorContext(ctx, "Update check failed", log.FieldError, err)
		return err
	}

	if failed > 0 {
		w.logger.WarnContext(ctx, "Update check completed with failures",
			log.FieldCount, failed, log.FieldDuration, time.Since(start).Milliseconds())
		return nil
	}
	w.logger.InfoContext(ctx, "Update check completed",
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
