package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

// LibraryTarget re-reads the signed-in user's library from the Gateway.
type LibraryTarget interface {
	Reload(ctx context.Context) error
}

// LibraryReloader picks up changes other writers made to the backend by
// reloading the whole library on an interval.
type LibraryReloader struct {
	target   LibraryTarget
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewLibraryReloader(target LibraryTarget, log logger.Logger, interval time.Duration) *LibraryReloader {
	return &LibraryReloader{
		target:   target,
		logger:   log.With(logger.String("component", "library_reloader")),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic reload. It returns an error for a non-positive
// interval; callers skip the reloader instead.
func (lr *LibraryReloader) Start(ctx context.Context) error {
	if lr.interval <= 0 {
		return errors.New("library reload interval must be positive")
	}

	ticker := time.NewTicker(lr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				lr.Reload(ctx)
			case <-lr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (lr *LibraryReloader) Stop() {
	lr.stopOnce.Do(func() { close(lr.stopCh) })
}

// Reload runs one reload. A missing session is not an error.
func (lr *LibraryReloader) Reload(ctx context.Context) error {
	err := lr.target.Reload(ctx)
	switch {
	case err == nil:
		lr.logger.Debug("library reloaded")
	case errors.Is(err, session.ErrNoSession):
		lr.logger.Debug("no session loaded, skipping library reload")
		return nil
	default:
		lr.logger.Error("library reload failed", logger.Error(err))
	}
	return err
}
