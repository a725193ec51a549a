package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// TodayTarget is what the refresher drives; session.Binding satisfies it.
type TodayTarget interface {
	RefreshToday(ctx context.Context) bool
}

// TodayRefresher re-fetches the current item of every Today list on a
// ticker and whenever the manual trigger fires.
type TodayRefresher struct {
	target        TodayTarget
	logger        logger.Logger
	interval      time.Duration
	manualTrigger chan struct{}
	stopCh        chan struct{}
	stopOnce      sync.Once
	started       atomic.Bool
	done          chan struct{}
}

// NewTodayRefresher creates a refresher. A zero interval disables the
// ticker; the manual trigger still works.
func NewTodayRefresher(
	target TodayTarget,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *TodayRefresher {
	return &TodayRefresher{
		target:        target,
		logger:        log.With(logger.String("component", "today_refresher")),
		interval:      interval,
		manualTrigger: manualTrigger,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start runs the refresh loop in the background until Stop or ctx ends.
func (tr *TodayRefresher) Start(ctx context.Context) {
	if !tr.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(tr.done)

		var tick <-chan time.Time
		if tr.interval > 0 {
			ticker := time.NewTicker(tr.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				tr.Refresh(ctx)
			case <-tr.manualTrigger:
				tr.logger.Info("manual today refresh triggered")
				tr.Refresh(ctx)
			case <-tr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit. Safe to call twice.
func (tr *TodayRefresher) Stop() {
	tr.stopOnce.Do(func() { close(tr.stopCh) })
	if tr.started.Load() {
		<-tr.done
	}
}

// Refresh issues one refresh and reports whether a session was loaded.
func (tr *TodayRefresher) Refresh(ctx context.Context) bool {
	if !tr.target.RefreshToday(ctx) {
		tr.logger.Debug("no session loaded, skipping today refresh")
		return false
	}
	tr.logger.Debug("today refresh issued")
	return true
}

// Trigger asks for an immediate refresh without blocking. It returns false
// when a request is already queued.
func Trigger(ch chan<- struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}
