// Package worker keeps the merged article feed warm in the background.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yangwenmai/blockpress/internal/store"
)

// Refresher reloads the dynamic article list.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// StatusCounter reports how many articles are in each lifecycle state.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (store.StatusCounts, error)
}

// Worker periodically refreshes the feed cache so list requests rarely wait on
// the dynamic source.
type Worker struct {
	refresher Refresher
	counter   StatusCounter
	interval  time.Duration
}

// DefaultInterval replaces a non-positive polling interval.
const DefaultInterval = time.Minute

// New creates a new Worker. counter may be nil.
func New(refresher Refresher, counter StatusCounter, interval time.Duration) *Worker {
	if interval <= 0 {
		slog.Warn("non-positive refresh interval, using default", "interval", interval.String(), "default", DefaultInterval.String())
		interval = DefaultInterval
	}
	return &Worker{refresher: refresher, counter: counter, interval: interval}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("feed refresher started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("feed refresher stopped")
			return
		default:
		}

		w.tick(ctx)
		w.sleep(ctx)
	}
}

func (w *Worker) tick(ctx context.Context) {
	if err := w.refresher.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("feed refresh failed", "error", err)
		return
	}
	if w.counter == nil {
		return
	}
	counts, err := w.counter.CountByStatus(ctx)
	if err != nil {
		slog.Warn("count articles", "error", err)
		return
	}
	slog.Debug("feed refreshed", "drafts", counts.Draft, "published", counts.Published)
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.interval):
	}
}
