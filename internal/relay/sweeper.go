package relay

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper evicts idle pairing sessions on a fixed cadence. The Redis
// store expires sessions through key TTLs, so the sweeper matters for the
// in-memory store and runs as a cheap no-op otherwise.
type Sweeper struct {
	store    Store
	idleTTL  time.Duration
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	now      func() time.Time
}

func NewSweeper(store Store, idleTTL, interval time.Duration, logger *slog.Logger) *Sweeper {
	if idleTTL <= 0 {
		idleTTL = DefaultSessionTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		idleTTL:  idleTTL,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session sweeper started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopped")
			return
		case <-w.stopCh:
			w.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			cutoff := w.now().Add(-w.idleTTL)
			removed, err := w.store.Sweep(ctx, cutoff)
			if err != nil {
				w.logger.Error("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				w.logger.Info("idle sessions swept", "removed", removed)
			}
		}
	}
}

func (w *Sweeper) Stop() {
	close(w.stopCh)
}
