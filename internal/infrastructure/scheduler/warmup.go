// Package scheduler runs the daily refresh that keeps cached reports current.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RefreshFunc recomputes and stores cached results.
type RefreshFunc func(ctx context.Context) error

// WarmupConfig holds configuration for the daily warm-up
type WarmupConfig struct {
	Hour   int
	Minute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
	// Timeout bounds a single refresh
	Timeout time.Duration
}

// DefaultWarmupConfig returns a 2:00 warm-up checked every minute.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Hour:          2,
		Minute:        0,
		CheckInterval: time.Minute,
		Timeout:       10 * time.Minute,
	}
}

// Warmer refreshes cached reports once a day at the configured time.
// Cached results never expire, so without it a period that is still
// receiving sales would keep serving the first result computed for it.
type Warmer struct {
	config  WarmupConfig
	refresh RefreshFunc
	logger  *zap.Logger
	now     func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewWarmer creates a warmer. A nil logger is replaced by a no-op logger.
func NewWarmer(config WarmupConfig, refresh RefreshFunc, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &Warmer{
		config:  config,
		refresh: refresh,
		logger:  logger,
		now:     time.Now,
	}
}

// Start starts the check loop. Calling Start on a running warmer is a no-op.
func (w *Warmer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.wg.Add(1)
	go w.runLoop(ctx)

	w.logger.Info("Cache warm-up scheduled",
		zap.Int("hour", w.config.Hour),
		zap.Int("minute", w.config.Minute),
		zap.Duration("check_interval", w.config.CheckInterval),
	)
	return nil
}

// Stop stops the loop and waits for a running refresh until ctx is done.
func (w *Warmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Cache warm-up stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Warmer) runLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkAndRun(ctx)
		}
	}
}

// checkAndRun runs the refresh when the clock has reached the configured
// time and it has not run yet today. Missed minutes are caught up later the
// same day.
func (w *Warmer) checkAndRun(ctx context.Context) bool {
	now := w.now()
	today := now.Format("2006-01-02")

	w.mu.Lock()
	if w.lastRunDate == today {
		w.mu.Unlock()
		return false
	}
	if now.Hour()*60+now.Minute() < w.config.Hour*60+w.config.Minute {
		w.mu.Unlock()
		return false
	}
	w.lastRunDate = today
	w.mu.Unlock()

	w.RunNow(ctx)
	return true
}

// RunNow refreshes immediately. Failures are logged.
func (w *Warmer) RunNow(ctx context.Context) {
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}

	start := w.now()
	if err := w.refresh(ctx); err != nil {
		w.logger.Error("Cache warm-up failed", zap.Error(err))
		return
	}
	w.logger.Info("Cache warm-up completed", zap.Duration("duration", w.now().Sub(start)))
}
