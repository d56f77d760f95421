// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired rows are purged.
const DefaultSweepInterval = 5 * time.Minute

// PurgeHook observes rows removed by a sweep. kind is "session" or "otp".
type PurgeHook func(kind string, count int64)

// ExpiryWorker periodically deletes expired sessions and one-time passwords.
// Validation never depends on it; an expired row is rejected whether or not
// it has been swept.
type ExpiryWorker struct {
	sessions SessionRepository
	otps     OTPRepository
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time
	onPurge  PurgeHook

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewExpiryWorker creates a worker. A non-positive interval selects
// DefaultSweepInterval.
func NewExpiryWorker(sessions SessionRepository, otps OTPRepository, interval time.Duration) *ExpiryWorker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ExpiryWorker{
		sessions: sessions,
		otps:     otps,
		interval: interval,
		logger:   slog.Default(),
		clock:    time.Now,
	}
}

// WithLogger sets the worker's logger.
func (w *ExpiryWorker) WithLogger(logger *slog.Logger) *ExpiryWorker {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// WithPurgeHook sets a callback invoked after each non-empty purge.
func (w *ExpiryWorker) WithPurgeHook(hook PurgeHook) *ExpiryWorker {
	w.onPurge = hook
	return w
}

// RunOnce executes a single sweep. Both purges are attempted even if the
// first fails; errors are combined.
func (w *ExpiryWorker) RunOnce(ctx context.Context) error {
	now := w.clock()
	var errs []error

	sessions, err := w.sessions.DeleteExpired(ctx, now)
	if err != nil {
		w.logger.ErrorContext(ctx, "purge expired sessions failed", "error", err)
		errs = append(errs, err)
	} else {
		w.record(ctx, "session", sessions)
	}

	otps, err := w.otps.DeleteExpired(ctx, now)
	if err != nil {
		w.logger.ErrorContext(ctx, "purge expired one time passwords failed", "error", err)
		errs = append(errs, err)
	} else {
		w.record(ctx, "otp", otps)
	}

	return errors.Join(errs...)
}

func (w *ExpiryWorker) record(ctx context.Context, kind string, count int64) {
	if count == 0 {
		return
	}
	w.logger.InfoContext(ctx, "purged expired rows", "kind", kind, "count", count)
	if w.onPurge != nil {
		w.onPurge(kind, count)
	}
}

// Start begins periodic sweeping.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker and waits for completion.
func (w *ExpiryWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *ExpiryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.RunOnce(ctx); err != nil {
		w.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
			}
		}
	}
}
