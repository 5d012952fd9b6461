package devices

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is used when PollWatcher.Interval is zero.
const DefaultPollInterval = 2 * time.Second

// PollWatcher turns any Enumerator into a Watcher by comparing device-set
// fingerprints at a fixed interval. Notifications that the receiver has not
// consumed yet are coalesced.
type PollWatcher struct {
	Enumerator Enumerator
	Interval   time.Duration
	Logger     *slog.Logger
}

// Watch starts polling and returns the notification channel.
func (w PollWatcher) Watch(ctx context.Context) <-chan struct{} {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)

		last, known := w.fingerprint(ctx, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			fp, ok := w.fingerprint(ctx, logger)
			if !ok {
				continue
			}
			if known && fp == last {
				continue
			}

			last, known = fp, true
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()

	return ch
}

func (w PollWatcher) fingerprint(ctx context.Context, logger *slog.Logger) (string, bool) {
	list, err := w.Enumerator.Enumerate(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.DebugContext(ctx, "device poll failed", "error", err)
		}
		return "", false
	}
	return Fingerprint(list), true
}
