package curation

import (
	"log/slog"
	"time"

	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
)

// StartBackgroundScheduler launches a goroutine that runs a curation pass
// every interval, with the first run delayed to avoid competing with
// startup work. Returns a stop function; returns a no-op stop if interval
// is non-positive. Interval is clamped to a 60-second floor, and the first
// run delay is capped at 60 seconds, matching the original scheduler's
// bounds.
func StartBackgroundScheduler(repo *store.HistoryRepo, cfg Config, interval time.Duration, logger *slog.Logger) (stop func()) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		return func() {}
	}
	if interval < 60*time.Second {
		interval = 60 * time.Second
	}
	firstRunDelay := interval
	if firstRunDelay > 60*time.Second {
		firstRunDelay = 60 * time.Second
	}

	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(firstRunDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
			runAndLog(repo, cfg, logger)
		case <-done:
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runAndLog(repo, cfg, logger)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}

func runAndLog(repo *store.HistoryRepo, cfg Config, logger *slog.Logger) {
	result, err := Run(repo, cfg)
	if err != nil {
		logger.Error("curation pass failed", "error", err)
		return
	}
	logger.Info("curation pass complete",
		"weights_updated", result.WeightsUpdated,
		"excluded", result.Excluded,
		"deleted", result.Deleted,
	)
}
