package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/medward/triage-server/internal/platform/logger"
)

// checkInterval is how often the watcher looks for expired cases. Coarse on
// purpose: elapsed time is a scoring input, not a scheduling deadline.
const checkInterval = 1 * time.Second

// DeadlineWatcher enforces the round deadline. It knows nothing about
// scoring; it only asks the engine to resolve whatever has expired.
type DeadlineWatcher struct {
	engine   *Engine
	logger   *logger.Logger
	stopChan chan struct{}
}

// NewDeadlineWatcher creates a watcher for the given engine.
func NewDeadlineWatcher(e *Engine, log *logger.Logger) *DeadlineWatcher {
	return &DeadlineWatcher{
		engine:   e,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the watch loop. Call in a goroutine.
func (w *DeadlineWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Deadline watcher stopped by context.")
			return
		case <-w.stopChan:
			w.logger.Info("Deadline watcher stopped manually.")
			return
		case <-ticker.C:
			if forced := w.engine.ResolveExpired(); forced > 0 {
				w.logger.Warn(fmt.Sprintf("Round deadline passed, %d case(s) scored as misdiagnosis", forced))
			}
		}
	}
}

// Stop gracefully stops the watcher.
func (w *DeadlineWatcher) Stop() {
	close(w.stopChan)
}
