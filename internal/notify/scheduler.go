package notify

import (
	"log/slog"
	"time"
)

// Scheduler runs delayed fire-and-forget tasks, decoupled from the
// request/response lifecycle. Task failures are logged, never escalated to
// the caller.
type Scheduler struct {
	logger *slog.Logger
}

// NewScheduler builds a scheduler logging task failures to the given logger.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Schedule runs task after delay on its own goroutine. The caller does not
// wait and is never informed of the outcome; task returns an error only so
// it can be logged.
func (s *Scheduler) Schedule(delay time.Duration, name string, task func() error) {
	time.AfterFunc(delay, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduled task panicked", "task", name, "panic", r)
			}
		}()
		if err := task(); err != nil {
			s.logger.Warn("scheduled task failed", "task", name, "error", err)
		}
	})
}
