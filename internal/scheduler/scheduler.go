package scheduler

import "time"

// Handle refers to a scheduled one-shot wake-up. Cancel is best-effort: a
// callback already in flight may still run, and cancelling after it has
// fired is a safe no-op. Cancel reports whether the callback was stopped
// before running.
type Handle interface {
	Cancel() bool
}

// Scheduler delivers delayed one-shot wake-ups.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Handle
}

// TimeScheduler implements Scheduler on the runtime timer heap. Callbacks
// run on their own goroutine, so callers that need serialization must
// enqueue into their own processing stream.
type TimeScheduler struct{}

// NewTimeScheduler creates a TimeScheduler.
func NewTimeScheduler() *TimeScheduler {
	return &TimeScheduler{}
}

// Schedule runs fn once after d.
func (s *TimeScheduler) Schedule(d time.Duration, fn func()) Handle {
	return timerHandle{timer: time.AfterFunc(d, fn)}
}

type timerHandle struct {
	timer *time.Timer
}

func (h timerHandle) Cancel() bool {
	return h.timer.Stop()
}
