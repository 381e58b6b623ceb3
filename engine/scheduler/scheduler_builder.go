package scheduler

import "time"

// SchedulerBuilderOption is a function that modifies the scheduler
// configuration. They are applied in NewScheduler via the option-builder
// pattern.
type SchedulerBuilderOption func(*scheduler)

// WithStallWarning sets the watchdog threshold for handshake waits. A wait
// exceeding the threshold logs a warning naming the blocked participant, its
// state, and the generation, then keeps waiting. Pass 0 to disable the
// watchdog entirely.
//
// Parameters:
//   - d: the stall threshold (0 disables stall warnings)
//
// Returns:
//   - SchedulerBuilderOption: the configured option
func WithStallWarning(d time.Duration) SchedulerBuilderOption {
	return func(s *scheduler) {
		if d >= 0 {
			s.stallWarning = d
		}
	}
}
