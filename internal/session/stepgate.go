package session

import "time"

// StepGate enforces the minimum per-step dwell time. It is a pure check
// against the server timestamp at which the step became current; nothing
// the client reports about elapsed time is consulted.
type StepGate struct{}

// Satisfied reports whether the required dwell has elapsed for the current step
func (StepGate) Satisfied(stepStartedAt time.Time, required time.Duration, now time.Time) bool {
	return now.Sub(stepStartedAt) >= required
}

// Remaining returns how much dwell time is still owed; zero when satisfied
func (StepGate) Remaining(stepStartedAt time.Time, required time.Duration, now time.Time) time.Duration {
	remaining := required - now.Sub(stepStartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
