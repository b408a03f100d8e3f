package core

import (
	"sync"
)

// StepLimiter enforces a maximum number of agent cycles per run.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a limiter allowing max cycles.
// If max == 0, unlimited cycles are allowed.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Acquire claims the next cycle. It returns a *StepLimitExceededError once
// the limit has been used up; the counter is not advanced in that case.
func (sl *StepLimiter) Acquire() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max > 0 && sl.count >= sl.max {
		return &StepLimitExceededError{Limit: sl.max}
	}
	sl.count++

	return nil
}

// Count returns the number of cycles claimed so far.
func (sl *StepLimiter) Count() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.count
}

// Remaining returns how many cycles are left before hitting the limit.
func (sl *StepLimiter) Remaining() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max == 0 {
		return -1 // unlimited
	}

	return sl.max - sl.count
}
