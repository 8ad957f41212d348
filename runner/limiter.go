package runner

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMaxSteps is the sentinel for a run that exhausted its model-call budget.
// The reported error wraps it together with the configured limit.
var ErrMaxSteps = errors.New("max steps exceeded")

// stepLimiter enforces the maximum number of model calls per run.
type stepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// newStepLimiter creates a limiter with a max number of steps.
// If max == 0, unlimited steps are allowed.
func newStepLimiter(max int) *stepLimiter {
	return &stepLimiter{max: max}
}

// increment consumes one step and reports ErrMaxSteps once the budget is
// exceeded.
func (sl *stepLimiter) increment() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.count++
	if sl.max > 0 && sl.count > sl.max {
		return fmt.Errorf("%w: %d", ErrMaxSteps, sl.max)
	}

	return nil
}

// steps returns the number of steps consumed so far.
func (sl *stepLimiter) steps() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.count
}

// remaining returns how many steps are left before hitting the limit.
func (sl *stepLimiter) remaining() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max == 0 {
		return -1 // unlimited
	}

	return sl.max - sl.count
}
