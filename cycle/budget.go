package cycle

import (
	"sync"
	"time"
)

// Budget is consulted by the enumerator (and shared across SCCs processed
// concurrently within one orchestrator pipeline run) to cap total cycles and
// wall-clock time. It is safe for concurrent use.
type Budget struct {
	mu               sync.Mutex
	remainingCycles  int
	deadline         time.Time
	truncated        bool
}

// NewBudget creates a budget allowing up to maxCycles total candidates
// across every SCC processed by this pipeline run, expiring at timeout.
func NewBudget(maxCycles int, timeout time.Duration) *Budget {
	return &Budget{
		remainingCycles: maxCycles,
		deadline:        time.Now().Add(timeout),
	}
}

// TryConsume reports whether one more cycle may be emitted. It returns false
// (and marks the budget truncated) once cycles or time are exhausted.
func (b *Budget) TryConsume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.remainingCycles <= 0 || time.Now().After(b.deadline) {
		b.truncated = true
		return false
	}
	b.remainingCycles--
	return true
}

// Exhausted reports, without consuming anything, whether cycles or time have
// run out or the budget was already marked truncated.
func (b *Budget) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remainingCycles <= 0 || time.Now().After(b.deadline) || b.truncated
}

// Truncated reports whether the budget was ever exhausted mid-run.
func (b *Budget) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
