// internal/activity/memory.go
package activity

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 500

// MemoryJournal keeps the most recent events in a fixed size ring.
type MemoryJournal struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewMemoryJournal creates a journal holding up to capacity events. A
// non-positive capacity selects the default of 500.
func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryJournal{events: make([]Event, capacity)}
}

func (j *MemoryJournal) Record(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.events[j.next] = event
	j.next = (j.next + 1) % len(j.events)
	if j.next == 0 {
		j.full = true
	}
	return nil
}

func (j *MemoryJournal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	size := j.next
	if j.full {
		size = len(j.events)
	}
	limit = min(limit, size)

	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + len(j.events)) % len(j.events)
		out = append(out, j.events[idx])
	}
	return out, nil
}
