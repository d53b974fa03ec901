package archive

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
)

// ErrAllocationPersist means the incremented counter could not be stored.
// The number must not be shown or attached to a record; the call is safe
// to retry.
var ErrAllocationPersist = errors.New("book number counter not persisted")

var bookNumberRe = regexp.MustCompile(`^CN\s*(\d+)$`)

// FormatBookNumber renders the registry form of a book number, e.g.
// FormatBookNumber(42) == "CN 000042".
func FormatBookNumber(n int64) string {
	return fmt.Sprintf("CN %06d", n)
}

// ParseBookNumber extracts the numeric value from a "CN <digits>" book
// number. Strings in any other shape report ok=false; they are ignored
// during reconciliation, not treated as errors.
func ParseBookNumber(s string) (int64, bool) {
	m := bookNumberRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ReconcileCounter returns the starting counter value: the persisted value
// or the highest number found among existing records, whichever is larger.
// Imported rows can carry numbers the counter was never incremented for,
// so the counter must never start below what is already in use.
func ReconcileCounter(persisted int64, existingNumbers []string) int64 {
	max := persisted
	for _, s := range existingNumbers {
		if n, ok := ParseBookNumber(s); ok && n > max {
			max = n
		}
	}
	return max
}

// CounterStore is the durable holder of the last-issued book number.
type CounterStore interface {
	Load(ctx context.Context) (int64, error)
	Store(ctx context.Context, value int64) error
}

// AtomicCounterStore is implemented by stores that can increment the
// counter server-side in a single step. Required for multi-process
// deployments; a plain CounterStore is only safe behind a single
// Allocator instance.
type AtomicCounterStore interface {
	CounterStore
	Increment(ctx context.Context) (int64, error)
}

// Allocator issues unique, strictly increasing book numbers. The durable
// store is authoritative; the in-process value is a hint kept under the
// mutex.
type Allocator struct {
	mu      sync.Mutex
	store   CounterStore
	current int64
}

// NewAllocator loads the persisted counter, reconciles it against the
// book numbers already present in the record set, and persists the
// reconciled value if it moved forward.
func NewAllocator(ctx context.Context, store CounterStore, existingNumbers []string) (*Allocator, error) {
	persisted, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load counter: %w", err)
	}
	current := ReconcileCounter(persisted, existingNumbers)
	if current > persisted {
		if err := store.Store(ctx, current); err != nil {
			return nil, fmt.Errorf("store reconciled counter: %w", err)
		}
	}
	return &Allocator{store: store, current: current}, nil
}

// Next allocates the next book number and returns both the raw value and
// its formatted form. The new counter value is persisted before the
// number is handed out; on a persist failure nothing is mutated and the
// caller must retry rather than reuse any number.
func (a *Allocator) Next(ctx context.Context) (int64, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.store.(AtomicCounterStore); ok {
		value, err := s.Increment(ctx)
		if err != nil {
			return 0, "", fmt.Errorf("%w: %v", ErrAllocationPersist, err)
		}
		if value > a.current {
			a.current = value
		}
		return value, FormatBookNumber(value), nil
	}

	next := a.current + 1
	if err := a.store.Store(ctx, next); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrAllocationPersist, err)
	}
	a.current = next
	return next, FormatBookNumber(next), nil
}

// Current returns the last issued value. Diagnostic only.
func (a *Allocator) Current() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}
