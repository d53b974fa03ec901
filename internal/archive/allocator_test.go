package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestParseBookNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"CN 000042", 42, true},
		{"CN 000001", 1, true},
		{"CN 123456", 123456, true},
		{"CN 50", 50, true},
		{"CN000050", 50, true},
		{"", 0, false},
		{"GCN 000042", 0, false},
		{"CN abc", 0, false},
		{"42", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseBookNumber(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseBookNumber(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFormatBookNumber(t *testing.T) {
	if got := FormatBookNumber(42); got != "CN 000042" {
		t.Errorf("FormatBookNumber(42) = %q, want %q", got, "CN 000042")
	}
	if got := FormatBookNumber(1234567); got != "CN 1234567" {
		t.Errorf("FormatBookNumber(1234567) = %q, want %q", got, "CN 1234567")
	}
}

func TestReconcileCounter(t *testing.T) {
	got := ReconcileCounter(41, []string{"CN 000050", "CN 000012"})
	if got != 50 {
		t.Fatalf("ReconcileCounter = %d, want 50", got)
	}

	// Persisted value wins when higher.
	if got := ReconcileCounter(99, []string{"CN 000050"}); got != 99 {
		t.Fatalf("ReconcileCounter = %d, want 99", got)
	}

	// Malformed numbers are ignored, not errors.
	got = ReconcileCounter(0, []string{"", "so cu 7", "CN 000008", "GCN 999999"})
	if got != 8 {
		t.Fatalf("ReconcileCounter = %d, want 8", got)
	}
}

func TestAllocatorPersistsReconciledValue(t *testing.T) {
	ctx := context.Background()
	store := &fakeCounterStore{value: 41}

	alloc, err := NewAllocator(ctx, store, []string{"CN 000050", "CN 000012"})
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}
	if store.value != 50 {
		t.Fatalf("store value after reconcile = %d, want 50", store.value)
	}

	v, formatted, err := alloc.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if v != 51 || formatted != "CN 000051" {
		t.Fatalf("Next = (%d, %q), want (51, %q)", v, formatted, "CN 000051")
	}
}

func TestAllocatorMonotonicNoGaps(t *testing.T) {
	ctx := context.Background()
	alloc, err := NewAllocator(ctx, &fakeCounterStore{}, nil)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	for i := int64(1); i <= 100; i++ {
		v, formatted, err := alloc.Next(ctx)
		if err != nil {
			t.Fatalf("Next #%d: %v", i, err)
		}
		if v != i {
			t.Fatalf("Next #%d = %d, want %d", i, v, i)
		}
		if formatted != FormatBookNumber(i) {
			t.Fatalf("Next #%d formatted = %q, want %q", i, formatted, FormatBookNumber(i))
		}
	}
}

func TestAllocatorPersistFailureDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	store := &fakeCounterStore{value: 10}
	alloc, err := NewAllocator(ctx, store, nil)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	store.failNext = true
	if _, _, err := alloc.Next(ctx); !errors.Is(err, ErrAllocationPersist) {
		t.Fatalf("Next error = %v, want ErrAllocationPersist", err)
	}
	if alloc.Current() != 10 {
		t.Fatalf("current after failed persist = %d, want 10", alloc.Current())
	}

	// Retry succeeds and issues the same number that failed to persist.
	v, _, err := alloc.Next(ctx)
	if err != nil {
		t.Fatalf("Next retry: %v", err)
	}
	if v != 11 {
		t.Fatalf("Next retry = %d, want 11", v)
	}
}

func TestAllocatorUniqueUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	alloc, err := NewAllocator(ctx, &fakeCounterStore{}, nil)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	const n = 200
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, formatted, err := alloc.Next(ctx)
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[formatted] {
				t.Errorf("number %q issued twice", formatted)
			}
			seen[formatted] = true
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("issued %d distinct numbers, want %d", len(seen), n)
	}
}

func TestAllocatorUsesAtomicStore(t *testing.T) {
	ctx := context.Background()
	store := &fakeAtomicStore{fakeCounterStore{value: 7}}
	alloc, err := NewAllocator(ctx, store, nil)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	v, formatted, err := alloc.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if v != 8 || formatted != "CN 000008" {
		t.Fatalf("Next = (%d, %q), want (8, %q)", v, formatted, "CN 000008")
	}

	store.failNext = true
	if _, _, err := alloc.Next(ctx); !errors.Is(err, ErrAllocationPersist) {
		t.Fatalf("Next error = %v, want ErrAllocationPersist", err)
	}
}
