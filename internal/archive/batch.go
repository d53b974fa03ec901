package archive

import (
	"errors"
	"sort"
	"time"
)

// ErrBatchNotFound means the caller selected a (date, index) pair that no
// Scanned record belongs to. Appending to a batch must target one that
// exists; opening a new batch is an explicit, separate choice.
var ErrBatchNotFound = errors.New("batch not found")

// ListBatches derives the batch catalog from the current record set:
// every Scanned record is grouped by (calendar day, batch index). Sorted
// descending by (date, index) so the most recent batch comes first.
func ListBatches(records []ArchiveRecord) []Batch {
	type key struct {
		day   time.Time
		index int
	}
	counts := make(map[key]int)
	for _, rec := range records {
		if rec.ScanState != ScanStateScanned || rec.ScanDate == nil {
			continue
		}
		counts[key{day: DayOf(*rec.ScanDate), index: rec.ScanBatchIndex}]++
	}

	batches := make([]Batch, 0, len(counts))
	for k, n := range counts {
		batches = append(batches, Batch{Date: k.day, Index: k.index, RecordCount: n})
	}
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].Date.Equal(batches[j].Date) {
			return batches[i].Date.After(batches[j].Date)
		}
		return batches[i].Index > batches[j].Index
	})
	return batches
}

// NextBatchIndexForToday returns 1 + the highest batch index used on
// today's calendar day, or 1 when no batch exists yet today. Indices
// restart per day; (date, index) is the compound key.
func NextBatchIndexForToday(records []ArchiveRecord, today time.Time) int {
	max := 0
	for _, rec := range records {
		if rec.ScanState != ScanStateScanned || rec.ScanDate == nil {
			continue
		}
		if SameDay(*rec.ScanDate, today) && rec.ScanBatchIndex > max {
			max = rec.ScanBatchIndex
		}
	}
	return max + 1
}

// OpenNewBatch returns the reference a fresh batch for today would get.
// Nothing is persisted until records are committed to it.
func OpenNewBatch(records []ArchiveRecord, today time.Time) BatchRef {
	return BatchRef{Date: DayOf(today), Index: NextBatchIndexForToday(records, today)}
}

// SelectExistingBatch resolves a (date, index) pair against the derived
// catalog. A pair no record belongs to is ErrBatchNotFound rather than a
// silently created batch.
func SelectExistingBatch(records []ArchiveRecord, date time.Time, index int) (BatchRef, error) {
	for _, b := range ListBatches(records) {
		if SameDay(b.Date, date) && b.Index == index {
			return BatchRef{Date: b.Date, Index: b.Index}, nil
		}
	}
	return BatchRef{}, ErrBatchNotFound
}
