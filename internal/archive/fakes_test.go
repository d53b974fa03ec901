package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// fakeCounterStore is an in-memory CounterStore for tests.
type fakeCounterStore struct {
	mu       sync.Mutex
	value    int64
	failNext bool
}

func (s *fakeCounterStore) Load(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *fakeCounterStore) Store(ctx context.Context, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("disk full")
	}
	s.value = value
	return nil
}

// fakeAtomicStore layers a server-side increment on the fake store.
type fakeAtomicStore struct {
	fakeCounterStore
}

func (s *fakeAtomicStore) Increment(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return 0, errors.New("connection reset")
	}
	s.value++
	return s.value, nil
}

// fakeRepo is an in-memory RecordRepository keeping insertion order.
type fakeRepo struct {
	mu      sync.Mutex
	order   []string
	records map[string]*ArchiveRecord
	failIDs map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records: make(map[string]*ArchiveRecord),
		failIDs: make(map[string]bool),
	}
}

func (r *fakeRepo) add(rec ArchiveRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, rec.ID)
	cp := rec
	r.records[rec.ID] = &cp
}

func (r *fakeRepo) all() []ArchiveRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ArchiveRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

func (r *fakeRepo) get(id string) ArchiveRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.records[id]
}

func (r *fakeRepo) FetchRecordsByIDs(ctx context.Context, ids []string) ([]ArchiveRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ArchiveRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateScanFields(ctx context.Context, id string, upd ScanUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[id] {
		return errors.New("write timeout")
	}
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	rec.ScanState = upd.State
	rec.ScanBatchIndex = upd.BatchIndex
	rec.ScanDate = upd.ScanDate
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scannedRecord(id string, batchDay time.Time, batchIndex int, certType, locality string) ArchiveRecord {
	return ArchiveRecord{
		ID:              id,
		CertificateType: certType,
		Locality:        locality,
		ScanState:       ScanStateScanned,
		ScanBatchIndex:  batchIndex,
		ScanDate:        &batchDay,
	}
}
