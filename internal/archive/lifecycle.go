package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ScanUpdate is the only field patch the lifecycle writes. BatchIndex and
// ScanDate are set together and only for the SCANNED state, so a stored
// record cannot end up half-committed.
type ScanUpdate struct {
	State      ScanState
	BatchIndex int
	ScanDate   *time.Time
}

// RecordRepository is the persistence collaborator the lifecycle drives.
// Implementations provide per-record update atomicity; there is no
// cross-record transaction requirement in this workflow.
type RecordRepository interface {
	FetchRecordsByIDs(ctx context.Context, ids []string) ([]ArchiveRecord, error)
	UpdateScanFields(ctx context.Context, id string, upd ScanUpdate) error
}

// RecordError pairs a record id with the storage error it hit.
type RecordError struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// MarkResult reports a bulk MarkPendingScan. Records already pending are
// counted as AlreadyPending, records in a state that does not permit the
// transition are Skipped; neither is an error.
type MarkResult struct {
	Marked         []string      `json:"marked"`
	AlreadyPending []string      `json:"already_pending"`
	Skipped        []string      `json:"skipped"`
	Failed         []RecordError `json:"failed"`
}

// CommitResult reports a bulk CommitToBatch. A commit over a stale
// selection degrades gracefully: records not in PENDING_SCAN are skipped,
// storage failures are collected per record, and the rest still commit.
type CommitResult struct {
	Batch     BatchRef      `json:"batch"`
	Committed []string      `json:"committed"`
	Skipped   []string      `json:"skipped"`
	Failed    []RecordError `json:"failed"`
}

// Partial reports whether some, but not all, records failed.
func (r CommitResult) Partial() bool {
	return len(r.Failed) > 0 && len(r.Committed) > 0
}

// Lifecycle owns the three-state scan workflow per archived record.
type Lifecycle struct {
	repo RecordRepository
	log  *logrus.Entry
}

func NewLifecycle(repo RecordRepository, log *logrus.Logger) *Lifecycle {
	return &Lifecycle{
		repo: repo,
		log:  log.WithField("component", "lifecycle"),
	}
}

// MarkPendingScan moves Unscheduled records to PendingScan. It is bulk
// and idempotent: re-marking a pending record is a no-op, and a Scanned
// record is skipped rather than failing the whole call.
func (l *Lifecycle) MarkPendingScan(ctx context.Context, ids []string) (MarkResult, error) {
	var res MarkResult

	records, err := l.repo.FetchRecordsByIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("fetch records: %w", err)
	}

	for _, rec := range records {
		switch rec.ScanState {
		case ScanStateUnscheduled:
			upd := ScanUpdate{State: ScanStatePendingScan}
			if err := l.repo.UpdateScanFields(ctx, rec.ID, upd); err != nil {
				l.log.WithError(err).WithField("record_id", rec.ID).Warn("mark pending failed")
				res.Failed = append(res.Failed, RecordError{ID: rec.ID, Err: err.Error()})
				continue
			}
			res.Marked = append(res.Marked, rec.ID)
		case ScanStatePendingScan:
			res.AlreadyPending = append(res.AlreadyPending, rec.ID)
		default:
			res.Skipped = append(res.Skipped, rec.ID)
		}
	}

	return res, nil
}

// CommitToBatch moves PendingScan records to Scanned, stamping them with
// the batch's date and index. Records not in PendingScan are skipped so a
// stale multi-select does not abort the batch; per-record storage errors
// are reported, not rolled back.
func (l *Lifecycle) CommitToBatch(ctx context.Context, ids []string, batch BatchRef) (CommitResult, error) {
	res := CommitResult{Batch: batch}

	records, err := l.repo.FetchRecordsByIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("fetch records: %w", err)
	}

	day := DayOf(batch.Date)
	for _, rec := range records {
		if rec.ScanState != ScanStatePendingScan {
			res.Skipped = append(res.Skipped, rec.ID)
			continue
		}
		upd := ScanUpdate{
			State:      ScanStateScanned,
			BatchIndex: batch.Index,
			ScanDate:   &day,
		}
		if err := l.repo.UpdateScanFields(ctx, rec.ID, upd); err != nil {
			l.log.WithError(err).WithField("record_id", rec.ID).Warn("batch commit failed for record")
			res.Failed = append(res.Failed, RecordError{ID: rec.ID, Err: err.Error()})
			continue
		}
		res.Committed = append(res.Committed, rec.ID)
	}

	if res.Partial() {
		l.log.WithFields(logrus.Fields{
			"batch_date":  day.Format("2006-01-02"),
			"batch_index": batch.Index,
			"committed":   len(res.Committed),
			"failed":      len(res.Failed),
		}).Warn("batch commit partially applied")
	}

	return res, nil
}
