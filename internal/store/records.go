package store

import (
	"context"
	"errors"
	"time"

	"landreg/internal/archive"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("record not found")

// Records is the Postgres-backed record repository. It implements
// archive.RecordRepository.
type Records struct {
	DB *gorm.DB
}

// CreateRecord inserts a new record, assigning an id if none is set.
func (r *Records) CreateRecord(ctx context.Context, rec *archive.ArchiveRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ScanState == "" {
		rec.ScanState = archive.ScanStateUnscheduled
	}
	return r.DB.WithContext(ctx).Create(rec).Error
}

// SaveRecord persists field edits on an existing record.
func (r *Records) SaveRecord(ctx context.Context, rec *archive.ArchiveRecord) error {
	return r.DB.WithContext(ctx).Save(rec).Error
}

// FetchAllRecords returns every record in creation order. Batch listing
// and handover filtering are pure computation over this set.
func (r *Records) FetchAllRecords(ctx context.Context) ([]archive.ArchiveRecord, error) {
	var records []archive.ArchiveRecord
	err := r.DB.WithContext(ctx).Order("created_at asc, id asc").Find(&records).Error
	return records, err
}

// FetchRecordsByType returns records of one certificate type in creation
// order. Rows whose type was never set count as the default type.
func (r *Records) FetchRecordsByType(ctx context.Context, certType string) ([]archive.ArchiveRecord, error) {
	if certType == "" {
		certType = archive.DefaultCertificateType
	}
	q := r.DB.WithContext(ctx).Where("loai_gcn = ?", certType)
	if certType == archive.DefaultCertificateType {
		q = r.DB.WithContext(ctx).Where("loai_gcn = ? or loai_gcn = ''", certType)
	}
	var records []archive.ArchiveRecord
	err := q.Order("created_at asc, id asc").Find(&records).Error
	return records, err
}

// FetchRecordsByIDs returns the records matching ids, in creation order.
// Unknown ids are simply absent from the result.
func (r *Records) FetchRecordsByIDs(ctx context.Context, ids []string) ([]archive.ArchiveRecord, error) {
	var records []archive.ArchiveRecord
	err := r.DB.WithContext(ctx).
		Where("id in ?", ids).
		Order("created_at asc, id asc").
		Find(&records).Error
	return records, err
}

// FetchBookNumbers returns every non-empty book number currently stored,
// for counter reconciliation at startup.
func (r *Records) FetchBookNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	err := r.DB.WithContext(ctx).
		Model(&archive.ArchiveRecord{}).
		Where("so_vao_so <> ''").
		Pluck("so_vao_so", &numbers).Error
	return numbers, err
}

// UpdateScanFields applies one scan-state patch to one record. The three
// columns always move together so a row cannot end up half-committed.
func (r *Records) UpdateScanFields(ctx context.Context, id string, upd archive.ScanUpdate) error {
	var scanDate *time.Time
	if upd.ScanDate != nil {
		d := archive.DayOf(*upd.ScanDate)
		scanDate = &d
	}
	res := r.DB.WithContext(ctx).
		Model(&archive.ArchiveRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"scan_state":    upd.State,
			"scan_batch_id": upd.BatchIndex,
			"scan_date":     scanDate,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
