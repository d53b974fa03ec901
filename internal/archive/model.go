package archive

import (
	"time"

	"github.com/lib/pq"
)

// ScanState is the scan workflow position of an archived record.
// It only ever advances: Unscheduled -> PendingScan -> Scanned.
type ScanState string

const (
	ScanStateUnscheduled ScanState = "UNSCHEDULED"
	ScanStatePendingScan ScanState = "PENDING_SCAN"
	ScanStateScanned     ScanState = "SCANNED"
)

// DefaultCertificateType is assumed when a record's type was never set,
// both at storage and at filter time, so records cannot fall out of
// every filter because of an empty field.
const DefaultCertificateType = "GCN mới"

// ArchiveRecord is one certificate-registration entry.
// Column names follow the registry's storage names (so_vao_so, loai_gcn,
// dia_danh) so spreadsheet-imported data maps one to one.
type ArchiveRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	CreatedBy string    `gorm:"not null;default:''" json:"created_by"`

	BookNumber      string `gorm:"column:so_vao_so;not null;default:''" json:"so_vao_so"`
	CertificateType string `gorm:"column:loai_gcn;not null;default:''" json:"loai_gcn"`
	Locality        string `gorm:"column:dia_danh;not null;default:''" json:"dia_danh"`

	// Descriptive payload the scan workflow never touches.
	HolderName         string         `gorm:"not null;default:''" json:"holder_name"`
	PlotNumbers        pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"plot_numbers"`
	IssuedAt           *time.Time     `gorm:"type:date" json:"issued_at"`
	ProcessingDeadline *time.Time     `gorm:"type:date" json:"processing_deadline"`
	Notes              string         `gorm:"type:text;not null;default:''" json:"notes"`

	ScanState ScanState `gorm:"column:scan_state;index;not null;default:'UNSCHEDULED'" json:"scan_state"`
	// ScanBatchIndex and ScanDate are set together by CommitToBatch and
	// only meaningful while ScanState is SCANNED.
	ScanBatchIndex int        `gorm:"column:scan_batch_id;not null;default:0" json:"scan_batch_id"`
	ScanDate       *time.Time `gorm:"column:scan_date;type:date" json:"scan_date"`
}

// EffectiveCertificateType applies the default for records whose type
// was never set.
func (r ArchiveRecord) EffectiveCertificateType() string {
	if r.CertificateType == "" {
		return DefaultCertificateType
	}
	return r.CertificateType
}

// BatchRef identifies a scan batch. (Date, Index) is the compound key:
// indices restart per calendar day.
type BatchRef struct {
	Date  time.Time `json:"date"`
	Index int       `json:"index"`
}

// Batch is a derived aggregate over Scanned records. It is recomputed on
// read, never stored, so the count can never drift from record state.
type Batch struct {
	Date        time.Time `json:"date"`
	Index       int       `json:"index"`
	RecordCount int       `json:"record_count"`
}

// DayOf truncates t to its calendar day (midnight UTC). Scan dates carry
// no time-of-day semantics.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
