package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"landreg/internal/archive"
	"landreg/internal/jobs"
	"landreg/internal/store"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// RecordHandler covers record intake and the allocator endpoint. Intake
// is deliberately thin: the forms and pricing around it live in other
// systems that call in here.
type RecordHandler struct {
	Store *store.Records
	Alloc *archive.Allocator
	Jobs  *jobs.Repo
	Log   *logrus.Entry
}

type createRecordReq struct {
	CreatedBy          string   `json:"created_by"`
	BookNumber         string   `json:"so_vao_so"`
	CertificateType    string   `json:"loai_gcn"`
	Locality           string   `json:"dia_danh"`
	HolderName         string   `json:"holder_name"`
	PlotNumbers        []string `json:"plot_numbers"`
	IssuedAt           *string  `json:"issued_at"`           // YYYY-MM-DD
	ProcessingDeadline *string  `json:"processing_deadline"` // YYYY-MM-DD
	Notes              string   `json:"notes"`
	AllocateNumber     bool     `json:"allocate_number"`
}

func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRecordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AllocateNumber && strings.TrimSpace(req.BookNumber) != "" {
		http.Error(w, "so_vao_so and allocate_number are mutually exclusive", http.StatusBadRequest)
		return
	}

	issuedAt, err := parseDate(req.IssuedAt)
	if err != nil {
		http.Error(w, "invalid issued_at (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	deadline, err := parseDate(req.ProcessingDeadline)
	if err != nil {
		http.Error(w, "invalid processing_deadline (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	rec := archive.ArchiveRecord{
		CreatedBy:          strings.TrimSpace(req.CreatedBy),
		BookNumber:         strings.TrimSpace(req.BookNumber),
		CertificateType:    strings.TrimSpace(req.CertificateType),
		Locality:           strings.TrimSpace(req.Locality),
		HolderName:         strings.TrimSpace(req.HolderName),
		PlotNumbers:        pq.StringArray(req.PlotNumbers),
		IssuedAt:           issuedAt,
		ProcessingDeadline: deadline,
		Notes:              req.Notes,
		ScanState:          archive.ScanStateUnscheduled,
	}

	if req.AllocateNumber {
		// The counter is persisted before the number is attached; a
		// failed persist burns nothing.
		_, formatted, err := h.Alloc.Next(r.Context())
		if err != nil {
			h.Log.WithError(err).Error("book number allocation failed")
			http.Error(w, "book number allocation failed, retry", http.StatusServiceUnavailable)
			return
		}
		rec.BookNumber = formatted
	}

	if err := h.Store.CreateRecord(r.Context(), &rec); err != nil {
		h.Log.WithError(err).Error("create record failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if rec.ProcessingDeadline != nil {
		if err := h.Jobs.EnqueueDeadlineReminder(rec.ID, *rec.ProcessingDeadline); err != nil {
			h.Log.WithError(err).WithField("record_id", rec.ID).Warn("enqueue deadline reminder failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	certType := strings.TrimSpace(r.URL.Query().Get("type"))

	var (
		records []archive.ArchiveRecord
		err     error
	)
	if certType != "" {
		records, err = h.Store.FetchRecordsByType(r.Context(), certType)
	} else {
		records, err = h.Store.FetchAllRecords(r.Context())
	}
	if err != nil {
		h.Log.WithError(err).Error("list records failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

type allocateResp struct {
	Value      int64  `json:"value"`
	BookNumber string `json:"book_number"`
}

// Allocate issues the next book number. Callers must only attach numbers
// returned from here; a 503 means nothing was issued and the call is
// safe to repeat.
func (h *RecordHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	value, formatted, err := h.Alloc.Next(r.Context())
	if err != nil {
		if errors.Is(err, archive.ErrAllocationPersist) {
			http.Error(w, "book number allocation failed, retry", http.StatusServiceUnavailable)
			return
		}
		h.Log.WithError(err).Error("allocation failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(allocateResp{Value: value, BookNumber: formatted})
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
