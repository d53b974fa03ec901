package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"landreg/internal/archive"
	"landreg/internal/store"

	"github.com/sirupsen/logrus"
)

// BatchHandler exposes the scan-batch workflow: scheduling records,
// browsing the derived batch catalog, and committing scans.
type BatchHandler struct {
	Store     *store.Records
	Lifecycle *archive.Lifecycle
	Log       *logrus.Entry
}

type batchDTO struct {
	Date        string `json:"date"`
	Index       int    `json:"index"`
	RecordCount int    `json:"record_count"`
}

func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.FetchAllRecords(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("list batches failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	batches := archive.ListBatches(records)
	out := make([]batchDTO, 0, len(batches))
	for _, b := range batches {
		out = append(out, batchDTO{
			Date:        b.Date.Format(dateLayout),
			Index:       b.Index,
			RecordCount: b.RecordCount,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type openBatchReq struct {
	Date *string `json:"date"` // YYYY-MM-DD, defaults to today
}

// Open computes the reference a new batch would get. Nothing is stored
// until records are committed to it.
func (h *BatchHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openBatchReq
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
	}
	day, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	today := time.Now()
	if day != nil {
		today = *day
	}

	records, err := h.Store.FetchAllRecords(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("open batch failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	ref := archive.OpenNewBatch(records, today)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(batchDTO{Date: ref.Date.Format(dateLayout), Index: ref.Index})
}

type markPendingReq struct {
	IDs []string `json:"ids"`
}

func (h *BatchHandler) MarkPendingScan(w http.ResponseWriter, r *http.Request) {
	var req markPendingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, "ids required", http.StatusBadRequest)
		return
	}

	res, err := h.Lifecycle.MarkPendingScan(r.Context(), req.IDs)
	if err != nil {
		h.Log.WithError(err).Error("mark pending scan failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

type commitBatchReq struct {
	IDs []string `json:"ids"`

	// Either open a fresh batch for date (or today) ...
	NewBatch bool `json:"new_batch"`
	// ... or append to an existing (date, index) pair.
	Date  *string `json:"date"` // YYYY-MM-DD
	Index int     `json:"index"`
}

type commitBatchResp struct {
	Batch     batchDTO              `json:"batch"`
	Committed []string              `json:"committed"`
	Skipped   []string              `json:"skipped"`
	Failed    []archive.RecordError `json:"failed"`
}

// Commit moves the selected pending records into a batch. Opening versus
// appending is the caller's explicit choice; appending to a pair no
// record belongs to is a 404, never a silent open.
func (h *BatchHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req commitBatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, "ids required", http.StatusBadRequest)
		return
	}
	day, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	records, err := h.Store.FetchAllRecords(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("batch commit failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	var batch archive.BatchRef
	if req.NewBatch {
		today := time.Now()
		if day != nil {
			today = *day
		}
		batch = archive.OpenNewBatch(records, today)
	} else {
		if day == nil {
			http.Error(w, "date required when appending", http.StatusBadRequest)
			return
		}
		batch, err = archive.SelectExistingBatch(records, *day, req.Index)
		if errors.Is(err, archive.ErrBatchNotFound) {
			http.Error(w, "batch not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	res, err := h.Lifecycle.CommitToBatch(r.Context(), req.IDs, batch)
	if err != nil {
		h.Log.WithError(err).Error("batch commit failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := commitBatchResp{
		Batch:     batchDTO{Date: res.Batch.Date.Format(dateLayout), Index: res.Batch.Index},
		Committed: res.Committed,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
