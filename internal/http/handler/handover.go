package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"landreg/internal/archive"
	"landreg/internal/store"

	"github.com/sirupsen/logrus"
)

// HandoverHandler produces the record list the spreadsheet renderer
// turns into the handover sheet. The filter decides which records
// qualify; the column layout is the renderer's problem.
type HandoverHandler struct {
	Store *store.Records
	Log   *logrus.Entry
}

type handoverResp struct {
	Batch   batchDTO                `json:"batch"`
	Count   int                     `json:"count"`
	Records []archive.ArchiveRecord `json:"records"`
}

func (h *HandoverHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	day, err := time.Parse(dateLayout, strings.TrimSpace(q.Get("date")))
	if err != nil {
		http.Error(w, "invalid date (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(strings.TrimSpace(q.Get("index")))
	if err != nil || index < 1 {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	certType := strings.TrimSpace(q.Get("type"))
	locality := strings.TrimSpace(q.Get("locality"))
	if locality == "" {
		locality = archive.LocalityAll
	}

	records, err := h.Store.FetchAllRecords(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("handover export failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	batch := archive.BatchRef{Date: archive.DayOf(day), Index: index}
	matched := archive.FilterForHandover(records, batch, certType, locality)

	// No matching records is an empty list, not an error.
	out := handoverResp{
		Batch:   batchDTO{Date: batch.Date.Format(dateLayout), Index: batch.Index},
		Count:   len(matched),
		Records: matched,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
