package jobs

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"landreg/internal/archive"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Worker drains due deadline reminders. It is observation only: it never
// mutates record state, so the scan workflow stays free of background
// writers.
type Worker struct {
	ID   string
	Repo *Repo
	DB   *gorm.DB
	Log  *logrus.Entry
}

func NewWorker(id string, repo *Repo, db *gorm.DB, log *logrus.Logger) *Worker {
	return &Worker{
		ID:   id,
		Repo: repo,
		DB:   db,
		Log:  log.WithField("component", "deadline-worker"),
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.WithError(err).Warn("claim failed")
				continue
			}
			if job == nil {
				continue
			}
			w.handle(job)
		}
	}
}

func (w *Worker) handle(job *Job) {
	switch job.Type {
	case TypeDeadlineRemind:
		w.handleDeadline(job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleDeadline(job *Job) {
	type payload struct {
		RecordID string `json:"record_id"`
	}
	var p payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	var rec archive.ArchiveRecord
	if err := w.DB.Where("id = ?", p.RecordID).First(&rec).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			_ = w.Repo.MarkDone(job.ID)
			return
		}
		w.retry(job, "db read error")
		return
	}

	// Already archived into a batch: nothing left to chase.
	if rec.ScanState == archive.ScanStateScanned {
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	w.Log.WithFields(logrus.Fields{
		"record_id":   rec.ID,
		"so_vao_so":   rec.BookNumber,
		"holder_name": rec.HolderName,
		"scan_state":  rec.ScanState,
	}).Warn("processing deadline reached")
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
