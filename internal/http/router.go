package http

import (
	"net/http"

	"landreg/internal/archive"
	"landreg/internal/config"
	"landreg/internal/http/handler"
	mw "landreg/internal/http/middleware"
	"landreg/internal/jobs"
	"landreg/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, alloc *archive.Allocator, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	records := &store.Records{DB: db}
	lifecycle := archive.NewLifecycle(records, log)
	jobsRepo := &jobs.Repo{DB: db}

	recH := &handler.RecordHandler{
		Store: records,
		Alloc: alloc,
		Jobs:  jobsRepo,
		Log:   log.WithField("component", "records-handler"),
	}
	batchH := &handler.BatchHandler{
		Store:     records,
		Lifecycle: lifecycle,
		Log:       log.WithField("component", "batches-handler"),
	}
	handoverH := &handler.HandoverHandler{
		Store: records,
		Log:   log.WithField("component", "handover-handler"),
	}

	r.Post("/book-numbers", recH.Allocate)

	r.Route("/records", func(r chi.Router) {
		r.Post("/", recH.Create)
		r.Get("/", recH.List)
		r.Post("/pending-scan", batchH.MarkPendingScan)
	})

	r.Route("/batches", func(r chi.Router) {
		r.Get("/", batchH.List)
		r.Post("/open", batchH.Open)
		r.Post("/commit", batchH.Commit)
	})

	r.Get("/handover", handoverH.Export)

	return r
}
