package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"landreg/internal/archive"
	"landreg/internal/config"
	"landreg/internal/db"
	httpx "landreg/internal/http"
	"landreg/internal/jobs"
	"landreg/internal/store"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, _ := config.Load()

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	ctx := context.Background()

	// The counter must never start below a number already in use:
	// imported rows carry numbers it was never incremented for.
	counter := &store.Counter{DB: gdb}
	if err := counter.EnsureRow(ctx); err != nil {
		log.WithError(err).Fatal("counter init failed")
	}
	records := &store.Records{DB: gdb}
	existing, err := records.FetchBookNumbers(ctx)
	if err != nil {
		log.WithError(err).Fatal("loading book numbers failed")
	}
	alloc, err := archive.NewAllocator(ctx, counter, existing)
	if err != nil {
		log.WithError(err).Fatal("allocator init failed")
	}
	log.WithField("counter", alloc.Current()).Info("book number counter reconciled")

	r := httpx.NewRouter(cfg, gdb, alloc, log)

	// deadline reminders
	jobsRepo := &jobs.Repo{DB: gdb}
	worker := jobs.NewWorker("worker-1", jobsRepo, gdb, log)

	runCtx, cancel := context.WithCancel(context.Background())
	go worker.Run(runCtx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
