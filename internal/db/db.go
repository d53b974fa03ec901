package db

import (
	"fmt"

	"landreg/internal/archive"
	"landreg/internal/jobs"
	"landreg/internal/store"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&archive.ArchiveRecord{},
		&store.BookCounter{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Book numbers are unique once assigned. Partial so unnumbered
	// (not yet registered) rows do not collide on ''.
	if err := gdb.Exec(`
create unique index if not exists uq_archive_records_book_number
on archive_records(so_vao_so)
where so_vao_so <> '';
`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_records_scan_batch on archive_records(scan_date, scan_batch_id) where scan_state = 'SCANNED';`,
		`create index if not exists idx_records_type_created on archive_records(loai_gcn, created_at);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
