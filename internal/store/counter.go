package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookCounter is the durable row holding the last-issued book number.
// A single named row; the value only ever moves forward.
type BookCounter struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

const bookCounterName = "so_vao_so"

// Counter is the Postgres-backed counter store. Increment is a single
// server-side statement, so concurrent processes cannot issue the same
// number; it implements archive.AtomicCounterStore.
type Counter struct {
	DB *gorm.DB
}

// EnsureRow creates the counter row if it does not exist yet.
func (c *Counter) EnsureRow(ctx context.Context) error {
	row := BookCounter{Name: bookCounterName}
	return c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (c *Counter) Load(ctx context.Context) (int64, error) {
	var row BookCounter
	err := c.DB.WithContext(ctx).Where("name = ?", bookCounterName).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Value, nil
}

// Store writes value, but never moves the counter backwards: a stale
// writer racing a concurrent Increment must not regress it.
func (c *Counter) Store(ctx context.Context, value int64) error {
	if err := c.EnsureRow(ctx); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).
		Model(&BookCounter{}).
		Where("name = ? and value < ?", bookCounterName, value).
		Update("value", value).Error
}

// Increment bumps the counter and returns the new value in one atomic
// statement.
func (c *Counter) Increment(ctx context.Context) (int64, error) {
	var value int64
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Raw(`
update book_counters
set value = value + 1
where name = ?
returning value;
`, bookCounterName).Scan(&value).Error
	})
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("counter row missing")
	}
	return value, nil
}
