package db

import (
	"context"
	"fmt"
	"time"

	param "github.com/CatalogLoad/param"
	slog "github.com/CatalogLoad/syslog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	logid = "DB: "
)

func syslog(s string) {
	slog.Log(logid, s)
}

// BatchErr reports a failed entity write. The rows of the failed transaction are not
// stored; entities written before it are unaffected.
type BatchErr struct {
	Entity  string
	Rows    int
	Elapsed time.Duration
	Err     error
}

func (e *BatchErr) Error() string {
	return fmt.Sprintf("insert %s: %d rows failed after %s: %s", e.Entity, e.Rows, e.Elapsed, e.Err)
}

func (e *BatchErr) Unwrap() error {
	return e.Err
}

// InsertIgnore writes rows to their table in statements of at most size rows, all inside
// one transaction. Rows whose key already exists are skipped (ON CONFLICT DO NOTHING).
// It returns the number of rows actually inserted.
func InsertIgnore[T any](ctx context.Context, gdb *gorm.DB, entity string, rows []T, size int) (int64, error) {

	if len(rows) == 0 {
		return 0, nil
	}
	if size < 1 {
		size = param.BatchSize
	}

	var inserted int64
	t0 := time.Now()

	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < len(rows); i += size {
			chunk := rows[i:min(i+size, len(rows))]
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&chunk)
			if res.Error != nil {
				return fmt.Errorf("rows %d-%d: %w", i, i+len(chunk)-1, res.Error)
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, &BatchErr{Entity: entity, Rows: len(rows), Elapsed: time.Since(t0), Err: err}
	}
	syslog(fmt.Sprintf("%s: %d rows, %d inserted in %s", entity, len(rows), inserted, time.Since(t0)))

	return inserted, nil
}
