// Package loader writes a run's accumulated rows to the catalog store, one entity at a
// time in referential order.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/CatalogLoad/db"
	param "github.com/CatalogLoad/param"
	slog "github.com/CatalogLoad/syslog"
	"github.com/CatalogLoad/types"

	"gorm.io/gorm"
)

const (
	logid = "loader: "
)

func syslog(s string) {
	slog.Log(logid, s)
}

type Config struct {
	// rows per INSERT statement
	BatchSize int
}

type Loader struct {
	db  *gorm.DB
	cfg Config
}

func New(gdb *gorm.DB, cfg Config) *Loader {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = param.BatchSize
	}
	return &Loader{db: gdb, cfg: cfg}
}

type EntityResult struct {
	Entity   string
	Rows     int
	Inserted int64
	Elapsed  time.Duration
	Err      error
	// not attempted: the context was done before the entity started
	Skipped bool
}

type Report []EntityResult

// Failed reports whether any entity failed to write.
func (r Report) Failed() bool {
	for _, e := range r {
		if e.Err != nil {
			return true
		}
	}
	return false
}

// Entity returns the result for name.
func (r Report) Entity(name string) (EntityResult, bool) {
	for _, e := range r {
		if e.Entity == name {
			return e, true
		}
	}
	return EntityResult{}, false
}

// Load writes rows in types.LoadOrder. A failed entity is reported and the next one is
// still attempted; committed entities are never rolled back. Cancellation is honoured
// between entities only.
func (l *Loader) Load(ctx context.Context, rows types.RowSet) Report {

	var rpt Report
	log := slog.Named(logid)

	for _, entity := range types.LoadOrder {

		res := EntityResult{Entity: entity, Rows: rows.Count(entity)}

		if err := ctx.Err(); err != nil {
			res.Skipped = true
			res.Err = fmt.Errorf("%s not loaded: %w", entity, err)
			log.Warnw("entity skipped", "entity", entity, "rows", res.Rows, "reason", err)
			rpt = append(rpt, res)
			continue
		}

		t0 := time.Now()
		res.Inserted, res.Err = l.write(ctx, entity, rows)
		res.Elapsed = time.Since(t0)

		if res.Err != nil {
			log.Errorw("entity failed", "entity", entity, "rows", res.Rows, "elapsed", res.Elapsed, "error", res.Err)
		} else {
			log.Infow("entity loaded", "entity", entity, "rows", res.Rows, "inserted", res.Inserted, "elapsed", res.Elapsed)
		}
		rpt = append(rpt, res)
	}
	syslog(fmt.Sprintf("load complete: failed=%v", rpt.Failed()))

	return rpt
}

func (l *Loader) write(ctx context.Context, entity string, rows types.RowSet) (int64, error) {
	size := l.cfg.BatchSize

	switch entity {
	case types.EntityProduct:
		return db.InsertIgnore(ctx, l.db, entity, rows.Products, size)
	case types.EntitySimilarLink:
		return db.InsertIgnore(ctx, l.db, entity, rows.SimilarLinks, size)
	case types.EntityReview:
		return db.InsertIgnore(ctx, l.db, entity, rows.Reviews, size)
	case types.EntityCustomer:
		return db.InsertIgnore(ctx, l.db, entity, rows.Customers, size)
	case types.EntityCategory:
		return db.InsertIgnore(ctx, l.db, entity, rows.Categories, size)
	case types.EntityProductCategory:
		return db.InsertIgnore(ctx, l.db, entity, rows.ProductCategories, size)
	}
	return 0, fmt.Errorf("unknown entity %q", entity)
}
