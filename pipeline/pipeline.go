// Package pipeline runs a load: read blocks, normalize them, accumulate rows, write them
// to the store and feed the optional search index and run log.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/CatalogLoad/config"
	"github.com/CatalogLoad/loader"
	"github.com/CatalogLoad/meta/ds"
	elog "github.com/CatalogLoad/meta/errlog"
	"github.com/CatalogLoad/meta/normalize"
	"github.com/CatalogLoad/meta/reader"
	"github.com/CatalogLoad/metaerr"
	param "github.com/CatalogLoad/param"
	"github.com/CatalogLoad/runlog"
	slog "github.com/CatalogLoad/syslog"
	"github.com/CatalogLoad/types"
	"github.com/CatalogLoad/util"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	logid = "pipeline: "
)

func syslog(s string) {
	slog.Log(logid, s)
}

// Indexer receives the loaded products. Implemented by fts.Indexer.
type Indexer interface {
	IndexProducts(ctx context.Context, products []types.Product) (int, error)
}

// RunRecorder stores the run summary. Implemented by runlog.Writer.
type RunRecorder interface {
	Put(ctx context.Context, run runlog.Run) error
}

type Option func(*Pipeline)

// WithStore sets the relational store. Without one Run only parses.
func WithStore(gdb *gorm.DB) Option {
	return func(p *Pipeline) { p.db = gdb }
}

func WithIndexer(ix Indexer) Option {
	return func(p *Pipeline) { p.index = ix }
}

func WithRunLog(rl RunRecorder) Option {
	return func(p *Pipeline) { p.runlog = rl }
}

type Pipeline struct {
	cfg    config.Config
	db     *gorm.DB
	index  Indexer
	runlog RunRecorder
}

func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg}
	for _, o := range opts {
		o(p)
	}
	if p.cfg.ReadBatch < 1 {
		p.cfg.ReadBatch = param.ReadBatch
	}
	if p.cfg.Workers < 1 {
		p.cfg.Workers = param.Workers
	}
	return p
}

type Result struct {
	RunID string
	// blocks read, rejected ones included
	Blocks      int
	ParseErrors []error
	Aborted     bool
	Rows        types.RowSet
	Report      loader.Report
	Indexed     int
	IndexErr    error
	Elapsed     time.Duration
}

// Failed reports whether the run aborted or any entity failed to load.
func (r *Result) Failed() bool {
	return r.Aborted || r.Report.Failed()
}

// Parse reads and normalizes the whole input without touching the store.
func (p *Pipeline) Parse(ctx context.Context, r io.Reader) (*Result, error) {

	res := &Result{RunID: util.MakeRunID()}
	t0 := time.Now()
	err := p.parse(ctx, r, res)
	res.Elapsed = time.Since(t0)

	return res, err
}

// Run parses the input and loads it. Parse failures of single blocks are skipped or abort
// the run depending on on_parse_error and error_limit; an aborted run loads nothing. The
// returned error is reserved for input failures and aborts, entity failures are in
// Result.Report.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (*Result, error) {

	if p.db == nil {
		return nil, errors.New("pipeline has no store")
	}
	res := &Result{RunID: util.MakeRunID()}
	log := slog.Named(logid).With("run", util.Short(res.RunID))
	log.Infow("run started", "run_id", res.RunID, "input", p.cfg.Input, "workers", p.cfg.Workers)

	t0 := time.Now()
	err := p.parse(ctx, r, res)
	if err == nil {
		res.Report = loader.New(p.db, loader.Config{BatchSize: p.cfg.BatchSize}).Load(ctx, res.Rows)
		p.indexProducts(ctx, res)
	}
	res.Elapsed = time.Since(t0)

	p.recordRun(ctx, res)
	log.Infow("run finished", "blocks", res.Blocks, "parse_errors", len(res.ParseErrors), "failed", res.Failed(), "elapsed", res.Elapsed)

	return res, err
}

func (p *Pipeline) parse(ctx context.Context, r io.Reader, res *Result) error {

	var (
		rdr  = reader.New(r, reader.WithHeaderLines(p.cfg.HeaderLines))
		errs = elog.New(p.cfg.ErrorLimit)
		acc  = loader.NewAccumulator()
		next = param.ProgressEvery
	)
	abort := p.cfg.OnParseError == param.OnErrorAbort

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("parse stopped at line %d: %w", rdr.Line(), err)
		}
		blocks := make([]*ds.Block, p.cfg.ReadBatch)

		n, eof, err := rdr.Read(blocks)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		rows, rerrs := p.normalize(blocks[:n])

		for i := 0; i < n; i++ {
			res.Blocks++
			if rerrs[i] == nil {
				acc.Add(rows[i])
				continue
			}
			limit := errs.Add(rerrs[i])
			if abort || limit {
				res.ParseErrors = errs.List()
				res.Aborted = true
				return fmt.Errorf("%w: %d parse errors, last: %w", metaerr.ErrAborted, errs.Len(), rerrs[i])
			}
		}
		if res.Blocks >= next {
			slog.Named(logid).Infow("progress", "blocks", res.Blocks, "rejected", errs.Len(), "line", rdr.Line())
			next += param.ProgressEvery
		}
		if eof {
			break
		}
	}
	res.ParseErrors = errs.List()
	res.Rows = acc.Rows()
	slog.Named(logid).Infow("parse complete", "blocks", res.Blocks, "rejected", len(res.ParseErrors),
		"products", len(res.Rows.Products), "conflicts", acc.Conflicts())

	return nil
}

// normalize maps a read batch, fanning out to the configured number of workers. Results
// are positional so accumulation order does not depend on scheduling.
func (p *Pipeline) normalize(blocks []*ds.Block) ([]types.RowSet, []error) {

	rows := make([]types.RowSet, len(blocks))
	errs := make([]error, len(blocks))

	if p.cfg.Workers == 1 {
		for i, b := range blocks {
			rows[i], errs[i] = normalize.Block(b)
		}
		return rows, errs
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, b := range blocks {
		g.Go(func() error {
			rows[i], errs[i] = normalize.Block(b)
			return nil
		})
	}
	g.Wait()

	return rows, errs
}

func (p *Pipeline) indexProducts(ctx context.Context, res *Result) {
	if p.index == nil {
		return
	}
	if e, ok := res.Report.Entity(types.EntityProduct); !ok || e.Err != nil {
		syslog("products not loaded, search index not updated")
		return
	}
	res.Indexed, res.IndexErr = p.index.IndexProducts(ctx, res.Rows.Products)
	if res.IndexErr != nil {
		slog.Named(logid).Errorw("search index update failed", "error", res.IndexErr)
	}
}

func (p *Pipeline) recordRun(ctx context.Context, res *Result) {
	if p.runlog == nil {
		return
	}
	run := runlog.Run{
		RunID:       res.RunID,
		Input:       p.cfg.Input,
		Status:      runlog.StatusOK,
		Blocks:      res.Blocks,
		ParseErrors: len(res.ParseErrors),
		Aborted:     res.Aborted,
		Elapsed:     res.Elapsed.String(),
	}
	switch {
	case res.Aborted:
		run.Status = runlog.StatusAborted
	case res.Failed():
		run.Status = runlog.StatusFailed
	}
	for _, e := range res.Report {
		re := runlog.Entity{Entity: e.Entity, Rows: e.Rows, Inserted: e.Inserted, Elapsed: e.Elapsed.String(), Skipped: e.Skipped}
		if e.Err != nil {
			re.Error = e.Err.Error()
		}
		run.Entities = append(run.Entities, re)
	}
	// the run summary is written even when the caller's context is already done
	if err := p.runlog.Put(context.WithoutCancel(ctx), run); err != nil {
		slog.Named(logid).Errorw("run log not written", "run_id", res.RunID, "error", err)
	}
}
