package reader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CatalogLoad/meta/ds"
	"github.com/CatalogLoad/meta/extract"
	"github.com/CatalogLoad/metaerr"
)

// builder owns the block under construction. classify is the only way to add to it
// and finalize the only way to get it out; finalize also resets the builder.
type builder struct {
	blk *ds.Block
}

// classify accumulates one input line into the current block. It returns true when
// the line closes the block.
func (b *builder) classify(line string, n int) bool {

	trimmed := strings.TrimSpace(line)
	if len(trimmed) == 0 {
		return true
	}
	if b.blk == nil {
		b.blk = &ds.Block{Line: n}
	}
	v := b.blk

	switch {

	case strings.HasPrefix(line, "Id:"):
		s := strings.TrimSpace(strings.TrimPrefix(line, "Id:"))
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			b.fail(n, "Id", fmt.Errorf("%w: %q is not an integer", metaerr.ErrMalformed, s))
			return false
		}
		v.ID = append(v.ID, id)

	case strings.HasPrefix(line, "ASIN:"):
		v.ASIN = append(v.ASIN, strings.TrimSpace(strings.TrimPrefix(line, "ASIN:")))

	case strings.HasPrefix(trimmed, "title:"):
		v.Title = append(v.Title, value(trimmed, "title:"))

	case strings.HasPrefix(trimmed, "group:"):
		v.Group = append(v.Group, value(trimmed, "group:"))

	case strings.HasPrefix(trimmed, "salesrank:"):
		s := value(trimmed, "salesrank:")
		rank, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			b.fail(n, "salesrank", fmt.Errorf("%w: %q is not an integer", metaerr.ErrMalformed, s))
			return false
		}
		v.SalesRank = append(v.SalesRank, rank)

	case strings.HasPrefix(trimmed, "similar:"):
		sim, err := extract.Similar(value(trimmed, "similar:"))
		if err != nil {
			b.fail(n, "similar", err)
			return false
		}
		if sim.Declared != len(sim.ASINs) {
			b.fail(n, "similar", fmt.Errorf("%w: declared %d, listed %d", metaerr.ErrSimilarCount, sim.Declared, len(sim.ASINs)))
			return false
		}
		v.Similar = append(v.Similar, sim)

	case strings.HasPrefix(trimmed, "categories:"):
		v.CategoryGroups++

	case strings.HasPrefix(trimmed, "|"):
		if path := extract.CategoryPath(trimmed); len(path) > 0 {
			v.Categories = append(v.Categories, path)
		}

	case strings.HasPrefix(trimmed, "reviews:"):
		agg, err := extract.ReviewAggregate(trimmed)
		if err != nil {
			b.fail(n, "reviews", err)
			return false
		}
		v.Reviews = append(v.Reviews, agg)

	case extract.IsReviewDetail(line):
		rd, err := extract.ReviewDetail(line)
		if err != nil {
			b.fail(n, "review", err)
			return false
		}
		v.ReviewDetails = append(v.ReviewDetails, rd)

	}
	return false
}

// finalize checks block shape and hands the block over. It returns nil when nothing
// was accumulated since the last boundary.
func (b *builder) finalize() *ds.Block {

	v := b.blk
	b.blk = nil

	if v == nil || v.Empty() {
		return nil
	}
	if v.Err != nil {
		return v
	}
	if len(v.ID) != 1 || len(v.ASIN) != 1 {
		v.Err = metaerr.NewParseError(v.Line, "block", fmt.Errorf("%w: got %d Id and %d ASIN lines", metaerr.ErrBlockShape, len(v.ID), len(v.ASIN)))
		return v
	}
	for _, f := range []struct {
		name string
		n    int
	}{
		{"title", len(v.Title)},
		{"group", len(v.Group)},
		{"salesrank", len(v.SalesRank)},
		{"similar", len(v.Similar)},
		{"reviews", len(v.Reviews)},
	} {
		if f.n > 1 {
			v.Err = metaerr.NewParseError(v.Line, f.name, fmt.Errorf("%w: %d %s lines", metaerr.ErrBlockShape, f.n, f.name))
			return v
		}
	}
	return v
}

// fail records the first parse error of the block. Later lines are still consumed so
// the reader resynchronises on the next blank line.
func (b *builder) fail(n int, field string, err error) {
	if b.blk.Err == nil {
		b.blk.Err = metaerr.NewParseError(n, field, err)
	}
}

func value(trimmed, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(trimmed, label))
}
