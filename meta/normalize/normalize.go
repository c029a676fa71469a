// Package normalize fans a parsed block out into the rows of the six catalog tables.
// It is pure: the same block always yields the same rows, and no state is shared
// between calls, so blocks may be normalized concurrently.
package normalize

import (
	"fmt"

	"github.com/CatalogLoad/meta/ds"
	"github.com/CatalogLoad/meta/extract"
	"github.com/CatalogLoad/metaerr"
	"github.com/CatalogLoad/types"
)

// Block maps one finalized block to rows. Blocks that failed to parse are refused with
// their parse error.
func Block(b *ds.Block) (types.RowSet, error) {
	var rs types.RowSet

	if b == nil {
		return rs, nil
	}
	if b.Err != nil {
		return rs, b.Err
	}
	if len(b.ID) != 1 || len(b.ASIN) != 1 {
		return rs, metaerr.NewParseError(b.Line, "block", fmt.Errorf("%w: got %d Id and %d ASIN lines", metaerr.ErrBlockShape, len(b.ID), len(b.ASIN)))
	}

	rs.Products = []types.Product{product(b)}
	rs.SimilarLinks = similar(b)

	var categoryIDs []int64
	rs.Categories, categoryIDs = categories(b)
	rs.ProductCategories = Cross(b.ID, categoryIDs)

	rs.Reviews, rs.Customers = reviews(b)

	return rs, nil
}

func product(b *ds.Block) types.Product {

	p := types.Product{ID: b.ID[0], ASIN: b.ASIN[0]}
	if b.Stub() {
		return p
	}
	if len(b.Title) > 0 {
		p.Title = &b.Title[0]
	}
	if len(b.Group) > 0 {
		p.Group = &b.Group[0]
	}
	if len(b.SalesRank) > 0 {
		p.SalesRank = &b.SalesRank[0]
	}
	if len(b.Reviews) > 0 {
		p.ReviewTotal = b.Reviews[0].Total
		p.ReviewDownloaded = b.Reviews[0].Downloaded
		p.ReviewAvg = b.Reviews[0].AvgRating
	}
	return p
}

// similar pairs the block ASIN with each listed ASIN. Lists of one entry or less are
// not recorded.
func similar(b *ds.Block) []types.SimilarLink {
	var out []types.SimilarLink

	for i, s := range b.Similar {
		if len(s.ASINs) <= 1 || i >= len(b.ASIN) {
			continue
		}
		for _, a := range s.ASINs {
			out = append(out, types.SimilarLink{ProductASIN: b.ASIN[i], SimilarASIN: a})
		}
	}
	return out
}

// categories returns one row per distinct category id across all paths of the block,
// plus the ids in first-seen order. Labels without an id are dropped.
func categories(b *ds.Block) ([]types.Category, []int64) {
	var (
		rows []types.Category
		ids  []int64
		seen = make(map[int64]struct{})
	)
	for _, path := range b.Categories {
		for _, label := range path {
			id, name, ok := extract.CategoryID(label)
			if !ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			rows = append(rows, types.Category{ID: id, Name: name})
			ids = append(ids, id)
		}
	}
	return rows, ids
}

// Cross links every product id with every category id: |productIDs| x |categoryIDs|
// rows. Both sets are bounded by the size of a single block.
func Cross(productIDs []int64, categoryIDs []int64) []types.ProductCategory {
	if len(productIDs) == 0 || len(categoryIDs) == 0 {
		return nil
	}
	out := make([]types.ProductCategory, 0, len(productIDs)*len(categoryIDs))
	for _, p := range productIDs {
		for _, c := range categoryIDs {
			out = append(out, types.ProductCategory{ProductID: p, CategoryID: c})
		}
	}
	return out
}

// reviews keys every review by the block's product. Customers are returned once each.
func reviews(b *ds.Block) ([]types.Review, []types.Customer) {
	var (
		rows      []types.Review
		customers []types.Customer
		seen      = make(map[string]struct{})
	)
	productID := b.ID[0]

	for _, rd := range b.ReviewDetails {
		rows = append(rows, types.Review{
			ProductID:  productID,
			CustomerID: rd.Customer,
			Date:       rd.Date,
			Rating:     rd.Rating,
			Votes:      rd.Votes,
			Helpful:    rd.Helpful,
		})
		if _, ok := seen[rd.Customer]; !ok {
			seen[rd.Customer] = struct{}{}
			customers = append(customers, types.Customer{ID: rd.Customer})
		}
	}
	return rows, customers
}
