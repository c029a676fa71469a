package loader

import (
	slog "github.com/CatalogLoad/syslog"
	"github.com/CatalogLoad/types"
)

type reviewKey struct {
	product  int64
	customer string
	date     string
}

type similarKey struct {
	product, similar string
}

type linkKey struct {
	product, category int64
}

// Accumulator gathers the rows of every block of a run. Each entity is kept unique on its
// table key; the first row seen for a key wins, as the store's conflict-ignore insert
// would do. Not safe for concurrent use.
type Accumulator struct {
	rows types.RowSet

	products   map[int64]string
	asins      map[string]int64
	similar    map[similarKey]struct{}
	reviews    map[reviewKey]struct{}
	customers  map[string]struct{}
	categories map[int64]struct{}
	links      map[linkKey]struct{}

	conflicts int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		products:   make(map[int64]string),
		asins:      make(map[string]int64),
		similar:    make(map[similarKey]struct{}),
		reviews:    make(map[reviewKey]struct{}),
		customers:  make(map[string]struct{}),
		categories: make(map[int64]struct{}),
		links:      make(map[linkKey]struct{}),
	}
}

// Add merges one block's rows, in order. A product whose id or ASIN is already held by a
// different product is dropped together with the reviews, similar links and category links
// that point at it; customers and categories are kept.
func (a *Accumulator) Add(rs types.RowSet) {

	var (
		dropIDs   map[int64]struct{}
		dropASINs map[string]struct{}
	)
	for _, p := range rs.Products {
		asin, idTaken := a.products[p.ID]
		id, asinTaken := a.asins[p.ASIN]
		switch {
		case !idTaken && !asinTaken:
			a.products[p.ID] = p.ASIN
			a.asins[p.ASIN] = p.ID
			a.rows.Products = append(a.rows.Products, p)
		case idTaken && asinTaken && asin == p.ASIN && id == p.ID:
			// same product again; its dependent rows still resolve
		default:
			if dropIDs == nil {
				dropIDs = make(map[int64]struct{})
				dropASINs = make(map[string]struct{})
			}
			dropIDs[p.ID] = struct{}{}
			dropASINs[p.ASIN] = struct{}{}
			a.conflicts++
			slog.Named(logid).Warnw("product dropped, id or asin already loaded",
				"product_id", p.ID, "asin", p.ASIN)
		}
	}
	for _, s := range rs.SimilarLinks {
		if _, ok := dropASINs[s.ProductASIN]; ok {
			continue
		}
		k := similarKey{s.ProductASIN, s.SimilarASIN}
		if _, ok := a.similar[k]; !ok {
			a.similar[k] = struct{}{}
			a.rows.SimilarLinks = append(a.rows.SimilarLinks, s)
		}
	}
	for _, r := range rs.Reviews {
		if _, ok := dropIDs[r.ProductID]; ok {
			continue
		}
		k := reviewKey{r.ProductID, r.CustomerID, r.Date}
		if _, ok := a.reviews[k]; !ok {
			a.reviews[k] = struct{}{}
			a.rows.Reviews = append(a.rows.Reviews, r)
		}
	}
	for _, c := range rs.Customers {
		if _, ok := a.customers[c.ID]; !ok {
			a.customers[c.ID] = struct{}{}
			a.rows.Customers = append(a.rows.Customers, c)
		}
	}
	for _, c := range rs.Categories {
		if _, ok := a.categories[c.ID]; !ok {
			a.categories[c.ID] = struct{}{}
			a.rows.Categories = append(a.rows.Categories, c)
		}
	}
	for _, l := range rs.ProductCategories {
		if _, ok := dropIDs[l.ProductID]; ok {
			continue
		}
		k := linkKey{l.ProductID, l.CategoryID}
		if _, ok := a.links[k]; !ok {
			a.links[k] = struct{}{}
			a.rows.ProductCategories = append(a.rows.ProductCategories, l)
		}
	}
}

// Conflicts returns the number of products dropped for a clashing id or ASIN.
func (a *Accumulator) Conflicts() int {
	return a.conflicts
}

// Rows returns the accumulated rows in first-seen order. The slices are shared with the
// accumulator.
func (a *Accumulator) Rows() types.RowSet {
	return a.rows
}
