// Package fts keeps a full-text side index of described products in Elasticsearch.
package fts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/CatalogLoad/config"
	param "github.com/CatalogLoad/param"
	slog "github.com/CatalogLoad/syslog"
	"github.com/CatalogLoad/types"

	esv7 "github.com/elastic/go-elasticsearch/v7"
	esapi "github.com/elastic/go-elasticsearch/v7/esapi"
)

const (
	logid = "ElasticSearch: "
)

func syslog(s string) {
	slog.Log(logid, s)
}

// Doc is the indexed form of a product.
type Doc struct {
	ProductID int64   `json:"product_id"`
	ASIN      string  `json:"asin"`
	Title     string  `json:"title,omitempty"`
	Group     string  `json:"group,omitempty"`
	SalesRank *int64  `json:"salesrank,omitempty"`
	ReviewAvg float64 `json:"review_avg"`
}

func newDoc(p types.Product) Doc {
	d := Doc{ProductID: p.ID, ASIN: p.ASIN, SalesRank: p.SalesRank, ReviewAvg: p.ReviewAvg}
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Group != nil {
		d.Group = *p.Group
	}
	return d
}

type Indexer struct {
	es    *esv7.Client
	index string
	batch int
}

func New(cfg config.Search) (*Indexer, error) {

	es, err := esv7.NewClient(esv7.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	index := cfg.Index
	if len(index) == 0 {
		index = param.SearchIndex
	}
	return &Indexer{es: es, index: index, batch: param.IndexBatch}, nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// IndexProducts indexes every non-stub product, keyed by product id, so a re-run
// overwrites rather than duplicates. It returns the number of documents indexed.
// Document level rejections are logged and counted as not indexed.
func (ix *Indexer) IndexProducts(ctx context.Context, products []types.Product) (int, error) {

	var (
		buf     bytes.Buffer
		pending int
		indexed int
	)
	t0 := time.Now()

	flush := func() error {
		if pending == 0 {
			return nil
		}
		n, err := ix.bulk(ctx, &buf)
		if err != nil {
			return err
		}
		indexed += n
		buf.Reset()
		pending = 0
		return nil
	}

	for _, p := range products {
		if p.Stub() {
			continue
		}
		meta := map[string]map[string]string{"index": {"_id": strconv.FormatInt(p.ID, 10)}}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return indexed, err
		}
		if err := json.NewEncoder(&buf).Encode(newDoc(p)); err != nil {
			return indexed, err
		}
		pending++
		if pending == ix.batch {
			if err := flush(); err != nil {
				return indexed, err
			}
		}
	}
	if err := flush(); err != nil {
		return indexed, err
	}
	syslog(fmt.Sprintf("indexed %d products into %s in %s", indexed, ix.index, time.Since(t0)))

	return indexed, nil
}

func (ix *Indexer) bulk(ctx context.Context, body *bytes.Buffer) (int, error) {

	req := esapi.BulkRequest{
		Index: ix.index,
		Body:  bytes.NewReader(body.Bytes()),
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return 0, fmt.Errorf("bulk index %s: %w", ix.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("bulk index %s: %s", ix.index, res.Status())
	}
	var r bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("bulk index %s: parse response: %w", ix.index, err)
	}

	ok := 0
	for _, item := range r.Items {
		for _, v := range item {
			if v.Status > 299 {
				syslog(fmt.Sprintf("Error indexing document ID=%s. Status: %d %s: %s", v.ID, v.Status, v.Error.Type, v.Error.Reason))
				continue
			}
			ok++
		}
	}
	return ok, nil
}
