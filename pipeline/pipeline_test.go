package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/CatalogLoad/config"
	"github.com/CatalogLoad/db"
	"github.com/CatalogLoad/dbConn"
	"github.com/CatalogLoad/metaerr"
	"github.com/CatalogLoad/runlog"
	slog "github.com/CatalogLoad/syslog"
	"github.com/CatalogLoad/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

var sample = filepath.Join("..", "testdata", "amazon-meta-sample.txt")

var want = map[string]int{
	types.EntityProduct:         4,
	types.EntitySimilarLink:     7,
	types.EntityReview:          5,
	types.EntityCustomer:        4,
	types.EntityCategory:        12,
	types.EntityProductCategory: 19,
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Input = sample
	cfg.ReadBatch = 2
	cfg.Database = config.Database{Driver: "sqlite", Name: "file::memory:"}
	return cfg
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := dbConn.Open(testConfig().Database)
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close(gdb) })
	require.NoError(t, db.CreateSchema(context.Background(), gdb))
	return gdb
}

func open(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open(sample)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func count(t *testing.T, gdb *gorm.DB, table string) int {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Table(table).Count(&n).Error)
	return int(n)
}

type fakeIndexer struct {
	products []types.Product
}

func (f *fakeIndexer) IndexProducts(_ context.Context, products []types.Product) (int, error) {
	n := 0
	for _, p := range products {
		if !p.Stub() {
			f.products = append(f.products, p)
			n++
		}
	}
	return n, nil
}

type fakeRecorder struct {
	runs []runlog.Run
}

func (f *fakeRecorder) Put(_ context.Context, run runlog.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

func TestParseSample(t *testing.T) {
	res, err := New(testConfig()).Parse(context.Background(), open(t))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Blocks)
	require.Len(t, res.ParseErrors, 1)
	assert.True(t, metaerr.IsParse(res.ParseErrors[0]))
	assert.Contains(t, res.ParseErrors[0].Error(), "line 41")
	assert.False(t, res.Aborted)

	for entity, n := range want {
		assert.Equal(t, n, res.Rows.Count(entity), entity)
	}
}

func TestWorkersDoNotChangeOutput(t *testing.T) {
	one, err := New(testConfig()).Parse(context.Background(), open(t))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Workers = 4
	cfg.ReadBatch = 5
	many, err := New(cfg).Parse(context.Background(), open(t))
	require.NoError(t, err)

	if diff := cmp.Diff(one.Rows, many.Rows); diff != "" {
		t.Errorf("rows differ with 4 workers (-1 +4):\n%s", diff)
	}
}

func TestRunSample(t *testing.T) {
	gdb := setupSQLite(t)
	ix := &fakeIndexer{}
	rec := &fakeRecorder{}

	res, err := New(testConfig(), WithStore(gdb), WithIndexer(ix), WithRunLog(rec)).Run(context.Background(), open(t))
	require.NoError(t, err)
	require.False(t, res.Failed())

	for entity, n := range want {
		assert.Equal(t, n, count(t, gdb, entity), entity)
	}
	// the rejected block contributes nothing
	var n int64
	require.NoError(t, gdb.Table(types.EntityProduct).Where("product_id = ?", 3).Count(&n).Error)
	assert.Zero(t, n)

	assert.Equal(t, 3, res.Indexed)
	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, res.RunID, run.RunID)
	assert.Equal(t, runlog.StatusOK, run.Status)
	assert.Equal(t, 1, run.ParseErrors)
	assert.Len(t, run.Entities, 6)
}

func TestRunIsIdempotent(t *testing.T) {
	gdb := setupSQLite(t)

	_, err := New(testConfig(), WithStore(gdb)).Run(context.Background(), open(t))
	require.NoError(t, err)

	res, err := New(testConfig(), WithStore(gdb)).Run(context.Background(), open(t))
	require.NoError(t, err)
	require.False(t, res.Failed())

	for _, e := range res.Report {
		assert.Zero(t, e.Inserted, e.Entity)
		assert.Equal(t, want[e.Entity], count(t, gdb, e.Entity), e.Entity)
	}
}

func TestAbortOnParseError(t *testing.T) {
	gdb := setupSQLite(t)
	rec := &fakeRecorder{}

	cfg := testConfig()
	cfg.OnParseError = "abort"
	res, err := New(cfg, WithStore(gdb), WithRunLog(rec)).Run(context.Background(), open(t))

	require.Error(t, err)
	assert.True(t, errors.Is(err, metaerr.ErrAborted))
	assert.True(t, res.Aborted)
	assert.True(t, res.Failed())
	assert.Zero(t, count(t, gdb, types.EntityProduct))

	require.Len(t, rec.runs, 1)
	assert.Equal(t, runlog.StatusAborted, rec.runs[0].Status)
}

func TestRunSharedASINKeepsFirstBlock(t *testing.T) {
	block := func(id, customer string) string {
		return "Id: " + id + "\nASIN: A\n  title: T" + id + "\n" +
			"  categories: 1\n   |Cat[10]\n" +
			"  reviews: total: 1  downloaded: 1  avg rating: 5\n" +
			"    2001-1-1  cutomer: " + customer + "  rating: 5  votes: 1  helpful: 1\n\n"
	}
	in := block("1", "C1") + block("2", "C2")

	cfg := testConfig()
	cfg.HeaderLines = 0
	gdb := setupSQLite(t)
	res, err := New(cfg, WithStore(gdb)).Run(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.False(t, res.Failed())
	assert.Empty(t, res.ParseErrors)

	assert.Equal(t, 1, count(t, gdb, types.EntityProduct))
	assert.Equal(t, 1, count(t, gdb, types.EntityReview))
	assert.Equal(t, 1, count(t, gdb, types.EntityProductCategory))

	var review types.Review
	require.NoError(t, gdb.First(&review).Error)
	assert.Equal(t, int64(1), review.ProductID)
	assert.Equal(t, "C1", review.CustomerID)

	var link types.ProductCategory
	require.NoError(t, gdb.First(&link).Error)
	assert.Equal(t, types.ProductCategory{ProductID: 1, CategoryID: 10}, link)
}

func TestParseLogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	slog.SetLogger(zap.New(core))
	t.Cleanup(func() { slog.SetLogger(zap.NewNop()) })

	_, err := New(testConfig()).Parse(context.Background(), open(t))
	require.NoError(t, err)

	entries := logs.FilterMessage("parse complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(5), fields["blocks"])
	assert.Equal(t, int64(1), fields["rejected"])
	assert.Equal(t, int64(4), fields["products"])
	assert.Equal(t, int64(0), fields["conflicts"])
}

func TestErrorLimit(t *testing.T) {
	in := "Id: 1\nASIN: A\n  salesrank: x\n\nId: 2\nASIN: B\n  salesrank: y\n\nId: 3\nASIN: C\n"

	cfg := testConfig()
	cfg.HeaderLines = 0
	cfg.ErrorLimit = 2
	res, err := New(cfg).Parse(context.Background(), strings.NewReader(in))
	assert.ErrorIs(t, err, metaerr.ErrAborted)
	assert.Len(t, res.ParseErrors, 2)

	cfg.ErrorLimit = 3
	res, err = New(cfg).Parse(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, res.Rows.Products, 1)
}

func TestEntityFailureIsReported(t *testing.T) {
	gdb := setupSQLite(t)
	require.NoError(t, gdb.Exec("DROP TABLE produto_categoria").Error)

	res, err := New(testConfig(), WithStore(gdb)).Run(context.Background(), open(t))
	require.NoError(t, err)
	assert.True(t, res.Failed())

	e, ok := res.Report.Entity(types.EntityProductCategory)
	require.True(t, ok)
	assert.Error(t, e.Err)
	assert.Equal(t, want[types.EntityReview], count(t, gdb, types.EntityReview))
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestInputFailureIsFatal(t *testing.T) {
	gdb := setupSQLite(t)
	_, err := New(testConfig(), WithStore(gdb)).Run(context.Background(), brokenReader{})
	assert.ErrorContains(t, err, "connection reset by peer")
}

func TestRunNeedsStore(t *testing.T) {
	_, err := New(testConfig()).Run(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestCancelledRun(t *testing.T) {
	gdb := setupSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(), WithStore(gdb)).Run(ctx, open(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, count(t, gdb, types.EntityProduct))
}
