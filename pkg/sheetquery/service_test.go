package sheetquery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/cache"
	sqerrors "github.com/ukaji3/sheetquery-go/pkg/sheetquery/errors"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/xuri/excelize/v2"
)

var serviceSchemas = []models.SheetSchema{
	{Name: "在庫", HeaderRow: 5, DataStartRow: 6, DataEndRow: 30, ColumnCount: 3, SearchColumn: 2, SearchLabel: "品番"},
	{Name: "Orders", HeaderRow: 1, DataStartRow: 2, ColumnCount: 2, SearchColumn: 1, SearchLabel: "Order"},
}

// writeStockBook builds a workbook with both configured sheets. Quantities
// are offset by qtyBase so tests can tell versions apart.
func writeStockBook(t testing.TB, qtyBase int) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "在庫"))
	f.SetCellValue("在庫", "A1", "Inventory report")
	f.SetCellValue("在庫", "A5", "No")
	f.SetCellValue("在庫", "B5", "品番")
	for r := 6; r <= 12; r++ {
		f.SetCellValue("在庫", fmt.Sprintf("A%d", r), r-5)
		f.SetCellValue("在庫", fmt.Sprintf("B%d", r), fmt.Sprintf("P-%03d", r*10))
		f.SetCellValue("在庫", fmt.Sprintf("C%d", r), float64(qtyBase+r))
	}
	f.SetCellValue("在庫", "C13", 0)

	_, err := f.NewSheet("Orders")
	require.NoError(t, err)
	f.SetCellValue("Orders", "A1", "Order")
	f.SetCellValue("Orders", "B1", "Shipped")
	f.SetCellValue("Orders", "A2", "ORD-1")
	f.SetCellValue("Orders", "B2", true)
	f.SetCellValue("Orders", "A3", "ORD-2")
	f.SetCellValue("Orders", "B3", false)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func newLocalService(t *testing.T) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stock.xlsm")
	require.NoError(t, os.WriteFile(path, writeStockBook(t, 100), 0o644))
	svc, err := Open(context.Background(), serviceSchemas, SourceOptions{Path: path})
	require.NoError(t, err)
	return svc, path
}

func TestServiceLocalQueries(t *testing.T) {
	svc, _ := newLocalService(t)
	ctx := context.Background()

	assert.Equal(t, models.SourceLocal, svc.Source())
	assert.Equal(t, "在庫", svc.DefaultSheet().Name)
	assert.Equal(t, []models.SheetInfo{
		{Name: "在庫", SearchLabel: "品番"},
		{Name: "Orders", SearchLabel: "Order"},
	}, svc.ListSheets())

	headers, err := svc.Headers(ctx, "在庫")
	require.NoError(t, err)
	assert.Equal(t, []models.HeaderEntry{
		{Col: 1, Letter: "A", Name: "No"},
		{Col: 2, Letter: "B", Name: "品番"},
		{Col: 3, Letter: "C", Name: "(C)"},
	}, headers)

	cell, err := svc.Cell(ctx, "在庫", 3, 6)
	require.NoError(t, err)
	assert.Equal(t, "106", *cell.Value)
	assert.Equal(t, "(C)", cell.Header)

	cell, err = svc.Cell(ctx, "在庫", 3, 13)
	require.NoError(t, err)
	assert.Equal(t, "0", *cell.Value, "zero is a value")

	cell, err = svc.Cell(ctx, "在庫", 1, 30)
	require.NoError(t, err)
	assert.Nil(t, cell.Value)

	_, err = svc.Cell(ctx, "在庫", 1, 31)
	assert.ErrorIs(t, err, sqerrors.ErrRange)

	rng, err := svc.Range(ctx, "在庫", 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 6, rng.RowStart)
	assert.Len(t, rng.Rows, 3)
	assert.Equal(t, "P-060", *rng.Rows[0].Data["B"])

	res, err := svc.Search(ctx, "在庫", "P-1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count) // P-100, P-110, P-120

	orders, err := svc.Range(ctx, "Orders", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "True", *orders.Rows[0].Data["B"])
	assert.Equal(t, "False", *orders.Rows[1].Data["B"])

	_, err = svc.Headers(ctx, "Missing")
	assert.ErrorIs(t, err, sqerrors.ErrUnknownSheet)
	_, err = svc.Search(ctx, "在庫", " ")
	assert.ErrorIs(t, err, sqerrors.ErrValidation)
}

func TestListSheetsDefaultLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.xlsm")
	require.NoError(t, os.WriteFile(path, writeStockBook(t, 0), 0o644))
	schemas := []models.SheetSchema{serviceSchemas[0]}
	schemas[0].SearchLabel = ""

	svc, err := Open(context.Background(), schemas, SourceOptions{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "B", svc.ListSheets()[0].SearchLabel)

	require.NoError(t, svc.Warm(context.Background()))
	assert.Equal(t, "品番", svc.ListSheets()[0].SearchLabel)
}

func TestServiceLocalRefreshIsSkipped(t *testing.T) {
	svc, path := newLocalService(t)
	ctx := context.Background()

	require.NoError(t, svc.Warm(ctx))
	before := svc.Cache().Peek()

	res, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, RefreshSkipped, res.Status)
	assert.Equal(t, models.SourceLocal, res.Source)
	assert.NotEmpty(t, res.Message)
	assert.Same(t, before, svc.Cache().Peek())

	// a new modification time is what triggers the reload
	require.NoError(t, os.WriteFile(path, writeStockBook(t, 500), 0o644))
	mtime := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	cell, err := svc.Cell(ctx, "在庫", 3, 6)
	require.NoError(t, err)
	assert.Equal(t, "506", *cell.Value)

	info := svc.FileInfo()
	assert.Equal(t, "stock.xlsm", info.Filename)
	require.NotNil(t, info.Cache)
	assert.Equal(t, uint64(2), info.Cache.Generation)
	assert.Equal(t, 13, info.Cache.MaxRows["在庫"])
	assert.Equal(t, 3, info.Cache.MaxRows["Orders"])
}

func TestServiceRemoteRefreshRefetches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''%E5%9C%A8%E5%BA%AB.xlsm")
		_, _ = w.Write(writeStockBook(t, int(n)*1000))
	}))
	defer srv.Close()

	svc, err := Open(context.Background(), serviceSchemas, SourceOptions{URL: srv.URL + "/s/abc", FetchTTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, models.SourceRemote, svc.Source())
	ctx := context.Background()

	cell, err := svc.Cell(ctx, "在庫", 3, 6)
	require.NoError(t, err)
	assert.Equal(t, "1006", *cell.Value)

	_, err = svc.Search(ctx, "Orders", "ORD")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "reads inside the window reuse the fetch")

	res, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, RefreshRefreshed, res.Status)
	assert.Equal(t, models.SourceRemote, res.Source)
	assert.GreaterOrEqual(t, res.ElapsedSeconds, 0.0)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	cell, err = svc.Cell(ctx, "在庫", 3, 6)
	require.NoError(t, err)
	assert.Equal(t, "2006", *cell.Value)

	info := svc.FileInfo()
	assert.Equal(t, "在庫.xlsm", info.Filename)
	assert.Equal(t, srv.URL+"/s/abc", info.FinalURL)
}

func TestServiceRemoteFailureKeepsServing(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(writeStockBook(t, 0))
	}))
	defer srv.Close()

	svc, err := Open(context.Background(), serviceSchemas, SourceOptions{URL: srv.URL, FetchTTL: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx))

	fail.Store(true)
	_, err = svc.Refresh(ctx)
	assert.ErrorIs(t, err, sqerrors.ErrSourceUnavailable)

	store, err := svc.Cache().PeekStore("在庫")
	require.NoError(t, err)
	assert.Equal(t, 13, store.MaxRow)

	fail.Store(false)
	cell, err := svc.Cell(ctx, "在庫", 3, 6)
	require.NoError(t, err)
	assert.Equal(t, "6", *cell.Value)
}

func TestNewPolicy(t *testing.T) {
	ctx := context.Background()

	_, err := NewPolicy(ctx, SourceOptions{})
	assert.Error(t, err)

	p, err := NewPolicy(ctx, SourceOptions{Path: "/data/stock.xlsm"})
	require.NoError(t, err)
	assert.IsType(t, &cache.LocalPolicy{}, p)

	p, err = NewPolicy(ctx, SourceOptions{Path: "/data/stock.xlsm", URL: "https://example.com/s/abc"})
	require.NoError(t, err)
	assert.IsType(t, &cache.RemotePolicy{}, p, "url wins over path")

	_, err = NewPolicy(ctx, SourceOptions{URL: "s3://bucket-only"})
	assert.Error(t, err)
}

func TestRoundSeconds(t *testing.T) {
	assert.Equal(t, 1.23, roundSeconds(1234*time.Millisecond))
	assert.Equal(t, 0.0, roundSeconds(2*time.Millisecond))
}
