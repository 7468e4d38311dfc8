package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqerrors "github.com/ukaji3/sheetquery-go/pkg/sheetquery/errors"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

func TestNewValidatesSchemas(t *testing.T) {
	p := &fakePolicy{kind: models.SourceLocal}

	_, err := New(nil, p)
	assert.Error(t, err)

	_, err = New([]models.SheetSchema{testSchemas[0], testSchemas[0]}, p)
	assert.ErrorContains(t, err, "duplicate")

	bad := testSchemas[0]
	bad.DataStartRow = bad.HeaderRow
	_, err = New([]models.SheetSchema{bad}, p)
	assert.Error(t, err)
}

func TestGetBuildsOnceWhileFresh(t *testing.T) {
	p := &fakePolicy{kind: models.SourceLocal, fresh: freshOnceBuilt, docs: [][]byte{buildWorkbook(t, "v1", 3)}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)

	assert.Nil(t, c.Peek())
	_, err = c.PeekStore("Stock")
	assert.ErrorIs(t, err, sqerrors.ErrNotBuilt)

	snap, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, models.SourceLocal, snap.Kind)
	assert.Len(t, snap.Stores, 2, "all configured sheets are built together")

	again, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.opens))

	store, schema, err := c.Store(context.Background(), "Orders")
	require.NoError(t, err)
	assert.Equal(t, "Orders", schema.Name)
	assert.Equal(t, 4, store.MaxRow)
	assert.Equal(t, "v1-name", store.Headers[1].Name)
}

func TestStaleRebuildsWholeSnapshot(t *testing.T) {
	p := &fakePolicy{kind: models.SourceLocal, docs: [][]byte{buildWorkbook(t, "v1", 2), buildWorkbook(t, "v2", 5)}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)

	first, err := c.Get(context.Background())
	require.NoError(t, err)
	second, err := c.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), second.Generation)
	assert.Equal(t, "v1-code", first.Stores["Stock"].Headers[0].Name, "old snapshot is untouched")
	assert.Equal(t, "v2-code", second.Stores["Stock"].Headers[0].Name)
	assert.Equal(t, "v2-code", second.Stores["Orders"].Headers[0].Name)
	assert.Equal(t, 6, second.Stores["Stock"].MaxRow)
}

func TestUnknownSheetDoesNotTouchSource(t *testing.T) {
	p := &fakePolicy{kind: models.SourceLocal, docs: [][]byte{buildWorkbook(t, "v1", 1)}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)

	_, _, err = c.Store(context.Background(), "Missing")
	assert.ErrorIs(t, err, sqerrors.ErrUnknownSheet)
	_, err = c.PeekStore("Missing")
	assert.ErrorIs(t, err, sqerrors.ErrUnknownSheet)
	assert.Equal(t, int32(0), atomic.LoadInt32(&p.opens))
}

func TestFailedRebuildKeepsSnapshot(t *testing.T) {
	p := &fakePolicy{kind: models.SourceLocal, docs: [][]byte{buildWorkbook(t, "v1", 2)}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)

	good, err := c.Get(context.Background())
	require.NoError(t, err)

	p.setErr(errUnreachable)
	_, err = c.Get(context.Background())
	assert.ErrorIs(t, err, sqerrors.ErrSourceUnavailable)
	assert.ErrorIs(t, err, errUnreachable)
	assert.Same(t, good, c.Peek())

	// a workbook missing one configured sheet aborts the whole rebuild
	p.setErr(nil)
	p.setDocs(buildWorkbook(t, "v2", 2, "Stock"))
	_, err = c.Get(context.Background())
	assert.ErrorIs(t, err, sqerrors.ErrSourceUnavailable)
	assert.ErrorIs(t, err, sqerrors.ErrSheetNotFound)
	assert.Same(t, good, c.Peek())

	store, err := c.PeekStore("Orders")
	require.NoError(t, err)
	assert.Equal(t, "v1-code", store.Headers[0].Name)
}

func TestRefreshInvalidatesAndRebuilds(t *testing.T) {
	p := &fakePolicy{kind: models.SourceRemote, fresh: freshOnceBuilt, docs: [][]byte{buildWorkbook(t, "v1", 1), buildWorkbook(t, "v2", 1)}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)

	_, err = c.Get(context.Background())
	require.NoError(t, err)

	elapsed, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.invalids))
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.opens))
	assert.Equal(t, "v2-code", c.Peek().Stores["Stock"].Headers[0].Name)

	c.Invalidate()
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&p.opens), "invalidated snapshot is rebuilt even though the policy says fresh")

	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&p.opens))
}

func TestFailedRefreshRetriesOnNextRead(t *testing.T) {
	p := &fakePolicy{kind: models.SourceRemote, fresh: freshOnceBuilt, docs: [][]byte{buildWorkbook(t, "v1", 1)}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)
	_, err = c.Get(context.Background())
	require.NoError(t, err)

	p.setErr(errUnreachable)
	_, err = c.Refresh(context.Background())
	assert.ErrorIs(t, err, sqerrors.ErrSourceUnavailable)
	assert.NotNil(t, c.Peek())

	p.setErr(nil)
	snap, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Generation)
}

func TestConcurrentGetCollapsesRebuild(t *testing.T) {
	p := &fakePolicy{kind: models.SourceLocal, fresh: freshOnceBuilt, docs: [][]byte{buildWorkbook(t, "v1", 10)}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.opens))
}

func TestConcurrentReadsSeeWholeSnapshots(t *testing.T) {
	p := &fakePolicy{kind: models.SourceLocal, docs: [][]byte{
		buildWorkbook(t, "alpha", 20),
		buildWorkbook(t, "beta", 7),
	}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				snap, err := c.Get(context.Background())
				if !assert.NoError(t, err) {
					return
				}
				tag := strings.TrimSuffix(snap.Stores["Stock"].Headers[0].Name, "-code")
				for name, store := range snap.Stores {
					assert.Equal(t, tag+"-code", store.Headers[0].Name, "sheet %s", name)
					for r, values := range store.Rows {
						if r == 1 {
							continue
						}
						assert.Equal(t, tag+"-item", values[1].Str, "sheet %s row %d", name, r)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestInfoSummarisesSnapshot(t *testing.T) {
	p := &fakePolicy{kind: models.SourceLocal, fresh: freshOnceBuilt, docs: [][]byte{buildWorkbook(t, "v1", 3)}}
	c, err := New(testSchemas, p)
	require.NoError(t, err)

	assert.Nil(t, c.Info().Cache)

	_, err = c.Get(context.Background())
	require.NoError(t, err)
	info := c.Info()
	require.NotNil(t, info.Cache)
	assert.Equal(t, uint64(1), info.Cache.Generation)
	assert.Equal(t, map[string]int{"Stock": 4, "Orders": 4}, info.Cache.MaxRows)
}
