package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/parser"
	"github.com/xuri/excelize/v2"
)

var testSchemas = []models.SheetSchema{
	{Name: "Stock", HeaderRow: 1, DataStartRow: 2, ColumnCount: 2, SearchColumn: 1},
	{Name: "Orders", HeaderRow: 1, DataStartRow: 2, ColumnCount: 2, SearchColumn: 2},
}

// buildWorkbook returns xlsx bytes whose every header and cell carries tag.
// When sheets is empty both test sheets are written.
func buildWorkbook(t testing.TB, tag string, rows int, sheets ...string) []byte {
	t.Helper()
	if len(sheets) == 0 {
		sheets = []string{"Stock", "Orders"}
	}
	f := excelize.NewFile()
	defer f.Close()
	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		f.SetCellValue(sheet, "A1", tag+"-code")
		f.SetCellValue(sheet, "B1", tag+"-name")
		for r := 2; r < rows+2; r++ {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", r), fmt.Sprintf("%s-%d", tag, r))
			f.SetCellValue(sheet, fmt.Sprintf("B%d", r), fmt.Sprintf("%s-item", tag))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// fakePolicy serves in-memory workbooks and counts opens.
type fakePolicy struct {
	mu        sync.Mutex
	kind      models.SourceKind
	fresh     func(current *Snapshot) bool
	docs      [][]byte
	next      int
	openErr   error
	opens     int32
	invalids  int32
	openDelay time.Duration
}

func (p *fakePolicy) Kind() models.SourceKind { return p.kind }

func (p *fakePolicy) Check(ctx context.Context, current *Snapshot) (Freshness, error) {
	if p.fresh != nil && p.fresh(current) {
		return Fresh, nil
	}
	return Stale, nil
}

func (p *fakePolicy) Open(ctx context.Context) (*parser.Workbook, time.Time, error) {
	atomic.AddInt32(&p.opens, 1)
	if p.openDelay > 0 {
		time.Sleep(p.openDelay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, time.Time{}, p.openErr
	}
	doc := p.docs[p.next%len(p.docs)]
	p.next++
	wb, err := parser.OpenReader(bytes.NewReader(doc), "fake.xlsx")
	return wb, time.Unix(int64(p.next), 0), err
}

func (p *fakePolicy) Invalidate() { atomic.AddInt32(&p.invalids, 1) }

func (p *fakePolicy) Info() models.FileInfo { return models.FileInfo{Source: p.kind} }

func (p *fakePolicy) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openErr = err
}

func (p *fakePolicy) setDocs(docs ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs = docs
	p.next = 0
}

var errUnreachable = errors.New("source unreachable")

// freshOnceBuilt treats any existing snapshot as fresh.
func freshOnceBuilt(current *Snapshot) bool { return current != nil }
