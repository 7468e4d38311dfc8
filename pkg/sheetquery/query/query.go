// Package query answers cell, range and search requests against one
// resolved row store. Every operation is a pure read.
package query

import (
	"strings"

	sqerrors "github.com/ukaji3/sheetquery-go/pkg/sheetquery/errors"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// MaxRangeSpan is the largest row_end - row_start a range scan returns.
const MaxRangeSpan = 100

// DefaultRangeRows is the number of rows returned when only a start row is known.
const DefaultRangeRows = 20

// Render returns the display text of v, or nil for an absent cell.
func Render(v models.Value) *string {
	s, ok := v.Render()
	if !ok {
		return nil
	}
	return &s
}

// Cell looks up one cell. Column and row must lie inside the schema bounds;
// the last row is the schema's fixed bound or the store's highest row.
func Cell(store *models.RowStore, schema models.SheetSchema, col, row int) (*models.CellResult, error) {
	if col < 1 || col > schema.ColumnCount {
		return nil, sqerrors.Range("col must be between 1 and %d, got %d", schema.ColumnCount, col)
	}
	last := schema.EffectiveLastRow(store.MaxRow)
	if row < schema.DataStartRow || row > last {
		return nil, sqerrors.Range("row must be between %d and %d, got %d", schema.DataStartRow, last, row)
	}

	return &models.CellResult{
		Col:    col,
		Row:    row,
		Header: store.Headers[col-1].Name,
		Value:  Render(store.Cell(row, col)),
	}, nil
}

// Range scans rows from start to end inclusive. start is raised to the first
// data row, end is lowered to the last row, then the span is capped at
// MaxRangeSpan. The applied bounds are echoed in the result.
func Range(store *models.RowStore, schema models.SheetSchema, start, end int) *models.RangeResult {
	if start < schema.DataStartRow {
		start = schema.DataStartRow
	}
	if last := schema.EffectiveLastRow(store.MaxRow); end > last {
		end = last
	}
	if end-start > MaxRangeSpan {
		end = start + MaxRangeSpan
	}

	res := &models.RangeResult{
		RowStart: start,
		RowEnd:   end,
		Headers:  store.Headers,
		Rows:     []models.RowResult{},
	}
	for r := start; r <= end; r++ {
		res.Rows = append(res.Rows, renderRow(store, r))
	}
	return res
}

// Search returns every data row whose trimmed search-column text contains q.
// q is matched as given; a blank q is rejected. Rows come back in ascending order.
func Search(store *models.RowStore, schema models.SheetSchema, q string) (*models.SearchResult, error) {
	if strings.TrimSpace(q) == "" {
		return nil, sqerrors.Validation("query must not be empty")
	}

	res := &models.SearchResult{
		Query:   q,
		Headers: store.Headers,
		Rows:    []models.RowResult{},
	}
	last := schema.EffectiveLastRow(store.MaxRow)
	for r := schema.DataStartRow; r <= last; r++ {
		if _, ok := store.Rows[r]; !ok {
			continue
		}
		text, ok := store.Cell(r, schema.SearchColumn).Render()
		if !ok {
			continue
		}
		if strings.Contains(strings.TrimSpace(text), q) {
			res.Rows = append(res.Rows, renderRow(store, r))
		}
	}
	res.Count = len(res.Rows)
	return res, nil
}

// renderRow renders every configured column of row r keyed by column letter.
func renderRow(store *models.RowStore, r int) models.RowResult {
	data := make(map[string]*string, len(store.Headers))
	for _, h := range store.Headers {
		data[h.Letter] = Render(store.Cell(r, h.Col))
	}
	return models.RowResult{Row: r, Data: data}
}
