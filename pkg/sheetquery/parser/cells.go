package parser

import (
	"fmt"
	"strconv"
	"strings"

	sqerrors "github.com/ukaji3/sheetquery-go/pkg/sheetquery/errors"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/xuri/excelize/v2"
)

// ExtractRows reads rows from the schema's header row through its last data
// row (or the end of the sheet when unbounded). Each stored row has exactly
// schema.ColumnCount values; rows with no value at all are skipped.
// Numeric cells formatted as dates or times are stored as date text.
func ExtractRows(f *excelize.File, schema models.SheetSchema) (*models.RowStore, error) {
	idx, err := f.GetSheetIndex(schema.Name)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", sqerrors.ErrSheetNotFound, schema.Name)
	}

	rows, err := f.GetRows(schema.Name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", schema.Name, err)
	}

	dates, err := newDateStyles(f)
	if err != nil {
		return nil, err
	}

	last := len(rows)
	if schema.Bounded() && schema.DataEndRow < last {
		last = schema.DataEndRow
	}

	store := models.NewRowStore(schema.Name, nil)
	for rowNum := schema.HeaderRow; rowNum <= last; rowNum++ {
		raw := rows[rowNum-1] // 1-based row index
		values := make([]models.Value, schema.ColumnCount)
		hasData := false

		for colIdx := 0; colIdx < schema.ColumnCount && colIdx < len(raw); colIdx++ {
			if raw[colIdx] == "" {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowNum)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(schema.Name, cellName)
			if err != nil {
				return nil, fmt.Errorf("cell type of %s!%s: %w", schema.Name, cellName, err)
			}
			value := parseValue(raw[colIdx], cellType)
			if value.Kind == models.KindNumber {
				if value, err = dates.convert(schema.Name, cellName, value); err != nil {
					return nil, err
				}
			}
			values[colIdx] = value
			hasData = true
		}

		if hasData {
			store.Rows[rowNum] = values
			store.MaxRow = rowNum
		}
	}

	store.Headers = buildHeaders(store.Rows[schema.HeaderRow], schema.ColumnCount)
	return store, nil
}

// buildHeaders derives header entries from the header row values.
func buildHeaders(headerValues []models.Value, width int) []models.HeaderEntry {
	headers := make([]models.HeaderEntry, width)
	for col := 1; col <= width; col++ {
		letter := models.ColumnLetter(col)
		name := ""
		if col <= len(headerValues) {
			name, _ = headerValues[col-1].Render()
		}
		if name == "" {
			name = models.PlaceholderName(letter)
		}
		headers[col-1] = models.HeaderEntry{Col: col, Letter: letter, Name: name}
	}
	return headers
}

// parseValue converts a raw cell string to a typed value.
// Numbers are stored without a type attribute, so CellTypeUnset is numeric too.
func parseValue(raw string, cellType excelize.CellType) models.Value {
	switch cellType {
	case excelize.CellTypeBool:
		return models.Boolean(raw == "1" || strings.EqualFold(raw, "TRUE"))
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return models.Number(f)
		}
		return models.Text(raw)
	default:
		return models.Text(raw)
	}
}
