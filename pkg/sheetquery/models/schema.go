package models

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetSchema describes the flat table layout of one sheet.
type SheetSchema struct {
	// Name is the worksheet name in the workbook.
	Name string `json:"name"`
	// HeaderRow is the 1-based row holding column titles.
	HeaderRow int `json:"header_row"`
	// DataStartRow is the first 1-based data row.
	DataStartRow int `json:"data_start_row"`
	// DataEndRow is the last data row, or 0 when the end is discovered at parse time.
	DataEndRow int `json:"data_end_row,omitempty"`
	// ColumnCount is the width of the column range starting at column A.
	ColumnCount int `json:"column_count"`
	// SearchColumn is the 1-based column used by substring search.
	SearchColumn int `json:"search_column"`
	// SearchLabel is the human readable name of the search column.
	SearchLabel string `json:"search_label"`
}

// Bounded reports whether the schema fixes the last data row.
func (s SheetSchema) Bounded() bool {
	return s.DataEndRow > 0
}

// EffectiveLastRow returns the fixed last row if configured, else maxRow.
func (s SheetSchema) EffectiveLastRow(maxRow int) int {
	if s.Bounded() {
		return s.DataEndRow
	}
	return maxRow
}

// Validate checks the schema invariants.
func (s SheetSchema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("sheet name is required")
	}
	if s.HeaderRow < 1 {
		return fmt.Errorf("sheet %q: header_row must be >= 1, got %d", s.Name, s.HeaderRow)
	}
	if s.DataStartRow <= s.HeaderRow {
		return fmt.Errorf("sheet %q: data_start_row (%d) must be greater than header_row (%d)",
			s.Name, s.DataStartRow, s.HeaderRow)
	}
	if s.Bounded() && s.DataEndRow < s.DataStartRow {
		return fmt.Errorf("sheet %q: data_end_row (%d) must not be less than data_start_row (%d)",
			s.Name, s.DataEndRow, s.DataStartRow)
	}
	if s.ColumnCount < 1 || s.ColumnCount > excelize.MaxColumns {
		return fmt.Errorf("sheet %q: column count must be between 1 and %d, got %d",
			s.Name, excelize.MaxColumns, s.ColumnCount)
	}
	if s.SearchColumn < 1 || s.SearchColumn > s.ColumnCount {
		return fmt.Errorf("sheet %q: search_column must be between 1 and %d, got %d",
			s.Name, s.ColumnCount, s.SearchColumn)
	}
	return nil
}

// ColumnLetter converts a 1-based column number to its letter form (1→A, 27→AA).
func ColumnLetter(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}
