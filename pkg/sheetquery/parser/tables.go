package parser

import (
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// Inspect proposes a schema for every worksheet from the bounding box of its
// non-empty cells. Sheets without any data are omitted.
func (w *Workbook) Inspect() ([]models.SheetSchema, error) {
	var schemas []models.SheetSchema
	for _, sheetName := range w.file.GetSheetList() {
		schema, ok, err := w.InspectSheet(sheetName)
		if err != nil {
			return nil, err
		}
		if ok {
			schemas = append(schemas, schema)
		}
	}
	return schemas, nil
}

// InspectSheet proposes a schema for one sheet. The first non-empty row is
// taken as the header; the width extends from column A to the rightmost
// populated column. The search column is the first column with a header.
func (w *Workbook) InspectSheet(sheetName string) (models.SheetSchema, bool, error) {
	rows, err := w.file.GetRows(sheetName)
	if err != nil {
		return models.SheetSchema{}, false, err
	}

	minRow, _, _, maxCol := findDataBounds(rows)
	if minRow < 0 {
		return models.SheetSchema{}, false, nil
	}

	header := rows[minRow]
	searchCol := 1
	searchLabel := ""
	for colIdx, v := range header {
		if v != "" {
			searchCol = colIdx + 1
			searchLabel = v
			break
		}
	}

	return models.SheetSchema{
		Name:         sheetName,
		HeaderRow:    minRow + 1,
		DataStartRow: minRow + 2,
		DataEndRow:   0,
		ColumnCount:  maxCol + 1,
		SearchColumn: searchCol,
		SearchLabel:  searchLabel,
	}, true, nil
}

// findDataBounds finds the bounding box of non-empty cells (0-based).
func findDataBounds(rows [][]string) (minRow, maxRow, minCol, maxCol int) {
	minRow, maxRow = -1, -1
	minCol, maxCol = -1, -1

	for rowIdx, row := range rows {
		for colIdx, cell := range row {
			if cell != "" {
				if minRow < 0 || rowIdx < minRow {
					minRow = rowIdx
				}
				if maxRow < 0 || rowIdx > maxRow {
					maxRow = rowIdx
				}
				if minCol < 0 || colIdx < minCol {
					minCol = colIdx
				}
				if maxCol < 0 || colIdx > maxCol {
					maxCol = colIdx
				}
			}
		}
	}

	return
}
