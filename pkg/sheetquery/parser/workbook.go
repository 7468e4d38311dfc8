// Package parser reads workbooks into per-sheet row stores.
package parser

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/xuri/excelize/v2"
)

// Workbook is an opened workbook document.
// It must be closed once extraction is finished.
type Workbook struct {
	file *excelize.File
	name string
}

// OpenFile opens the workbook at path.
func OpenFile(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}
	return &Workbook{file: f, name: filepath.Base(path)}, nil
}

// OpenReader decodes a workbook from r. name is used in error messages only.
func OpenReader(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", name, err)
	}
	return &Workbook{file: f, name: name}, nil
}

// Name returns the document name.
func (w *Workbook) Name() string {
	return w.name
}

// SheetNames returns the worksheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Extract builds the row store for one sheet.
func (w *Workbook) Extract(schema models.SheetSchema) (*models.RowStore, error) {
	return ExtractRows(w.file, schema)
}

// ExtractAll builds row stores for every schema from this single open workbook.
// The first failing sheet aborts the whole extraction.
func (w *Workbook) ExtractAll(schemas []models.SheetSchema) (map[string]*models.RowStore, error) {
	stores := make(map[string]*models.RowStore, len(schemas))
	for _, schema := range schemas {
		store, err := w.Extract(schema)
		if err != nil {
			return nil, err
		}
		stores[schema.Name] = store
	}
	return stores, nil
}

// Close releases the underlying document.
func (w *Workbook) Close() error {
	return w.file.Close()
}
