package query

import (
	"fmt"

	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// stockSchema mirrors a four column sheet with the header on row 5.
func stockSchema(end int) models.SheetSchema {
	return models.SheetSchema{
		Name:         "Stock",
		HeaderRow:    5,
		DataStartRow: 6,
		DataEndRow:   end,
		ColumnCount:  4,
		SearchColumn: 1,
		SearchLabel:  "Code",
	}
}

// newStockStore fills rows 6..last. Column A holds "ITEM-<row>", B the row
// as a number (with .5 on rows divisible by 7), C is present on odd rows only
// and D alternates booleans. Rows listed in skip are left out entirely.
func newStockStore(last int, skip ...int) *models.RowStore {
	headers := []models.HeaderEntry{
		{Col: 1, Letter: "A", Name: "Code"},
		{Col: 2, Letter: "B", Name: "Qty"},
		{Col: 3, Letter: "C", Name: "Note"},
		{Col: 4, Letter: "D", Name: models.PlaceholderName("D")},
	}
	store := models.NewRowStore("Stock", headers)
	store.Rows[5] = []models.Value{models.Text("Code"), models.Text("Qty"), models.Text("Note"), {}}

	skipped := make(map[int]bool, len(skip))
	for _, r := range skip {
		skipped[r] = true
	}
	for r := 6; r <= last; r++ {
		if skipped[r] {
			continue
		}
		qty := float64(r)
		if r%7 == 0 {
			qty += 0.5
		}
		values := []models.Value{
			models.Text(fmt.Sprintf("ITEM-%d", r)),
			models.Number(qty),
			{},
			models.Boolean(r%2 == 0),
		}
		if r%2 == 1 {
			values[2] = models.Text("odd")
		}
		store.Rows[r] = values
		store.MaxRow = r
	}
	return store
}
