package models

// HeaderEntry describes one configured column.
type HeaderEntry struct {
	// Col is the 1-based column ordinal.
	Col int `json:"col"`
	// Letter is the column letter derived from Col.
	Letter string `json:"letter"`
	// Name is the header cell text, or "(<letter>)" when the header is empty.
	Name string `json:"name"`
}

// PlaceholderName returns the display name used for a column with no header text.
func PlaceholderName(letter string) string {
	return "(" + letter + ")"
}

// RowStore holds the parsed contents of one sheet.
// It is never modified after construction.
type RowStore struct {
	// Sheet is the worksheet name.
	Sheet string
	// Headers has one entry per configured column.
	Headers []HeaderEntry
	// Rows maps a 1-based row index to its values. Fully empty rows are not stored.
	Rows map[int][]Value
	// MaxRow is the highest row index holding at least one value.
	MaxRow int
}

// NewRowStore returns an empty store for sheet.
func NewRowStore(sheet string, headers []HeaderEntry) *RowStore {
	return &RowStore{
		Sheet:   sheet,
		Headers: headers,
		Rows:    make(map[int][]Value),
	}
}

// Cell returns the value at (row, col), both 1-based.
func (s *RowStore) Cell(row, col int) Value {
	values, ok := s.Rows[row]
	if !ok || col < 1 || col > len(values) {
		return Value{}
	}
	return values[col-1]
}

// RowCount returns the number of stored rows, including the header row if populated.
func (s *RowStore) RowCount() int {
	return len(s.Rows)
}
