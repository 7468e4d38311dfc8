package models

// CellResult is the answer to a cell lookup.
type CellResult struct {
	Col    int     `json:"col"`
	Row    int     `json:"row"`
	Header string  `json:"header"`
	Value  *string `json:"value"`
}

// RowResult is one rendered row keyed by column letter. Absent cells are nil.
type RowResult struct {
	Row  int                `json:"row"`
	Data map[string]*string `json:"data"`
}

// RangeResult is the answer to a range scan. RowStart and RowEnd echo the applied bounds.
type RangeResult struct {
	RowStart int           `json:"row_start"`
	RowEnd   int           `json:"row_end"`
	Headers  []HeaderEntry `json:"headers"`
	Rows     []RowResult   `json:"rows"`
}

// SearchResult is the answer to a substring search.
type SearchResult struct {
	Query   string        `json:"query"`
	Count   int           `json:"count"`
	Headers []HeaderEntry `json:"headers"`
	Rows    []RowResult   `json:"rows"`
}

// RefreshResult reports an explicit refresh.
type RefreshResult struct {
	Status         string     `json:"status"`
	Source         SourceKind `json:"source"`
	ElapsedSeconds float64    `json:"elapsed_s"`
	Message        string     `json:"message,omitempty"`
}
