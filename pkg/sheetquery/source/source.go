// Package source locates and retrieves the workbook document: a local file
// checked by modification time, or a remote document held for a freshness
// window after each successful fetch.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// DefaultTTL is the freshness window of a fetched document.
const DefaultTTL = 5 * time.Minute

// Common errors for retrieval.
var (
	ErrFetchFailed    = errors.New("fetch failed")
	ErrObjectNotFound = errors.New("object not found")
)

// Document is a retrieved workbook.
type Document struct {
	// Data is the complete document body.
	Data []byte
	// Name is the document filename, used in diagnostics and error messages.
	Name string
	// FetchedAt is when the body was retrieved.
	FetchedAt time.Time
}

// Fetcher retrieves a remote document and keeps it for a freshness window.
type Fetcher interface {
	// Fetch returns the cached document while it is fresh, otherwise retrieves it.
	Fetch(ctx context.Context) (*Document, error)
	// Fresh reports whether a document is held and its window has not expired.
	Fresh() bool
	// Invalidate drops the held document so the next Fetch retrieves it again.
	Invalidate()
	// Info returns diagnostics about the held document.
	Info() models.FileInfo
}

// window tracks the freshness of the last fetched document.
// It is not safe for concurrent use; fetchers guard it with their own mutex.
type window struct {
	ttl time.Duration
	now func() time.Time
	doc *Document
}

func newWindow(ttl time.Duration) window {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return window{ttl: ttl, now: time.Now}
}

func (w *window) fresh() bool {
	if w.doc == nil {
		return false
	}
	return w.now().Sub(w.doc.FetchedAt) < w.ttl
}

func (w *window) store(doc *Document) {
	w.doc = doc
}

func (w *window) clear() {
	w.doc = nil
}
