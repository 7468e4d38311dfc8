package models

import "time"

// SourceKind identifies where the workbook is read from.
type SourceKind string

const (
	SourceUnset  SourceKind = "unset"
	SourceLocal  SourceKind = "local"
	SourceRemote SourceKind = "remote"
)

// SheetInfo is an entry of the sheet listing.
type SheetInfo struct {
	Name        string `json:"name"`
	SearchLabel string `json:"search_label"`
}

// FileInfo is diagnostic information about the current source document.
type FileInfo struct {
	Source        SourceKind `json:"source"`
	Location      string     `json:"location,omitempty"`
	Filename      string     `json:"filename,omitempty"`
	ModifiedAt    *time.Time `json:"modified_at,omitempty"`
	FetchedAt     *time.Time `json:"fetched_at,omitempty"`
	ContentLength *int64     `json:"content_length,omitempty"`
	ContentType   string     `json:"content_type,omitempty"`
	FinalURL      string     `json:"final_url,omitempty"`
	StatusCode    int        `json:"status_code,omitempty"`
	ETag          string     `json:"etag,omitempty"`
	Cache         *CacheInfo `json:"cache,omitempty"`
}

// CacheInfo describes the snapshot currently held by the sheet cache.
type CacheInfo struct {
	Generation uint64         `json:"generation"`
	BuiltAt    time.Time      `json:"built_at"`
	MaxRows    map[string]int `json:"max_rows"`
}
