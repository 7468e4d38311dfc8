package cache

import (
	"bytes"
	"context"
	"time"

	sqerrors "github.com/ukaji3/sheetquery-go/pkg/sheetquery/errors"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/parser"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/source"
)

// Freshness is the outcome of a freshness check.
type Freshness int

const (
	// Stale means the snapshot must be rebuilt before it is served.
	Stale Freshness = iota
	// Fresh means the snapshot may be served as is.
	Fresh
)

func (f Freshness) String() string {
	if f == Fresh {
		return "fresh"
	}
	return "stale"
}

// Policy decides when a snapshot is stale and opens the current document.
// One policy is chosen per process from the source kind.
type Policy interface {
	// Kind is the source kind recorded in snapshots built by this policy.
	Kind() models.SourceKind
	// Check reports whether current (nil when nothing is built) may be served.
	Check(ctx context.Context, current *Snapshot) (Freshness, error)
	// Open returns the current document and the marker to record with the snapshot.
	Open(ctx context.Context) (*parser.Workbook, time.Time, error)
	// Invalidate drops any document held by the policy.
	Invalidate()
	// Info returns diagnostics about the source document.
	Info() models.FileInfo
}

// LocalPolicy rebuilds whenever the file's modification time differs from
// the one recorded in the snapshot.
type LocalPolicy struct {
	file *source.LocalFile
}

// NewLocalPolicy returns a policy for the workbook at path.
func NewLocalPolicy(path string) *LocalPolicy {
	return &LocalPolicy{file: source.NewLocalFile(path)}
}

func (p *LocalPolicy) Kind() models.SourceKind { return models.SourceLocal }

// Check compares the file's modification time with the snapshot marker.
// A missing file is reported, never treated as an empty workbook.
func (p *LocalPolicy) Check(ctx context.Context, current *Snapshot) (Freshness, error) {
	mtime, err := p.file.ModTime()
	if err != nil {
		return Stale, sqerrors.SourceUnavailable("local workbook unavailable", err)
	}
	if current == nil || current.Kind != models.SourceLocal || !current.Marker.Equal(mtime) {
		return Stale, nil
	}
	return Fresh, nil
}

// Open opens the file. The marker is taken before reading so a write during
// the read causes another rebuild on the next check.
func (p *LocalPolicy) Open(ctx context.Context) (*parser.Workbook, time.Time, error) {
	mtime, err := p.file.ModTime()
	if err != nil {
		return nil, time.Time{}, err
	}
	wb, err := parser.OpenFile(p.file.Path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return wb, mtime, nil
}

// Invalidate is a no-op; modification times drive local freshness.
func (p *LocalPolicy) Invalidate() {}

func (p *LocalPolicy) Info() models.FileInfo { return p.file.Info() }

// RemotePolicy defers to the fetcher's freshness window.
type RemotePolicy struct {
	fetcher source.Fetcher
}

// NewRemotePolicy returns a policy backed by fetcher.
func NewRemotePolicy(fetcher source.Fetcher) *RemotePolicy {
	return &RemotePolicy{fetcher: fetcher}
}

func (p *RemotePolicy) Kind() models.SourceKind { return models.SourceRemote }

// Check reports Fresh only when a remote snapshot exists and the fetcher's
// window has not expired.
func (p *RemotePolicy) Check(ctx context.Context, current *Snapshot) (Freshness, error) {
	if current != nil && current.Kind == models.SourceRemote && p.fetcher.Fresh() {
		return Fresh, nil
	}
	return Stale, nil
}

// Open fetches the document, from the fetcher's cache when still fresh.
func (p *RemotePolicy) Open(ctx context.Context) (*parser.Workbook, time.Time, error) {
	doc, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	wb, err := parser.OpenReader(bytes.NewReader(doc.Data), doc.Name)
	if err != nil {
		return nil, time.Time{}, err
	}
	return wb, doc.FetchedAt, nil
}

// Invalidate drops the fetcher's document so the next Open downloads again.
func (p *RemotePolicy) Invalidate() { p.fetcher.Invalidate() }

func (p *RemotePolicy) Info() models.FileInfo { return p.fetcher.Info() }
