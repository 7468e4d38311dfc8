// Package sheetquery provides read-only, cached query access to the sheets
// of a spreadsheet workbook kept in a local file or fetched from a remote link.
package sheetquery

import (
	"context"
	"fmt"
	"time"

	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/cache"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/source"
)

// SourceOptions locates the workbook.
type SourceOptions struct {
	// Path is the local workbook file. Used when URL is empty.
	Path string
	// URL is a share link or an s3://bucket/key locator.
	URL string
	// FetchTTL is the freshness window of a fetched document (default: 5 minutes).
	FetchTTL time.Duration
	// FetchTimeout bounds one retrieval (default: 60 seconds).
	FetchTimeout time.Duration
	// S3Region overrides the AWS region for s3:// locators.
	S3Region string
	// S3Endpoint overrides the S3 endpoint, e.g. for MinIO.
	S3Endpoint string
	// S3UsePathStyle forces path-style bucket addressing.
	S3UsePathStyle bool
}

// Kind returns the source kind selected by the options.
func (o SourceOptions) Kind() models.SourceKind {
	switch {
	case o.URL != "":
		return models.SourceRemote
	case o.Path != "":
		return models.SourceLocal
	default:
		return models.SourceUnset
	}
}

// NewPolicy builds the freshness policy for the configured source.
func NewPolicy(ctx context.Context, o SourceOptions) (cache.Policy, error) {
	switch o.Kind() {
	case models.SourceLocal:
		return cache.NewLocalPolicy(o.Path), nil
	case models.SourceRemote:
		if source.IsS3URL(o.URL) {
			fetcher, err := source.NewS3Fetcher(ctx, o.URL, source.S3Config{
				Region:       o.S3Region,
				Endpoint:     o.S3Endpoint,
				UsePathStyle: o.S3UsePathStyle,
				TTL:          o.FetchTTL,
				Timeout:      o.FetchTimeout,
			})
			if err != nil {
				return nil, err
			}
			return cache.NewRemotePolicy(fetcher), nil
		}
		return cache.NewRemotePolicy(source.NewHTTPFetcher(o.URL, source.HTTPConfig{
			TTL:     o.FetchTTL,
			Timeout: o.FetchTimeout,
		})), nil
	default:
		return nil, fmt.Errorf("no workbook source configured: set a path or a url")
	}
}
