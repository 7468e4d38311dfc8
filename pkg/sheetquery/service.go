package sheetquery

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/cache"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/query"
)

// Refresh statuses.
const (
	RefreshRefreshed = "refreshed"
	RefreshSkipped   = "skipped"
)

// Service answers sheet queries through one shared SheetCache.
// It is safe for concurrent use.
type Service struct {
	cache *cache.SheetCache
	log   *log.Entry
}

// New creates a Service over schemas, kept fresh by policy.
// The first schema is the default sheet.
func New(schemas []models.SheetSchema, policy cache.Policy) (*Service, error) {
	c, err := cache.New(schemas, policy)
	if err != nil {
		return nil, err
	}
	return &Service{
		cache: c,
		log:   log.WithField("component", "service"),
	}, nil
}

// Open creates a Service reading from the source described by opts.
func Open(ctx context.Context, schemas []models.SheetSchema, opts SourceOptions) (*Service, error) {
	policy, err := NewPolicy(ctx, opts)
	if err != nil {
		return nil, err
	}
	return New(schemas, policy)
}

// Cache exposes the underlying cache.
func (s *Service) Cache() *cache.SheetCache {
	return s.cache
}

// Source returns the configured source kind.
func (s *Service) Source() models.SourceKind {
	return s.cache.Kind()
}

// DefaultSheet returns the schema of the first configured sheet.
func (s *Service) DefaultSheet() models.SheetSchema {
	return s.cache.Schemas()[0]
}

// Schema returns the schema of sheet.
func (s *Service) Schema(sheet string) (models.SheetSchema, error) {
	return s.cache.Schema(sheet)
}

// ListSheets returns every configured sheet with its search column label.
// Without a configured label the header text is used once the sheet is
// built, and the column letter before that.
func (s *Service) ListSheets() []models.SheetInfo {
	schemas := s.cache.Schemas()
	out := make([]models.SheetInfo, 0, len(schemas))
	for _, schema := range schemas {
		label := schema.SearchLabel
		if label == "" {
			label = models.ColumnLetter(schema.SearchColumn)
			if store, err := s.cache.PeekStore(schema.Name); err == nil {
				label = store.Headers[schema.SearchColumn-1].Name
			}
		}
		out = append(out, models.SheetInfo{Name: schema.Name, SearchLabel: label})
	}
	return out
}

// Headers returns the header entries of sheet.
func (s *Service) Headers(ctx context.Context, sheet string) ([]models.HeaderEntry, error) {
	store, _, err := s.cache.Store(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return store.Headers, nil
}

// Cell looks up one cell of sheet.
func (s *Service) Cell(ctx context.Context, sheet string, col, row int) (*models.CellResult, error) {
	store, schema, err := s.cache.Store(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return query.Cell(store, schema, col, row)
}

// Range scans rows of sheet; see query.Range for the clamping rules.
func (s *Service) Range(ctx context.Context, sheet string, rowStart, rowEnd int) (*models.RangeResult, error) {
	store, schema, err := s.cache.Store(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return query.Range(store, schema, rowStart, rowEnd), nil
}

// Search runs a substring search over the search column of sheet.
func (s *Service) Search(ctx context.Context, sheet, q string) (*models.SearchResult, error) {
	store, schema, err := s.cache.Store(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return query.Search(store, schema, q)
}

// Refresh forces a re-retrieval of a remote document and rebuilds every sheet.
// Local sources are skipped since modification times are checked on each read.
func (s *Service) Refresh(ctx context.Context) (*models.RefreshResult, error) {
	kind := s.cache.Kind()
	if kind == models.SourceLocal {
		return &models.RefreshResult{
			Status:  RefreshSkipped,
			Source:  kind,
			Message: "local source is reloaded automatically when its modification time changes",
		}, nil
	}

	elapsed, err := s.cache.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	s.log.WithField("elapsed", elapsed.String()).Info("refreshed remote workbook")
	return &models.RefreshResult{
		Status:         RefreshRefreshed,
		Source:         kind,
		ElapsedSeconds: roundSeconds(elapsed),
	}, nil
}

// FileInfo returns diagnostics about the source document and the held snapshot.
func (s *Service) FileInfo() models.FileInfo {
	return s.cache.Info()
}

// Warm builds the cache once, so the first request does not pay for the decode.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.cache.Get(ctx)
	return err
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Round(10*time.Millisecond)) / float64(time.Second)
}
