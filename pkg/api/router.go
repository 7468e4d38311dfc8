// Package api exposes the sheet query service over HTTP as JSON.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// Querier is the query surface served by the router.
type Querier interface {
	Source() models.SourceKind
	DefaultSheet() models.SheetSchema
	Schema(sheet string) (models.SheetSchema, error)
	ListSheets() []models.SheetInfo
	Headers(ctx context.Context, sheet string) ([]models.HeaderEntry, error)
	Cell(ctx context.Context, sheet string, col, row int) (*models.CellResult, error)
	Range(ctx context.Context, sheet string, rowStart, rowEnd int) (*models.RangeResult, error)
	Search(ctx context.Context, sheet, q string) (*models.SearchResult, error)
	Refresh(ctx context.Context) (*models.RefreshResult, error)
	FileInfo() models.FileInfo
}

// Options configures the router.
type Options struct {
	// Secret guards /api routes when set.
	Secret string
}

// GetRouter initialises a new http router and applies all routes
func GetRouter(svc Querier, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware, LoggingMiddleware, RecoveryMiddleware)
	return applyRoutes(r, &handler{svc: svc}, opts)
}

func applyRoutes(r chi.Router, h *handler, opts Options) chi.Router {
	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Use(SecretMiddleware(opts.Secret))

		r.Get("/sheets", h.listSheets)
		r.Route("/sheets/{sheet}", func(r chi.Router) {
			r.Get("/headers", h.headers)
			r.Get("/cell", h.cell)
			r.Get("/range", h.rangeRows)
			r.Get("/search", h.search)
		})

		// default sheet routes
		r.Get("/headers", h.headers)
		r.Get("/cell", h.cell)
		r.Get("/range", h.rangeRows)
		r.Get("/search", h.search)

		r.Post("/refresh", h.refresh)
		r.Get("/file-info", h.fileInfo)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:     "not found",
			Kind:      "NOT_FOUND",
			RequestID: GetRequestID(r.Context()),
		})
	})

	return r
}
