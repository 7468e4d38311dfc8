package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	sqerrors "github.com/ukaji3/sheetquery-go/pkg/sheetquery/errors"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/query"
)

type handler struct {
	svc Querier
}

// sheet resolves the {sheet} path parameter, or the default sheet on the
// routes without one.
func (h *handler) sheet(r *http.Request) (models.SheetSchema, error) {
	name := chi.URLParam(r, "sheet")
	if name == "" {
		return h.svc.DefaultSheet(), nil
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return h.svc.Schema(name)
}

// intParam reads an integer query parameter, falling back to def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, sqerrors.Validation("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"source": string(h.svc.Source()),
	})
}

func (h *handler) listSheets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListSheets())
}

func (h *handler) headers(w http.ResponseWriter, r *http.Request) {
	schema, err := h.sheet(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	headers, err := h.svc.Headers(r.Context(), schema.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, headers)
}

func (h *handler) cell(w http.ResponseWriter, r *http.Request) {
	schema, err := h.sheet(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	col, err := intParam(r, "col", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	row, err := intParam(r, "row", schema.DataStartRow)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Cell(r.Context(), schema.Name, col, row)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) rangeRows(w http.ResponseWriter, r *http.Request) {
	schema, err := h.sheet(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := intParam(r, "row_start", schema.DataStartRow)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := intParam(r, "row_end", schema.DataStartRow+query.DefaultRangeRows-1)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Range(r.Context(), schema.Name, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	schema, err := h.sheet(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Search(r.Context(), schema.Name, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) fileInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.FileInfo())
}
