package api

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
	sqerrors "github.com/ukaji3/sheetquery-go/pkg/sheetquery/errors"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind sqerrors.Kind) int {
	switch kind {
	case sqerrors.KindValidation, sqerrors.KindRange:
		return http.StatusBadRequest
	case sqerrors.KindUnknownSheet:
		return http.StatusNotFound
	case sqerrors.KindSourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a structured error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := sqerrors.KindOf(err)
	status := StatusFor(kind)
	requestID := GetRequestID(r.Context())
	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"component":  "http",
			"kind":       kind,
			"request_id": requestID,
		}).WithError(err).Error("request failed")
	}
	writeJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		Kind:      string(kind),
		RequestID: requestID,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		log.WithError(err).Error("encoding response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error","kind":"INTERNAL"}`)
	}
	sendResponse(w, status, body)
}

func sendResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
