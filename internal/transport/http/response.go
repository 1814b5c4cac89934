package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"note-summary-service/internal/entity"
	"note-summary-service/internal/service"
)

type apiError struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, apiError{Message: msg})
}

// writeServiceErr maps service and store errors onto status codes. Only
// unexpected errors are logged; their text never reaches the client.
func (h *Handler) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrNotFound):
		writeErr(w, http.StatusNotFound, "note not found")
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
