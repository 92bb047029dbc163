package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financebot/internal/core"
)

// API responses share one envelope: {"status":"success", ...} on the happy
// path and {"status":"error","detail":...} otherwise.

type errorEnvelope struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeData wraps payload under the "data" key.
func writeData(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, map[string]any{
		"status": "success",
		"data":   payload,
	})
}

// writeResponse wraps payload under the "response" key, used by the
// assistant endpoints.
func writeResponse(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, map[string]any{
		"status":   "success",
		"response": payload,
	})
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorEnvelope{Status: "error", Detail: detail})
}

// writeStoreError maps a storage or domain error to a status code without
// leaking internals for unexpected failures.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsValidation(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Store operation failed",
			"error", err, "method", r.Method, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
