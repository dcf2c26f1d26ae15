package api

import (
	"encoding/json"
	"net/http"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// StatusForError maps an error code onto an HTTP status.
func StatusForError(err error) int {
	code := errors.GetCode(err)

	switch {
	case code == errors.ErrCodeJobNotFound:
		return http.StatusNotFound
	case code == errors.ErrCodeUpgradeFailed:
		return http.StatusBadRequest
	case code == errors.ErrCodeConfigNotFound:
		return http.StatusInternalServerError
	case code >= 100 && code < 200:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusForError(err), ErrorResponse{Code: errors.GetCode(err), Message: err.Error()})
}
