package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperr "github.com/julianstephens/healthchain/internal/errors"
	"github.com/julianstephens/healthchain/internal/identity"
	"github.com/julianstephens/healthchain/internal/logger"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Success: true, Data: data})
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Success: false, Error: message})
}

// ReadJSON decodes the request body into v, rejecting unknown fields.
func ReadJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decode writes a 400 and returns false when the body does not parse.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := ReadJSON(r, v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// StatusFor maps a store error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAlreadyClaimed), errors.Is(err, apperr.ErrNoWallet):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeStoreError reports err with the status from StatusFor. Server
// errors are logged and their detail is not echoed.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, status, "internal error")
		return
	}
	WriteError(w, status, err.Error())
}
