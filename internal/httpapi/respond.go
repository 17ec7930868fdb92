package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goCred "github.com/MrEthical07/goCred"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeEngineError maps engine sentinels to status codes. Unknown errors are
// logged and answered with a generic 500.
func (s *Server) writeEngineError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, goCred.ErrAccountExists):
		writeError(w, http.StatusConflict, "Email already exists")
	case errors.Is(err, goCred.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict")
	case errors.Is(err, goCred.ErrRefreshInvalid):
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, goCred.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, goCred.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, goCred.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, goCred.ErrProfileUpdateUnsupported):
		writeError(w, http.StatusNotImplemented, "Not implemented")
	case errors.Is(err, goCred.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), goCred.ErrInvalidRequest.Error()+": "))
	default:
		s.log.Error(ctx, "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
