package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/natour-api/internal/domain"
)

// DetailEnvelope carries outcome messages for the verification and
// moderation flows. The field name comes from the mobile clients' contract.
type DetailEnvelope struct {
	Detail string `json:"detail"`
}

// ErrorEnvelope carries authentication and internal failures.
type ErrorEnvelope struct {
	Error string `json:"error"`
}

// TokenEnvelope wraps login/refresh responses.
type TokenEnvelope struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh,omitempty"`
	User    *domain.User `json:"user,omitempty"`
}

// ListEnvelope wraps paginated listings.
type ListEnvelope struct {
	Data interface{} `json:"data"`
	domain.Page
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, DetailEnvelope{Detail: msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorEnvelope{Error: msg})
}

// httpError maps a service error onto the HTTP status and envelope the
// clients expect: outcome messages ride in `detail`, auth failures in
// `error`.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrMailDelivery):
		writeDetail(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
