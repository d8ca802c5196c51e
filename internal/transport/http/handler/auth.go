package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/natour-api/internal/application/auth"
	"github.com/natour-api/internal/domain"
	"github.com/natour-api/internal/pkg/validate"
)

// AuthHandler handles login and token refresh.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	access, refresh, u, err := h.svc.Login(r.Context(), req)
	if err != nil {
		// Unknown email is a credential failure on this endpoint, so it
		// rides the error envelope with a message that does not separate
		// it from a wrong password.
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "incorrect email or password")
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{Access: access, Refresh: refresh, User: u})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	access, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{Access: access})
}
