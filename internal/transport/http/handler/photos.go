package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/natour-api/internal/application/photo"
	"github.com/natour-api/internal/domain"
	"github.com/natour-api/internal/transport/http/middleware"
)

// Multipart uploads are capped at 10 MiB.
const maxUploadBytes = 10 << 20

// PhotoHandler handles photo upload, download metadata and deletion.
type PhotoHandler struct {
	svc photo.Service
}

func NewPhotoHandler(svc photo.Service) *PhotoHandler { return &PhotoHandler{svc: svc} }

// Upload accepts a multipart form with a `file` part and an optional
// `point_id` field. Without point_id the photo becomes the uploader's
// profile photo.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	var pointID *string
	if v := r.FormValue("point_id"); v != "" {
		pointID = &v
	}
	p, err := h.svc.Upload(r.Context(), claims.UserID, photo.UploadInput{
		PointID:     pointID,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PhotoHandler) ListByPoint(w http.ResponseWriter, r *http.Request) {
	photos, err := h.svc.ListByPoint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

func (h *PhotoHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	photos, err := h.svc.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	isMaster := claims.Role == domain.RoleMaster
	if err := h.svc.Delete(r.Context(), claims.UserID, isMaster, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
