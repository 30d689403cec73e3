package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"course-portal/internal/app"
	"course-portal/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxRecordBytes = 1 << 20

type ProfileHandler struct {
	service *app.ProfileService
	logger  *zap.Logger
}

func NewProfileHandler(service *app.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// GetProfile serves GET /api/users/{email}.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	record, err := h.service.Get(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		h.logger.Error("read profile", zap.String("email", email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read profile")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(record)
}

// UpsertProfile serves POST /api/users. The body replaces the whole record for its email.
func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email, err := h.service.Upsert(r.Context(), body)
	switch {
	case err == nil:
		h.logger.Debug("profile saved", zap.String("email", email))
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, domain.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "Invalid JSON")
	case errors.Is(err, domain.ErrMissingEmail):
		writeError(w, http.StatusBadRequest, "Missing email")
	default:
		h.logger.Error("write profile", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
	}
}

func emailParam(r *http.Request) string {
	raw := chi.URLParam(r, "email")
	if email, err := url.PathUnescape(raw); err == nil {
		return email
	}
	return raw
}
