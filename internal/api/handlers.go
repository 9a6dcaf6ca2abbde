package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recentfiles/internal/apperr"
	"github.com/starford/recentfiles/internal/recentservice"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *recentservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *recentservice.Service) *Handler {
	return &Handler{svc: svc}
}

// filePath extracts the file path from the URL (everything after /api/recent/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
// chi matches on RawPath when the request carries one, leaving the wildcard
// escaped; otherwise it is already decoded and must not be decoded again.
func filePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" || r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// validatable is implemented by request bodies.
type validatable interface {
	Validate() error
}

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 response and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if vv, ok := v.(validatable); ok {
		if err := vv.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
	}
	return true
}

// ListRecent handles GET /api/recent.
//
//	@Summary		List recently opened files, most recent first
//	@Tags			recent
//	@Produce		json
//	@Param			active	query		string	false	"Path of the currently active file"
//	@Success		200		{object}	RecentListResponse
//	@Security		BearerAuth
//	@Router			/recent [get]
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	items := h.svc.List(r.Context(), r.URL.Query().Get("active"))
	writeJSON(w, http.StatusOK, RecentListResponse{Files: items})
}

// OpenRecent handles POST /api/recent/open.
//
//	@Summary		Open a listed file
//	@Tags			recent
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenRequest	true	"File and open mode"
//	@Success		200		{object}	OpenResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recent/open [post]
func (h *Handler) OpenRecent(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Open(r.Context(), req.Path, req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidMode):
			writeError(w, http.StatusBadRequest, "invalid open mode")
		case errors.Is(err, apperr.ErrNotFound):
			writeError(w, http.StatusNotFound, recentservice.MissingNotice(req.Path))
		default:
			writeInternal(w, r, "open recent", err, slog.String("path", req.Path))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RemoveRecent handles DELETE /api/recent/*.
//
//	@Summary		Remove a file from the list
//	@Tags			recent
//	@Param			path	path	string	true	"File path"
//	@Success		204
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recent/{path} [delete]
func (h *Handler) RemoveRecent(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := h.svc.Remove(r.Context(), path); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			writeInternal(w, r, "remove recent", err, slog.String("path", path))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearRecent handles DELETE /api/recent.
//
//	@Summary		Clear the list
//	@Tags			recent
//	@Success		204
//	@Security		BearerAuth
//	@Router			/recent [delete]
func (h *Handler) ClearRecent(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// FileOpened handles POST /api/events/open.
//
//	@Summary		Notify that the host opened a file
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathEvent	true	"Opened file"
//	@Success		202		{object}	RecordedResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/open [post]
func (h *Handler) FileOpened(w http.ResponseWriter, r *http.Request) {
	var ev PathEvent
	if !decode(w, r, &ev) {
		return
	}
	recorded, err := h.svc.RecordOpen(r.Context(), ev.Path)
	if err != nil {
		// Only a cancelled request context ends up here.
		slog.Warn("record open aborted", slog.String("path", ev.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusAccepted, RecordedResponse{Recorded: recorded})
}

// FileRenamed handles POST /api/events/rename.
//
//	@Summary		Notify that a vault file was renamed
//	@Tags			events
//	@Accept			json
//	@Param			body	body	RenameEvent	true	"Old and new path"
//	@Success		202
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/rename [post]
func (h *Handler) FileRenamed(w http.ResponseWriter, r *http.Request) {
	var ev RenameEvent
	if !decode(w, r, &ev) {
		return
	}
	h.svc.FileRenamed(ev.OldPath, ev.NewPath)
	w.WriteHeader(http.StatusAccepted)
}

// FileDeleted handles POST /api/events/delete.
//
//	@Summary		Notify that a vault file was deleted
//	@Tags			events
//	@Accept			json
//	@Param			body	body	PathEvent	true	"Deleted file"
//	@Success		202
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/delete [post]
func (h *Handler) FileDeleted(w http.ResponseWriter, r *http.Request) {
	var ev PathEvent
	if !decode(w, r, &ev) {
		return
	}
	h.svc.FileDeleted(ev.Path)
	w.WriteHeader(http.StatusAccepted)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get exclusion rules and list length
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsView
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Update exclusion rules and list length; omitted fields are unchanged
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SettingsUpdate	true	"Newline-separated patterns and tags, raw length text"
//	@Success		200		{object}	SettingsView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var u SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v, err := h.svc.UpdateSettings(r.Context(), u)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeInternal(w, r, "update settings", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, v)
}
