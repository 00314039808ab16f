package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dailyjournal/internal/entry/model"
	"dailyjournal/internal/entry/service"
	"dailyjournal/internal/entry/synchronizer"
	"dailyjournal/internal/entry/view"
	"dailyjournal/middleware"
	"dailyjournal/pkg/apperr"
	"dailyjournal/pkg/logger"
	"dailyjournal/store"
)

// maxBodySize matches the websocket read limit.
const maxBodySize = 64 * 1024

// Sessions ends the live sessions of an owner.
type Sessions interface {
	Logout(ctx context.Context, ownerID string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type EntryHandler struct {
	Service  *service.EntryService
	Lister   store.Lister
	Sessions Sessions
	DB       Pinger
	Now      func() time.Time
}

func NewEntryHandler(svc *service.EntryService, lister store.Lister, sessions Sessions, db Pinger) *EntryHandler {
	return &EntryHandler{Service: svc, Lister: lister, Sessions: sessions, DB: db, Now: time.Now}
}

type meResponse struct {
	Identity *model.Identity `json:"identity"`
	Profile  view.Profile    `json:"profile"`
	Greeting string          `json:"greeting"`
}

// GetEntries returns the rendered journal screen once, without a live feed.
func (h *EntryHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	docs, err := h.Lister.ListByOwner(r.Context(), identity.ID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list entries: %v", err)
		writeError(w, http.StatusInternalServerError, apperr.LoadFailed.Message())
		return
	}

	q := r.URL.Query()
	now := h.Now().In(view.Zone(q.Get("tz")))
	entries := synchronizer.Normalize(docs, nil, now)
	v := view.Derive(entries, view.Options{Search: q.Get("q"), Now: now, DisplayName: identity.DisplayName})
	writeJSON(w, http.StatusOK, view.Render(v, identity, false))
}

func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req model.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Entry is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := middleware.IdentityFrom(r.Context())
	id, err := h.Service.Save(r.Context(), identity, service.SaveInput{
		Title:   req.Title,
		Content: req.Content,
		Date:    req.Date,
	})
	if err != nil {
		writeError(w, statusFor(err), service.SaveErrorMessage(err))
		return
	}
	writeJSON(w, http.StatusCreated, model.CreateEntryResponse{ID: id})
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id parameter")
		return
	}

	identity := middleware.IdentityFrom(r.Context())
	if err := h.Service.Delete(r.Context(), identity, id, q.Get("confirm") == "true"); err != nil {
		writeError(w, statusFor(err), apperr.Message(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	now := h.Now().In(view.Zone(r.URL.Query().Get("tz")))

	writeJSON(w, http.StatusOK, meResponse{
		Identity: identity,
		Profile:  view.ProfileOf(identity, false),
		Greeting: view.Greeting(now, identity.DisplayName),
	})
}

// Logout ends every live session of the caller and drops its cached entries.
func (h *EntryHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.Sessions.Logout(r.Context(), identity.ID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to log out %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, apperr.LogoutFailed.Message())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		logger.Sugar.Warnf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (*model.Identity, bool) {
	identity := middleware.IdentityFrom(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, apperr.Unauthorized.Message())
		return nil, false
	}
	return identity, true
}

func statusFor(err error) int {
	switch kind := apperr.KindOf(err); {
	case kind == apperr.NoIdentity || kind == apperr.Unauthorized:
		return http.StatusUnauthorized
	case kind == apperr.SaveInFlight:
		return http.StatusConflict
	case kind == apperr.NotFound:
		return http.StatusNotFound
	case kind.IsPrecondition():
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Handler: Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}
