package router

import (
	"net/http"

	"dailyjournal/config"
	entryHandler "dailyjournal/internal/entry"
	"dailyjournal/internal/entry/repository"
	"dailyjournal/internal/entry/service"
	"dailyjournal/middleware"
	"dailyjournal/socket"
)

func Setup(cfg *config.Config, repo *repository.EntryRepository, entries *service.EntryService, hub *socket.Hub) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.NewAuth(cfg.JWTSecret)

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r, middleware.IdentityFrom(r.Context()))
	})
	mux.Handle("/ws", auth(wsHandler))

	// REST API
	h := entryHandler.NewEntryHandler(entries, repo, hub, repo)

	mux.Handle("/api/entries", auth(http.HandlerFunc(h.GetEntries)))
	mux.Handle("/api/entries/create", auth(http.HandlerFunc(h.CreateEntry)))
	mux.Handle("/api/entries/delete", auth(http.HandlerFunc(h.DeleteEntry)))
	mux.Handle("/api/me", auth(http.HandlerFunc(h.Me)))
	mux.Handle("/api/logout", auth(http.HandlerFunc(h.Logout)))
	mux.HandleFunc("/healthz", h.Health)

	return middleware.NewCORS(cfg.AllowedOrigin)(mux)
}
