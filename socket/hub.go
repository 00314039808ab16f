package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dailyjournal/internal/entry/service"
	"dailyjournal/internal/entry/synchronizer"
	"dailyjournal/pkg/logger"
	"dailyjournal/store"
)

const (
	// Client -> server
	SearchType      = "SEARCH"       // Search term changed
	ComposeType     = "COMPOSE"      // Open the composer
	CancelType      = "CANCEL"       // Close the composer
	DraftType       = "DRAFT"        // Draft fields edited
	SaveType        = "SAVE"         // Submit the draft
	DeleteType      = "DELETE"       // Delete an entry
	PhotoFailedType = "PHOTO_FAILED" // Profile photo failed to load

	// Server -> client
	ViewType    = "VIEW"    // Full rendered screen
	SavedType   = "SAVED"   // Draft stored
	DeletedType = "DELETED" // Delete acknowledged by the store
	ErrorType   = "ERROR"   // Operation rejected or failed
	LogoutType  = "LOGOUT"  // Session ended
)

const cacheClearTimeout = 5 * time.Second

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type logoutRequest struct {
	owner   string
	stopped chan struct{}
}

// Hub tracks live sessions per owner.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	logout     chan logoutRequest
	done       chan struct{}
	mu         sync.Mutex

	subscriber store.Subscriber
	cache      synchronizer.Cache
	entries    *service.EntryService
	now        func() time.Time
}

// NewHub returns a hub whose sessions subscribe through subscriber and
// write through entries. cache may be nil.
func NewHub(subscriber store.Subscriber, entries *service.EntryService, cache synchronizer.Cache) *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logout:     make(chan logoutRequest),
		done:       make(chan struct{}),
		subscriber: subscriber,
		cache:      cache,
		entries:    entries,
		now:        time.Now,
	}
}

// Run processes registrations until ctx is done, then ends every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for owner, clients := range h.Rooms {
				for client := range clients {
					client.stop()
				}
				delete(h.Rooms, owner)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			owner := client.Identity.ID
			if h.Rooms[owner] == nil {
				h.Rooms[owner] = make(map[*Client]bool)
			}
			h.Rooms[owner][client] = true
			h.mu.Unlock()
			logger.Sugar.Infof("Session opened for %s", owner)

		case client := <-h.Unregister:
			h.mu.Lock()
			owner := client.Identity.ID
			if _, ok := h.Rooms[owner][client]; ok {
				delete(h.Rooms[owner], client)
				if len(h.Rooms[owner]) == 0 {
					delete(h.Rooms, owner)
				}
			}
			h.mu.Unlock()
			client.stop()
			logger.Sugar.Infof("Session closed for %s", owner)

		case req := <-h.logout:
			h.mu.Lock()
			clients := make([]*Client, 0, len(h.Rooms[req.owner]))
			for client := range h.Rooms[req.owner] {
				clients = append(clients, client)
			}
			h.mu.Unlock()

			msg, _ := json.Marshal(WSMessage{Type: LogoutType})
			for _, client := range clients {
				// stop closes Send after LOGOUT, so the writePump flushes it and
				// closes the connection; the readPump then unregisters the client.
				client.enqueue(msg)
				client.stop()
			}
			close(req.stopped)
		}
	}
}

// Logout ends every session of owner and clears its cached entries.
func (h *Hub) Logout(ctx context.Context, owner string) error {
	req := logoutRequest{owner: owner, stopped: make(chan struct{})}
	select {
	case h.logout <- req:
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	// The cache is cleared only once no session of owner can write it back.
	select {
	case <-req.stopped:
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if h.cache == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, cacheClearTimeout)
	defer cancel()
	return h.cache.Clear(cctx, owner)
}

// ClientCount returns the number of live sessions of owner.
func (h *Hub) ClientCount(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[owner])
}
