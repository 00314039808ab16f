package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"dailyjournal/internal/entry/draft"
	"dailyjournal/internal/entry/model"
	"dailyjournal/internal/entry/service"
	"dailyjournal/internal/entry/synchronizer"
	"dailyjournal/internal/entry/view"
	"dailyjournal/pkg/apperr"
	"dailyjournal/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
	// Writes outlive the session that started them.
	operationTimeout = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Identity *model.Identity
	Send     chan []byte

	loc    *time.Location
	syncer *synchronizer.Synchronizer
	draft  *draft.Draft
	ctx    context.Context
	cancel context.CancelFunc

	// viewMu orders VIEW messages so the last one sent reflects the latest
	// state.
	viewMu sync.Mutex

	mu          sync.Mutex
	search      string
	photoFailed bool

	sendMu   sync.Mutex
	closed   bool
	stopOnce sync.Once
}

type searchPayload struct {
	Query string `json:"query"`
}

type deletePayload struct {
	ID        string `json:"id"`
	Confirmed bool   `json:"confirmed"`
}

type idPayload struct {
	ID string `json:"id"`
}

type errorPayload struct {
	Op      string `json:"op"`
	Message string `json:"message"`
}

// ViewPayload is the body of a VIEW message.
type ViewPayload struct {
	view.Page
	Loading     bool        `json:"loading"`
	Placeholder bool        `json:"placeholder"`
	Error       string      `json:"error,omitempty"`
	Draft       draft.State `json:"draft"`
}

// ServeWs upgrades the request and runs a live session for identity. The
// viewer's time zone is read from the tz query parameter.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, identity *model.Identity) {
	if identity == nil || identity.ID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := newClient(hub, conn, identity, location(r.URL.Query().Get("tz")))
	go client.writePump()

	if _, err := client.syncer.Start(client.ctx, identity); err != nil {
		// The failure is already part of the published state.
		logger.Sugar.Warnf("Entry subscription for %s did not start: %v", identity.ID, err)
	}

	select {
	case hub.Register <- client:
	case <-hub.done:
		client.stop()
		return
	}
	go client.readPump()
}

func newClient(hub *Hub, conn *websocket.Conn, identity *model.Identity, loc *time.Location) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		Hub:      hub,
		Conn:     conn,
		Identity: identity,
		Send:     make(chan []byte, sendBuffer),
		loc:      loc,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.draft = draft.New(c.today())

	opts := []synchronizer.Option{synchronizer.OnChange(func(synchronizer.State) { c.pushView() })}
	if hub.cache != nil {
		opts = append(opts, synchronizer.WithCache(hub.cache))
	}
	c.syncer = synchronizer.New(hub.subscriber, opts...)
	return c
}

func location(name string) *time.Location {
	loc := view.Zone(name)
	if name != "" && loc == time.UTC && name != "UTC" {
		logger.Sugar.Warnf("Unknown time zone %q, using UTC", name)
	}
	return loc
}

func (c *Client) localNow() time.Time {
	return c.Hub.now().In(c.loc)
}

func (c *Client) today() string {
	return c.localNow().Format(model.DateLayout)
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
			c.stop()
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg WSMessage) {
	switch msg.Type {
	case SearchType:
		var p searchPayload
		if !c.decode(msg, &p) {
			return
		}
		c.mu.Lock()
		c.search = p.Query
		c.mu.Unlock()
		c.pushView()

	case ComposeType:
		c.draft.Open()
		c.pushView()

	case CancelType:
		c.draft.Cancel()
		c.pushView()

	case DraftType:
		var p service.SaveInput
		if !c.decode(msg, &p) {
			return
		}
		if err := c.draft.Edit(p.Title, p.Content, p.Date); err != nil {
			c.sendError(msg.Type, apperr.Message(err))
			return
		}
		c.pushView()

	case SaveType:
		c.save()

	case DeleteType:
		var p deletePayload
		if !c.decode(msg, &p) {
			return
		}
		c.deleteEntry(p)

	case PhotoFailedType:
		c.mu.Lock()
		c.photoFailed = true
		c.mu.Unlock()
		c.pushView()

	default:
		logger.Sugar.Warnf("Unknown message type %q from %s", msg.Type, c.Identity.ID)
	}
}

func (c *Client) decode(msg WSMessage, dst any) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		logger.Sugar.Errorf("Error unmarshalling %s payload: %v", msg.Type, err)
		return false
	}
	return true
}

func (c *Client) save() {
	in, err := c.draft.Begin(c.Identity, c.today())
	if err != nil {
		c.sendError(SaveType, apperr.Message(err))
		return
	}
	c.pushView()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		id, err := c.Hub.entries.Save(ctx, c.Identity, in)
		c.draft.Finish(err)
		c.pushView()
		if err == nil {
			c.sendMessage(SavedType, idPayload{ID: id})
		}
	}()
}

func (c *Client) deleteEntry(p deletePayload) {
	if !p.Confirmed {
		c.sendError(DeleteType, apperr.ConfirmationRequired.Message())
		return
	}
	if !c.syncer.Contains(p.ID) {
		c.sendError(DeleteType, apperr.NotFound.Message())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		if err := c.Hub.entries.Delete(ctx, c.Identity, p.ID, true); err != nil {
			c.sendError(DeleteType, apperr.Message(err))
			return
		}
		c.sendMessage(DeletedType, idPayload{ID: p.ID})
	}()
}

// pushView renders the current state and queues it as a VIEW message.
func (c *Client) pushView() {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	st := c.syncer.State()
	c.mu.Lock()
	search, photoFailed := c.search, c.photoFailed
	c.mu.Unlock()

	v := view.Derive(st.Entries, view.Options{
		Search:      search,
		Now:         c.localNow(),
		DisplayName: c.Identity.DisplayName,
	})
	payload := ViewPayload{
		Page:        view.Render(v, c.Identity, photoFailed),
		Loading:     st.Loading,
		Placeholder: st.Placeholder,
		Error:       apperr.Message(st.Err),
		Draft:       c.draft.Snapshot(),
	}
	c.sendMessage(ViewType, payload)
}

func (c *Client) sendError(op, message string) {
	c.sendMessage(ErrorType, errorPayload{Op: op, Message: message})
}

func (c *Client) sendMessage(msgType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s message: %v", msgType, err)
		return
	}
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: body})
	c.enqueue(msg)
}

// enqueue queues msg unless the session is closed. A client that cannot keep
// up is disconnected.
func (c *Client) enqueue(msg []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- msg:
	default:
		logger.Sugar.Warnf("Client %s's send buffer is full. Closing.", c.Identity.ID)
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// stop disposes the subscription and ends the write side. Safe to call more
// than once.
func (c *Client) stop() {
	c.stopOnce.Do(func() {
		c.syncer.Stop()
		c.cancel()
		c.closeSend()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
