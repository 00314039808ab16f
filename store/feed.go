package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dailyjournal/pkg/logger"

	"github.com/lib/pq"
)

const (
	defaultPingInterval = 90 * time.Second
	defaultQueryTimeout = 10 * time.Second
)

// Lister returns the complete current set of an owner's documents.
type Lister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
}

// NotificationSource is the LISTEN side of the feed. *pq.Listener satisfies
// it.
type NotificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// NewListener opens a reconnecting LISTEN connection.
func NewListener(dsn string) *pq.Listener {
	return pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Sugar.Info("Entry feed listener connected")
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			logger.Sugar.Warnf("Entry feed listener lost connection: %v", err)
		case pq.ListenerEventReconnected:
			logger.Sugar.Info("Entry feed listener reconnected")
		}
	})
}

// Feed fans a single LISTEN connection out to owner-scoped subscriptions.
// Every change notification re-queries the owner once and delivers the full
// set to each of the owner's subscriptions.
type Feed struct {
	lister       Lister
	source       NotificationSource
	pingInterval time.Duration
	queryTimeout time.Duration

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	// mu serializes query+deliver so snapshots arrive in query order.
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

func NewFeed(lister Lister, source NotificationSource) *Feed {
	return &Feed{
		lister:       lister,
		source:       source,
		pingInterval: defaultPingInterval,
		queryTimeout: defaultQueryTimeout,
		rooms:        make(map[string]*room),
	}
}

// Run listens for change notifications until ctx is done or the source is
// closed.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.source.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("listen on %s: %w", NotifyChannel, err)
	}
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	notifications := f.source.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return errors.New("entry feed listener closed")
			}
			if n == nil {
				// The listener reconnected and may have missed notifications.
				f.refreshAll(ctx)
				continue
			}
			f.refresh(ctx, n.Extra)
		case <-ticker.C:
			go func() {
				if err := f.source.Ping(); err != nil {
					logger.Sugar.Warnf("Entry feed listener ping failed: %v", err)
				}
			}()
		}
	}
}

// Close stops the underlying listener.
func (f *Feed) Close() error {
	return f.source.Close()
}

// Subscribe registers a subscription for ownerID and delivers the initial
// snapshot asynchronously.
func (f *Feed) Subscribe(ctx context.Context, ownerID string) (Subscription, error) {
	if ownerID == "" {
		return nil, errors.New("subscribe: owner id is required")
	}
	s := &subscription{feed: f, owner: ownerID, events: make(chan Event, 1)}

	f.mu.Lock()
	r, ok := f.rooms[ownerID]
	if !ok {
		r = &room{subs: make(map[*subscription]struct{})}
		f.rooms[ownerID] = r
	}
	r.subs[s] = struct{}{}
	f.mu.Unlock()

	go f.deliver(ctx, ownerID, r, []*subscription{s})
	return s, nil
}

// Owners returns the owners with at least one live subscription.
func (f *Feed) Owners() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	owners := make([]string, 0, len(f.rooms))
	for owner := range f.rooms {
		owners = append(owners, owner)
	}
	return owners
}

func (f *Feed) refresh(ctx context.Context, ownerID string) {
	f.mu.Lock()
	r, ok := f.rooms[ownerID]
	f.mu.Unlock()
	if !ok {
		return
	}
	f.deliver(ctx, ownerID, r, nil)
}

func (f *Feed) refreshAll(ctx context.Context) {
	for _, owner := range f.Owners() {
		f.refresh(ctx, owner)
	}
}

// deliver queries the owner's documents and offers the result to targets, or
// to every subscription in the room when targets is nil.
func (f *Feed) deliver(ctx context.Context, ownerID string, r *room, targets []*subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	qctx, cancel := context.WithTimeout(ctx, f.queryTimeout)
	docs, err := f.lister.ListByOwner(qctx, ownerID)
	cancel()

	ev := Event{Documents: docs}
	if err != nil {
		logger.Sugar.Errorf("Failed to load entries for %s: %v", ownerID, err)
		ev = Event{Err: err}
	}

	if targets == nil {
		f.mu.Lock()
		targets = make([]*subscription, 0, len(r.subs))
		for s := range r.subs {
			targets = append(targets, s)
		}
		f.mu.Unlock()
	}
	for _, s := range targets {
		s.offer(ev)
	}
}

func (f *Feed) remove(s *subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[s.owner]
	if !ok {
		return
	}
	delete(r.subs, s)
	if len(r.subs) == 0 {
		delete(f.rooms, s.owner)
	}
}

type subscription struct {
	feed   *Feed
	owner  string
	events chan Event

	mu     sync.Mutex
	closed bool
}

func (s *subscription) Events() <-chan Event { return s.events }

// offer delivers ev, replacing a pending undelivered event: each snapshot
// fully supersedes the previous one.
func (s *subscription) offer(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case <-s.events:
	default:
	}
	s.events <- ev
}

func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.feed.remove(s)
	return nil
}
