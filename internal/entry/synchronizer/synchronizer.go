// Package synchronizer keeps a local, ordered replica of one identity's
// entries current through a push subscription.
package synchronizer

import (
	"context"
	"sync"
	"time"

	"dailyjournal/internal/entry/model"
	"dailyjournal/pkg/apperr"
	"dailyjournal/pkg/logger"
	"dailyjournal/store"
)

const cacheTimeout = 2 * time.Second

// Cache is the ephemeral, session-scoped entry list. It only supplies a
// placeholder until the subscription delivers.
type Cache interface {
	Load(ctx context.Context, ownerID string) ([]store.Document, bool, error)
	Save(ctx context.Context, ownerID string, docs []store.Document) error
	Clear(ctx context.Context, ownerID string) error
}

// State is what the synchronizer publishes after every change.
type State struct {
	Entries []model.Entry
	Loading bool
	// Placeholder is set while Entries come from the session cache rather
	// than a delivered snapshot.
	Placeholder bool
	Err         error
}

type Option func(*Synchronizer)

func WithCache(c Cache) Option {
	return func(s *Synchronizer) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// OnChange registers fn to receive a copy of the state after every change.
// fn is called without the synchronizer's lock held.
func OnChange(fn func(State)) Option {
	return func(s *Synchronizer) { s.onChange = fn }
}

type Synchronizer struct {
	subscriber store.Subscriber
	cache      Cache
	now        func() time.Time
	onChange   func(State)

	mu         sync.Mutex
	ownerID    string
	state      State
	sub        store.Subscription
	cancel     context.CancelFunc
	generation int
}

func New(subscriber store.Subscriber, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		subscriber: subscriber,
		now:        time.Now,
		state:      State{Entries: []model.Entry{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the subscription for identity and returns its disposer. A nil
// identity yields a ready, empty collection and no subscription. Any
// subscription from an earlier Start is disposed first.
func (s *Synchronizer) Start(ctx context.Context, identity *model.Identity) (func(), error) {
	s.Stop()

	if identity == nil || identity.ID == "" {
		s.mu.Lock()
		s.ownerID = ""
		s.state = State{Entries: []model.Entry{}}
		st := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(st)
		return func() {}, nil
	}
	ownerID := identity.ID

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.ownerID = ownerID
	s.state = State{Entries: []model.Entry{}, Loading: true}
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(st)

	s.loadPlaceholder(ctx, gen, ownerID)

	sub, err := s.subscriber.Subscribe(ctx, ownerID)
	if err != nil {
		s.fail(gen, err)
		return func() {}, apperr.Wrap(apperr.LoadFailed, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.generation != gen {
		// Restarted concurrently; this subscription is already stale.
		s.mu.Unlock()
		cancel()
		sub.Close()
		return func() {}, nil
	}
	s.sub = sub
	s.cancel = cancel
	s.mu.Unlock()

	go s.consume(subCtx, gen, sub)

	var once sync.Once
	return func() { once.Do(func() { s.dispose(gen) }) }, nil
}

// Stop disposes the live subscription, if any.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	s.dispose(gen)
}

func (s *Synchronizer) dispose(gen int) {
	s.mu.Lock()
	if s.generation != gen || s.sub == nil {
		s.mu.Unlock()
		return
	}
	sub, cancel := s.sub, s.cancel
	s.sub, s.cancel = nil, nil
	s.generation++
	s.mu.Unlock()

	cancel()
	if err := sub.Close(); err != nil {
		logger.Sugar.Warnf("Failed to close entry subscription: %v", err)
	}
}

func (s *Synchronizer) consume(ctx context.Context, gen int, sub store.Subscription) {
	for ev := range sub.Events() {
		if ev.Err != nil {
			s.fail(gen, ev.Err)
			continue
		}
		if s.replace(gen, ev.Documents) {
			s.saveCache(ctx, ev.Documents)
		}
	}
}

func (s *Synchronizer) replace(gen int, docs []store.Document) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	previous := make(map[string]time.Time, len(s.state.Entries))
	for _, e := range s.state.Entries {
		previous[e.ID] = e.CreatedAt
	}
	s.state = State{Entries: Normalize(docs, previous, s.now())}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(st)
	return true
}

func (s *Synchronizer) fail(gen int, err error) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	logger.Sugar.Errorf("Entry subscription for %s failed: %v", s.ownerID, err)
	s.state.Loading = false
	s.state.Err = apperr.Wrap(apperr.LoadFailed, err)
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(st)
}

func (s *Synchronizer) loadPlaceholder(ctx context.Context, gen int, ownerID string) {
	if s.cache == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	docs, found, err := s.cache.Load(cctx, ownerID)
	cancel()
	if err != nil {
		logger.Sugar.Warnf("Failed to read cached entries for %s: %v", ownerID, err)
		return
	}
	if !found {
		return
	}

	s.mu.Lock()
	if s.generation != gen || !s.state.Loading || s.state.Placeholder {
		s.mu.Unlock()
		return
	}
	s.state.Entries = Normalize(docs, nil, s.now())
	s.state.Placeholder = true
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(st)
}

func (s *Synchronizer) saveCache(ctx context.Context, docs []store.Document) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	ownerID := s.ownerID
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := s.cache.Save(cctx, ownerID, docs); err != nil {
		logger.Sugar.Warnf("Failed to cache entries for %s: %v", ownerID, err)
	}
}

// State returns a copy of the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Entries returns a copy of the synchronized collection, newest-first.
func (s *Synchronizer) Entries() []model.Entry {
	return s.State().Entries
}

// Contains reports whether id is in the synchronized collection.
func (s *Synchronizer) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.state.Entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *Synchronizer) snapshotLocked() State {
	st := s.state
	st.Entries = append([]model.Entry(nil), s.state.Entries...)
	if st.Entries == nil {
		st.Entries = []model.Entry{}
	}
	return st
}

func (s *Synchronizer) publish(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}
