package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dailyjournal/internal/entry/model"
	"dailyjournal/internal/entry/service"
	"dailyjournal/internal/entry/view"
	"dailyjournal/middleware"
	"dailyjournal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	inserted  []model.NewEntry
	deleteErr error
}

func (f *fakeStore) Insert(_ context.Context, e model.NewEntry) (string, error) {
	f.inserted = append(f.inserted, e)
	return e.ID, nil
}

func (f *fakeStore) DeleteByID(context.Context, string, string) error { return f.deleteErr }

type fakeLister struct {
	docs []store.Document
	err  error
}

func (f *fakeLister) ListByOwner(context.Context, string) ([]store.Document, error) {
	return f.docs, f.err
}

type fakeSessions struct {
	owners []string
	err    error
}

func (f *fakeSessions) Logout(_ context.Context, owner string) error {
	f.owners = append(f.owners, owner)
	return f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

var (
	alice = &model.Identity{ID: "u1", DisplayName: "Alice Smith", Email: "alice@example.com"}
	noon  = time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
)

type fixture struct {
	handler  *EntryHandler
	store    *fakeStore
	lister   *fakeLister
	sessions *fakeSessions
}

func newFixture() *fixture {
	st := &fakeStore{}
	svc := service.NewEntryService(st)
	svc.Now = func() time.Time { return noon }
	svc.NewID = func() string { return "e-new" }
	f := &fixture{store: st, lister: &fakeLister{}, sessions: &fakeSessions{}}
	f.handler = NewEntryHandler(svc, f.lister, f.sessions, fakePinger{})
	f.handler.Now = func() time.Time { return noon }
	return f
}

func withIdentity(req *http.Request, identity *model.Identity) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.IdentityKey, identity))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestGetEntries(t *testing.T) {
	f := newFixture()
	f.lister.docs = []store.Document{
		{ID: "a", Fields: map[string]any{store.FieldContent: "Hello world", store.FieldDate: "2024-03-01",
			store.FieldWordCount: 2, store.FieldCreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}},
		{ID: "b", Fields: map[string]any{store.FieldContent: "Rain", store.FieldDate: "2024-03-09",
			store.FieldWordCount: 1, store.FieldCreatedAt: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)}},
	}

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/entries?q=hello&tz=UTC", nil), alice)
	rec := httptest.NewRecorder()
	f.handler.GetEntries(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page view.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "a", page.Entries[0].ID)
	assert.Equal(t, view.Stats{TotalEntries: 2, TotalWords: 3}, page.Stats)
	assert.Equal(t, "Good afternoon, Alice", page.Greeting)
	assert.Equal(t, view.EmptyNone, page.EmptyState)
}

func TestGetEntriesLoadFailure(t *testing.T) {
	f := newFixture()
	f.lister.err = errors.New("connection refused")

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/entries", nil), alice)
	rec := httptest.NewRecorder()
	f.handler.GetEntries(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to load entries.", decodeError(t, rec))
}

func TestGetEntriesRequiresIdentity(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.handler.GetEntries(rec, httptest.NewRequest(http.MethodGet, "/api/entries", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateEntry(t *testing.T) {
	f := newFixture()
	body := strings.NewReader(`{"content":"one two  three","date":"2024-03-01"}`)
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/entries/create", body), alice)
	rec := httptest.NewRecorder()
	f.handler.CreateEntry(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp model.CreateEntryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "e-new", resp.ID)
	require.Len(t, f.store.inserted, 1)
	assert.Equal(t, "Entry - March 1, 2024", f.store.inserted[0].Title)
	assert.Equal(t, 3, f.store.inserted[0].WordCount)
}

func TestCreateEntryRejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"blank", `{"content":"   "}`, http.StatusBadRequest, "Write something before saving."},
		{"bad date", `{"content":"x","date":"tomorrow"}`, http.StatusBadRequest, "Choose a valid date for this entry."},
		{"bad json", `{`, http.StatusBadRequest, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/entries/create", strings.NewReader(tt.body)), alice)
			rec := httptest.NewRecorder()
			f.handler.CreateEntry(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decodeError(t, rec))
			assert.Empty(t, f.store.inserted)
		})
	}
}

func TestCreateEntryBodyTooLarge(t *testing.T) {
	f := newFixture()
	body := `{"content":"` + strings.Repeat("a", maxBodySize) + `"}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/entries/create", strings.NewReader(body)), alice)
	rec := httptest.NewRecorder()
	f.handler.CreateEntry(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Entry is too large", decodeError(t, rec))
	assert.Empty(t, f.store.inserted)
}

func TestCreateEntryMethodNotAllowed(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.handler.CreateEntry(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/entries/create", nil), alice))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDeleteEntry(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		storeErr error
		status   int
	}{
		{"confirmed", "/api/entries/delete?id=e1&confirm=true", nil, http.StatusNoContent},
		{"unconfirmed", "/api/entries/delete?id=e1", nil, http.StatusBadRequest},
		{"missing id", "/api/entries/delete?confirm=true", nil, http.StatusBadRequest},
		{"not found", "/api/entries/delete?id=e1&confirm=true", store.ErrNotFound, http.StatusNotFound},
		{"store down", "/api/entries/delete?id=e1&confirm=true", errors.New("timeout"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.store.deleteErr = tt.storeErr
			req := withIdentity(httptest.NewRequest(http.MethodDelete, tt.target, nil), alice)
			rec := httptest.NewRecorder()
			f.handler.DeleteEntry(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMe(t *testing.T) {
	f := newFixture()
	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/me?tz=UTC", nil), alice)
	rec := httptest.NewRecorder()
	f.handler.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp meResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Alice Smith", resp.Profile.Label)
	assert.Equal(t, view.DefaultAvatar, resp.Profile.Photo)
	assert.Equal(t, "Good afternoon, Alice", resp.Greeting)
}

func TestLogout(t *testing.T) {
	f := newFixture()
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/logout", nil), alice)
	rec := httptest.NewRecorder()
	f.handler.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"u1"}, f.sessions.owners)
}

func TestLogoutFailure(t *testing.T) {
	f := newFixture()
	f.sessions.err = errors.New("redis down")
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/logout", nil), alice)
	rec := httptest.NewRecorder()
	f.handler.Logout(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to sign out. Please try again.", decodeError(t, rec))
}

func TestHealth(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.handler.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	f.handler.DB = fakePinger{err: errors.New("down")}
	rec = httptest.NewRecorder()
	f.handler.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
