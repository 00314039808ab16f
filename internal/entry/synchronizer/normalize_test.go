package synchronizer

import (
	"encoding/json"
	"testing"
	"time"

	"dailyjournal/internal/entry/model"
	"dailyjournal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTimestampForms(t *testing.T) {
	want := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	native := store.TimestampOf(want)

	tests := []struct {
		name string
		in   any
		ok   bool
	}{
		{"resolved time", want, true},
		{"pointer", &want, true},
		{"native timestamp", native, true},
		{"native pointer", &native, true},
		{"rfc3339", want.Format(time.RFC3339), true},
		{"cached seconds map", map[string]any{"seconds": float64(want.Unix()), "nanoseconds": float64(0)}, true},
		{"json number seconds", map[string]any{"seconds": json.Number("1709285400")}, true},
		{"missing", nil, false},
		{"zero time", time.Time{}, false},
		{"garbage string", "yesterday", false},
		{"map without seconds", map[string]any{"nanos": 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Time
			ok := resolve(tt.in, &got)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestNormalizeFallbackChain(t *testing.T) {
	server := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	client := time.Date(2024, 3, 1, 9, 59, 59, 0, time.UTC)
	previous := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	docs := []store.Document{
		{ID: "server", Fields: map[string]any{store.FieldCreatedAt: server, store.FieldClientCreatedAt: client}},
		{ID: "client", Fields: map[string]any{store.FieldClientCreatedAt: client}},
		{ID: "previous", Fields: map[string]any{}},
		{ID: "now", Fields: map[string]any{store.FieldCreatedAt: "not a time"}},
	}
	entries := Normalize(docs, map[string]time.Time{"previous": previous}, now)

	byID := map[string]time.Time{}
	for _, e := range entries {
		byID[e.ID] = e.CreatedAt
	}
	assert.Equal(t, server, byID["server"])
	assert.Equal(t, client, byID["client"])
	assert.Equal(t, previous, byID["previous"])
	assert.Equal(t, now, byID["now"])
}

func TestNormalizeFields(t *testing.T) {
	docs := []store.Document{{
		ID: "e1",
		Fields: map[string]any{
			store.FieldOwnerID:   "u1",
			store.FieldTitle:     "Entry - March 1, 2024",
			store.FieldDate:      "2024-03-01",
			store.FieldContent:   "one two  three",
			store.FieldWordCount: float64(3),
		},
	}}
	entries := Normalize(docs, nil, time.Now())
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].OwnerID)
	assert.Equal(t, "Entry - March 1, 2024", entries[0].Title)
	assert.Equal(t, "2024-03-01", entries[0].Date)
	assert.Equal(t, 3, entries[0].WordCount)
}

func TestNormalizeMissingWordCount(t *testing.T) {
	docs := []store.Document{{ID: "e1", Fields: map[string]any{store.FieldContent: "  a b c d "}}}
	entries := Normalize(docs, nil, time.Now())
	assert.Equal(t, 4, entries[0].WordCount)
}

func TestSortNewestFirst(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		{ID: "old", CreatedAt: at},
		{ID: "tie-b", CreatedAt: at.Add(time.Hour)},
		{ID: "tie-a", CreatedAt: at.Add(time.Hour)},
		{ID: "dated", Date: "2024-06-01"},
		{ID: "undated"},
	}
	SortNewestFirst(entries)

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"dated", "tie-a", "tie-b", "old", "undated"}, ids)
}
