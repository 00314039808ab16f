package synchronizer

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"dailyjournal/internal/entry/model"
	"dailyjournal/store"
)

// Normalize turns raw documents into entries sorted newest-first.
//
// createdAt is resolved from the authoritative createdAt field, then the
// client-assigned clientCreatedAt, then previous[id] (the value recorded for
// the same entry in an earlier snapshot), then now.
func Normalize(docs []store.Document, previous map[string]time.Time, now time.Time) []model.Entry {
	entries := make([]model.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, normalizeOne(d, previous, now))
	}
	SortNewestFirst(entries)
	return entries
}

func normalizeOne(d store.Document, previous map[string]time.Time, now time.Time) model.Entry {
	e := model.Entry{
		ID:      d.ID,
		OwnerID: stringField(d.Fields, store.FieldOwnerID),
		Title:   stringField(d.Fields, store.FieldTitle),
		Date:    stringField(d.Fields, store.FieldDate),
		Content: stringField(d.Fields, store.FieldContent),
	}

	if n, ok := toInt(d.Fields[store.FieldWordCount]); ok {
		e.WordCount = int(n)
	} else {
		e.WordCount = model.CountWords(strings.TrimSpace(e.Content))
	}

	switch {
	case resolve(d.Fields[store.FieldCreatedAt], &e.CreatedAt):
	case resolve(d.Fields[store.FieldClientCreatedAt], &e.CreatedAt):
	case !previous[d.ID].IsZero():
		e.CreatedAt = previous[d.ID]
	default:
		e.CreatedAt = now
	}
	return e
}

// resolve accepts an already-resolved time, an RFC 3339 string, or a
// store-native timestamp carrying seconds since the epoch.
func resolve(v any, dst *time.Time) bool {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x != nil {
			t = *x
		}
	case store.Timestamp:
		t = x.Time()
	case *store.Timestamp:
		if x != nil {
			t = x.Time()
		}
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return false
		}
		t = parsed
	case map[string]any:
		secs, ok := toInt(x["seconds"])
		if !ok {
			return false
		}
		nanos, _ := toInt(x["nanoseconds"])
		t = time.Unix(secs, nanos).UTC()
	}
	if t.IsZero() {
		return false
	}
	*dst = t
	return true
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	}
	return 0, false
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// SortNewestFirst orders entries by createdAt descending, falling back to the
// entry date when createdAt is unset. Ties are broken by id.
func SortNewestFirst(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ki, kj := sortKey(entries[i]), sortKey(entries[j])
		if !ki.Equal(kj) {
			return ki.After(kj)
		}
		return entries[i].ID < entries[j].ID
	})
}

func sortKey(e model.Entry) time.Time {
	if !e.CreatedAt.IsZero() {
		return e.CreatedAt
	}
	d, err := time.Parse(model.DateLayout, e.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}
