// Package view derives what a journal screen renders from the synchronized
// entries and transient UI state. Everything here is a pure function.
package view

import (
	"strings"
	"time"

	"dailyjournal/internal/entry/model"

	"golang.org/x/text/cases"
)

type EmptyState string

const (
	EmptyNone      EmptyState = "none"
	EmptyNoEntries EmptyState = "no_entries"
	EmptyNoMatches EmptyState = "no_matches"
)

type Stats struct {
	TotalEntries int `json:"total_entries"`
	TotalWords   int `json:"total_words"`
}

type Options struct {
	Search string
	// Now is the wall-clock time in the viewer's time zone.
	Now         time.Time
	DisplayName string
}

type View struct {
	Entries    []model.Entry `json:"entries"`
	Stats      Stats         `json:"stats"`
	Greeting   string        `json:"greeting"`
	EmptyState EmptyState    `json:"empty_state"`
	Search     string        `json:"search"`
}

func Derive(entries []model.Entry, opts Options) View {
	filtered := Filter(entries, opts.Search)

	v := View{
		Entries:    filtered,
		Stats:      Aggregate(entries),
		Greeting:   Greeting(opts.Now, opts.DisplayName),
		EmptyState: EmptyNone,
		Search:     opts.Search,
	}
	switch {
	case len(entries) == 0:
		v.EmptyState = EmptyNoEntries
	case len(filtered) == 0:
		v.EmptyState = EmptyNoMatches
	}
	return v
}

// Filter keeps entries whose content, title or date contains term, ignoring
// case. Order is preserved.
func Filter(entries []model.Entry, term string) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	if term == "" {
		return append(out, entries...)
	}
	fold := cases.Fold()
	needle := fold.String(term)
	for _, e := range entries {
		if strings.Contains(fold.String(e.Content), needle) ||
			strings.Contains(fold.String(e.Title), needle) ||
			strings.Contains(fold.String(e.Date), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Aggregate counts entries and stored word counts over the full collection.
func Aggregate(entries []model.Entry) Stats {
	s := Stats{TotalEntries: len(entries)}
	for _, e := range entries {
		s.TotalWords += e.WordCount
	}
	return s
}
