package view

import (
	"strings"
	"time"
)

const fallbackName = "friend"

func PartOfDay(hour int) string {
	switch {
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// Greeting is e.g. "Good evening, Alice" for now in the viewer's zone.
func Greeting(now time.Time, displayName string) string {
	return "Good " + PartOfDay(now.Hour()) + ", " + FirstName(displayName)
}

func FirstName(displayName string) string {
	parts := strings.Fields(displayName)
	if len(parts) == 0 {
		return fallbackName
	}
	return parts[0]
}

// Zone resolves an IANA time zone name, falling back to UTC when it is empty
// or unknown.
func Zone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
