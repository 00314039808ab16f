package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date form of Entry.Date.
const DateLayout = "2006-01-02"

// Identity is the signed-in user as asserted by the session provider.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url"`
}

// Entry is one diary record. Entries are never edited after creation.
type Entry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Content   string    `json:"content"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry is the insert payload for an entry. CreatedAt is assigned by the
// store.
type NewEntry struct {
	ID              string
	OwnerID         string
	Title           string
	Date            string
	Content         string
	WordCount       int
	ClientCreatedAt time.Time
}

type CreateEntryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

type CreateEntryResponse struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// CountWords returns the number of whitespace-separated tokens in content.
func CountWords(content string) int {
	return len(strings.Fields(content))
}
