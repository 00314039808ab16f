package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const genericStoreMessage = "The journal service is unavailable. Please try again."

// Postgres error classes and codes we have display text for. Codes win
// over classes.
var (
	codeMessages = map[pq.ErrorCode]string{
		"23505": "An entry with this id already exists.",
		"22007": "The entry date is not a valid date.",
		"22008": "The entry date is out of range.",
		"22P02": "The entry id is not valid.",
		"53300": "The journal service is busy. Please try again shortly.",
		"57P01": "The journal service is restarting. Please try again shortly.",
		"57P03": "The journal service is starting up. Please try again shortly.",
	}
	classMessages = map[pq.ErrorClass]string{
		"08": "Could not reach the journal service. Check your connection and try again.",
		"22": "The entry contains invalid data.",
		"23": "The entry conflicts with an existing one.",
		"42": "The journal service is misconfigured.",
		"53": "The journal service is out of resources. Please try again later.",
	}
)

// ErrNotFound is returned when an owner-scoped statement matched no rows.
var ErrNotFound = errors.New("entry not found")

// Describe maps a store error to display text.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if msg, ok := codeMessages[pqErr.Code]; ok {
			return msg
		}
		if msg, ok := classMessages[pqErr.Code.Class()]; ok {
			return msg
		}
		return genericStoreMessage
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return "That entry no longer exists."
	case errors.Is(err, context.DeadlineExceeded):
		return "The journal service took too long to respond. Please try again."
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, context.Canceled):
		return "Could not reach the journal service. Check your connection and try again."
	}
	return genericStoreMessage
}
