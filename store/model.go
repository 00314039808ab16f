package store

import (
	"context"
	"time"
)

// NotifyChannel is the Postgres channel the entries trigger notifies on. The
// payload is the owner id of the inserted or deleted row.
const NotifyChannel = "entries_changed"

// Field names of a raw entry document.
const (
	FieldOwnerID         = "ownerId"
	FieldTitle           = "title"
	FieldDate            = "date"
	FieldContent         = "content"
	FieldWordCount       = "wordCount"
	FieldCreatedAt       = "createdAt"
	FieldClientCreatedAt = "clientCreatedAt"
)

// Document is one stored entry as delivered by the store, before
// normalization.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Timestamp is the store-native point in time, as written to the session
// cache.
type Timestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int32 `json:"nanoseconds"`
}

func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int32(t.Nanosecond())}
}

func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanoseconds)).UTC()
}

// Event is one delivery of a subscription: either the complete current set of
// matching documents or a transport error.
type Event struct {
	Documents []Document
	Err       error
}

// Subscription is a live, owner-scoped snapshot stream.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Subscriber opens owner-scoped subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, ownerID string) (Subscription, error)
}
