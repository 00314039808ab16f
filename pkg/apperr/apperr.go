// Package apperr classifies failures into kinds with user-facing messages.
package apperr

import "errors"

type Kind int

const (
	Unknown Kind = iota
	EmptyContent
	InvalidDate
	NoIdentity
	SaveInFlight
	ConfirmationRequired
	NotFound
	LoadFailed
	SaveFailed
	DeleteFailed
	Unauthorized
	LogoutFailed
)

const genericMessage = "An error occurred. Please try again."

var messages = map[Kind]string{
	EmptyContent:         "Write something before saving.",
	InvalidDate:          "Choose a valid date for this entry.",
	NoIdentity:           "You need to be signed in to do that.",
	SaveInFlight:         "This entry is already being saved.",
	ConfirmationRequired: "Please confirm that you want to delete this entry.",
	NotFound:             "That entry no longer exists.",
	LoadFailed:           "Failed to load entries.",
	SaveFailed:           "Failed to save entry.",
	DeleteFailed:         "Failed to delete entry.",
	Unauthorized:         "Your session has expired. Please sign in again.",
	LogoutFailed:         "Failed to sign out. Please try again.",
}

// Error carries a Kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Message()
	}
	return e.Kind.Message() + " (" + e.Err.Error() + ")"
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the display text for k.
func (k Kind) Message() string {
	if msg, ok := messages[k]; ok {
		return msg
	}
	return genericMessage
}

// IsPrecondition reports whether k is rejected locally, before any store call.
func (k Kind) IsPrecondition() bool {
	switch k {
	case EmptyContent, InvalidDate, NoIdentity, SaveInFlight, ConfirmationRequired:
		return true
	}
	return false
}

func New(kind Kind) error {
	return &Error{Kind: kind}
}

func Wrap(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}

// Message returns the display text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return KindOf(err).Message()
}
