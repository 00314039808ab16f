package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"dailyjournal/internal/entry/model"
	"dailyjournal/pkg/apperr"
	"dailyjournal/pkg/logger"
	"dailyjournal/store"

	"github.com/google/uuid"
)

const titleDateLayout = "January 2, 2006"

// Store is the write side of the entry store.
type Store interface {
	Insert(ctx context.Context, e model.NewEntry) (string, error)
	DeleteByID(ctx context.Context, id, ownerID string) error
}

// SaveInput is a submitted draft.
type SaveInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

type EntryService struct {
	Store Store
	Now   func() time.Time
	NewID func() string
}

func NewEntryService(s Store) *EntryService {
	return &EntryService{Store: s, Now: time.Now, NewID: uuid.NewString}
}

// Save validates in and creates a new entry owned by identity. Precondition
// failures never reach the store.
func (s *EntryService) Save(ctx context.Context, identity *model.Identity, in SaveInput) (string, error) {
	if identity == nil || identity.ID == "" {
		return "", apperr.New(apperr.NoIdentity)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", apperr.New(apperr.EmptyContent)
	}

	now := s.Now()
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = now.Format(model.DateLayout)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return "", apperr.Wrap(apperr.InvalidDate, err)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = DefaultTitle(date)
	}

	id, err := s.Store.Insert(ctx, model.NewEntry{
		ID:              s.NewID(),
		OwnerID:         identity.ID,
		Title:           title,
		Date:            date,
		Content:         content,
		WordCount:       model.CountWords(content),
		ClientCreatedAt: now,
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to save entry for %s: %v", identity.ID, err)
		return "", apperr.Wrap(apperr.SaveFailed, err)
	}
	logger.Sugar.Infof("Entry %s saved for %s", id, identity.ID)
	return id, nil
}

// Delete removes the entry id owned by identity. confirmed must be set by
// the caller after the user has acknowledged the prompt.
func (s *EntryService) Delete(ctx context.Context, identity *model.Identity, id string, confirmed bool) error {
	if identity == nil || identity.ID == "" {
		return apperr.New(apperr.NoIdentity)
	}
	if !confirmed {
		return apperr.New(apperr.ConfirmationRequired)
	}
	if id == "" {
		return apperr.New(apperr.NotFound)
	}

	if err := s.Store.DeleteByID(ctx, id, identity.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Wrap(apperr.NotFound, err)
		}
		logger.Sugar.Errorf("Failed to delete entry %s for %s: %v", id, identity.ID, err)
		return apperr.Wrap(apperr.DeleteFailed, err)
	}
	logger.Sugar.Infof("Entry %s deleted for %s", id, identity.ID)
	return nil
}

// DefaultTitle is the title given to an entry saved without one.
func DefaultTitle(date string) string {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return "Entry - " + date
	}
	return "Entry - " + d.Format(titleDateLayout)
}

// SaveErrorMessage is the text shown on the draft when Save fails: the
// precondition message, or the store's own description of the failure.
func SaveErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	kind := apperr.KindOf(err)
	if kind == apperr.SaveFailed {
		return store.Describe(errors.Unwrap(err))
	}
	return kind.Message()
}
