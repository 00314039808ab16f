package repository

import (
	"context"
	"database/sql"
	"dailyjournal/internal/entry/model"
	"dailyjournal/pkg/logger"
	"dailyjournal/store"
	"errors"
	"time"

	"github.com/lib/pq"
)

// invalidTextRepresentation is raised when id is not a UUID.
const invalidTextRepresentation pq.ErrorCode = "22P02"

type EntryRepository struct {
	DB *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{DB: db}
}

// Insert stores e and returns its id. created_at is assigned by the database.
func (r *EntryRepository) Insert(ctx context.Context, e model.NewEntry) (string, error) {
	var id string
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO entries (id, owner_id, title, entry_date, content, word_count, client_created_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id`,
		e.ID, e.OwnerID, e.Title, e.Date, e.Content, e.WordCount, e.ClientCreatedAt,
	).Scan(&id)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert entry for %s: %v", e.OwnerID, err)
	}
	return id, err
}

// DeleteByID removes the entry if it belongs to ownerID. An id that cannot
// name any entry is reported as store.ErrNotFound.
func (r *EntryRepository) DeleteByID(ctx context.Context, id, ownerID string) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM entries WHERE id = $1 AND owner_id = $2", id, ownerID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation {
		return store.ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to delete entry %s: %v", id, err)
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListByOwner returns every entry of ownerID as raw documents.
func (r *EntryRepository) ListByOwner(ctx context.Context, ownerID string) ([]store.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, owner_id, title, entry_date, content, word_count, client_created_at, created_at
		FROM entries WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list entries for %s: %v", ownerID, err)
		return nil, err
	}
	defer rows.Close()

	docs := []store.Document{}
	for rows.Next() {
		var (
			id, owner, title, content string
			date                      time.Time
			words                     int
			clientCreated, created    sql.NullTime
		)
		if err := rows.Scan(&id, &owner, &title, &date, &content, &words, &clientCreated, &created); err != nil {
			logger.Sugar.Errorf("Failed to scan entry for %s: %v", ownerID, err)
			return nil, err
		}
		fields := map[string]any{
			store.FieldOwnerID:   owner,
			store.FieldTitle:     title,
			store.FieldDate:      date.Format(model.DateLayout),
			store.FieldContent:   content,
			store.FieldWordCount: words,
		}
		if clientCreated.Valid {
			fields[store.FieldClientCreatedAt] = clientCreated.Time
		}
		if created.Valid {
			fields[store.FieldCreatedAt] = created.Time
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		logger.Sugar.Errorf("Failed to read entries for %s: %v", ownerID, err)
		return nil, err
	}
	return docs, nil
}

func (r *EntryRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}
