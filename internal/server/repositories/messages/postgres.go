// Package messages provides the PostgreSQL repository for user-owned
// messages. Every statement is scoped by owner.
package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/dbx"
	"github.com/dmitrijs2005/workout/internal/server/models"
)

// PostgresRepository implements message storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a message for userID; id and created_at come from the database.
func (r *PostgresRepository) Create(ctx context.Context, userID int64, text string) (*models.Message, error) {
	query := `
		INSERT INTO messages (user_id, message)
		VALUES ($1, $2)
		RETURNING id, message, created_at
	`
	m := &models.Message{UserID: userID}
	err := r.db.QueryRowContext(ctx, query, userID, text).Scan(&m.ID, &m.Text, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// ListByUser returns userID's messages, newest first. Rows sharing a
// timestamp are ordered by id, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Message, error) {
	query := `
		SELECT id, message, created_at FROM messages
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Message, 0)
	for rows.Next() {
		m := &models.Message{UserID: userID}
		if err := rows.Scan(&m.ID, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return result, nil
}

// DeleteOwned removes the message only when it exists and belongs to userID,
// in one statement. Anything else is common.ErrNotFound.
func (r *PostgresRepository) DeleteOwned(ctx context.Context, userID, messageID int64) error {
	query := `
		DELETE FROM messages
		WHERE id = $1 AND user_id = $2
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, messageID, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
