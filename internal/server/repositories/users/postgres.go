// Package users provides the PostgreSQL repository for user records keyed by
// identity-provider subject.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/dbx"
	"github.com/dmitrijs2005/workout/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetBySubject returns the user with the given subject or common.ErrNotFound.
func (r *PostgresRepository) GetBySubject(ctx context.Context, sub string) (*models.User, error) {
	query :=
		`SELECT id, cognito_sub, email, created_at FROM users
		 WHERE cognito_sub = $1
		 `

	user := &models.User{}
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, query, sub).Scan(&user.ID, &user.CognitoSub, &email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if email.Valid {
		user.Email = &email.String
	}

	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, sub string, email *string) (*models.User, error) {
	query :=
		`INSERT INTO users (cognito_sub, email)
		 VALUES ($1, $2)
		 RETURNING id, created_at
		 `

	user := &models.User{CognitoSub: sub, Email: email}
	err := r.db.QueryRowContext(ctx, query, sub, nullString(email)).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdateEmail(ctx context.Context, id int64, email string) error {
	query :=
		`UPDATE users SET email = $1
		 WHERE id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, email, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
