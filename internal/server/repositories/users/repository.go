package users

import (
	"context"

	"github.com/dmitrijs2005/workout/internal/server/models"
)

type Repository interface {
	GetBySubject(ctx context.Context, sub string) (*models.User, error)
	Create(ctx context.Context, sub string, email *string) (*models.User, error)
	UpdateEmail(ctx context.Context, id int64, email string) error
}
