package messages

import (
	"context"

	"github.com/dmitrijs2005/workout/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID int64, text string) (*models.Message, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Message, error)
	DeleteOwned(ctx context.Context, userID, messageID int64) error
}
