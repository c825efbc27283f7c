package services

import (
	"context"
	"database/sql"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/server/models"
	"github.com/dmitrijs2005/workout/internal/server/repositories/repomanager"
)

// MessageService implements message create/list/delete for a single owner.
// Every statement runs on a pooled connection.
type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewMessageService(db *sql.DB, rm repomanager.RepositoryManager) *MessageService {
	return &MessageService{db: db, repomanager: rm}
}

// ValidateText reports whether text can be stored as a message body.
func ValidateText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: message must not be empty", common.ErrValidation)
	}
	if n := utf8.RuneCountInString(text); n > common.MaxMessageLength {
		return fmt.Errorf("%w: message is %d characters, max %d", common.ErrValidation, n, common.MaxMessageLength)
	}
	return nil
}

func (s *MessageService) Create(ctx context.Context, userID int64, text string) (*models.Message, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	msg, err := s.repomanager.Messages(s.db).Create(ctx, userID, text)
	if err != nil {
		return nil, infrastructure(err)
	}
	return msg, nil
}

// List returns the user's messages, newest first. The slice is never nil.
func (s *MessageService) List(ctx context.Context, userID int64) ([]*models.Message, error) {
	msgs, err := s.repomanager.Messages(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, infrastructure(err)
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

// Delete removes the message if userID owns it. A message owned by someone
// else is reported as common.ErrNotFound, same as a missing one.
func (s *MessageService) Delete(ctx context.Context, userID, messageID int64) error {
	if err := s.repomanager.Messages(s.db).DeleteOwned(ctx, userID, messageID); err != nil {
		return infrastructure(err)
	}
	return nil
}
