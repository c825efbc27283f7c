// Package services holds the server's business logic: turning verified tokens
// into local users and the message operations scoped to those users.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/dbx"
	"github.com/dmitrijs2005/workout/internal/server/auth"
	"github.com/dmitrijs2005/workout/internal/server/models"
	"github.com/dmitrijs2005/workout/internal/server/repositories/repomanager"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// IdentityService maps identity-provider subjects to local user rows.
type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewIdentityService(db *sql.DB, rm repomanager.RepositoryManager) *IdentityService {
	return &IdentityService{db: db, repomanager: rm}
}

// Resolve returns the user for id.Subject, creating it on first sight and
// refreshing the stored email when the token carries a different one.
//
// Two first requests for the same subject can race on the insert; the loser
// sees a unique violation and resolves again, finding the winner's row.
func (s *IdentityService) Resolve(ctx context.Context, id *auth.Identity) (*models.User, error) {
	user, err := s.resolveTx(ctx, id)
	if err != nil && isUniqueViolation(err) {
		user, err = s.resolveTx(ctx, id)
	}
	if err != nil {
		return nil, infrastructure(err)
	}
	return user, nil
}

func (s *IdentityService) resolveTx(ctx context.Context, id *auth.Identity) (*models.User, error) {
	var user *models.User

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetBySubject(ctx, id.Subject)
		switch {
		case errors.Is(err, common.ErrNotFound):
			var email *string
			if id.Email != "" {
				email = &id.Email
			}
			user, err = repo.Create(ctx, id.Subject, email)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("get user: %w", err)
		}

		if id.Email != "" && id.Email != u.EmailValue() {
			if err := repo.UpdateEmail(ctx, u.ID, id.Email); err != nil {
				return fmt.Errorf("update email: %w", err)
			}
			email := id.Email
			u.Email = &email
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// TokenVerifier checks a bearer token. *auth.Verifier implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// Authenticator turns a raw bearer token into the local user it belongs to.
type Authenticator struct {
	verifier TokenVerifier
	identity *IdentityService
}

func NewAuthenticator(v TokenVerifier, identity *IdentityService) *Authenticator {
	return &Authenticator{verifier: v, identity: identity}
}

// Authenticate verifies token and resolves its subject. Verification errors
// are returned unchanged; resolution errors are common.ErrInfrastructure.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return a.identity.Resolve(ctx, id)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// infrastructure tags err as common.ErrInfrastructure unless it already
// carries a domain classification.
func infrastructure(err error) error {
	switch {
	case errors.Is(err, common.ErrInfrastructure),
		errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrAuthentication):
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrInfrastructure, err)
}
