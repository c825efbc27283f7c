package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/workout/internal/dbx"
	"github.com/dmitrijs2005/workout/internal/server/repositories/messages"
	"github.com/dmitrijs2005/workout/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code path
// can run on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
}
