// Package repomanager vends repository implementations bound to a database
// handle (connection pool or transaction) and exposes the schema migration
// hook. Services hold a RepositoryManager instead of concrete repositories
// so that the same code runs inside and outside transactions.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/taskhub/internal/dbx"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to the provided DBTX.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	RevokedTokens(db dbx.DBTX) revokedtokens.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
