// Package repomanager vends repository implementations and owns the schema
// migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/spotivault/internal/dbx"
	"github.com/dmitrijs2005/spotivault/internal/server/repositories/authstates"
	"github.com/dmitrijs2005/spotivault/internal/server/repositories/tokenrecords"
)

// RepositoryManager hands out repositories bound to a DBTX so the same
// repository code runs against a plain connection or a transaction.
type RepositoryManager interface {
	AuthStates(db dbx.DBTX) authstates.Repository
	TokenRecords(db dbx.DBTX) tokenrecords.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
