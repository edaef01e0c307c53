package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/spotivault/internal/dbx"
	"github.com/dmitrijs2005/spotivault/internal/server/migrations"
	"github.com/dmitrijs2005/spotivault/internal/server/repositories/authstates"
	"github.com/dmitrijs2005/spotivault/internal/server/repositories/tokenrecords"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed manager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// AuthStates returns an authstates.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) AuthStates(db dbx.DBTX) authstates.Repository {
	return authstates.NewPostgresRepository(db)
}

// TokenRecords returns a tokenrecords.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) TokenRecords(db dbx.DBTX) tokenrecords.Repository {
	return tokenrecords.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations points goose at the embedded migrations and applies them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
