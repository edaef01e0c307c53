package authstates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/spotivault/internal/common"
	"github.com/dmitrijs2005/spotivault/internal/dbx"
)

// Postgres error code for unique constraint violations.
const uniqueViolationCode = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new handshake state row.
func (r *PostgresRepository) Create(ctx context.Context, state string) error {
	query := `
		INSERT INTO auth_states (state)
		VALUES ($1)
	`
	if _, err := r.db.ExecContext(ctx, query, state); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return common.ErrorDuplicate
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// Consume deletes the state in a single statement so redemption is
// exactly-once even under concurrent callbacks. Rows older than notBefore
// are left for DeleteExpired and count as not found.
func (r *PostgresRepository) Consume(ctx context.Context, state string, notBefore time.Time) (bool, error) {
	query := `
		DELETE FROM auth_states
		WHERE state = $1 AND created_at >= $2
	`
	res, err := r.db.ExecContext(ctx, query, state, notBefore)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired removes states created before the cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM auth_states
		WHERE created_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
