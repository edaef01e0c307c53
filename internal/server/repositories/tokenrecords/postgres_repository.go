package tokenrecords

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/spotivault/internal/common"
	"github.com/dmitrijs2005/spotivault/internal/dbx"
	"github.com/dmitrijs2005/spotivault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the token record for subjectID, or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, subjectID string) (*models.TokenRecord, error) {
	query := `
		SELECT subject_id, access_token, refresh_token, token_type, scope, expires_at
		FROM token_records
		WHERE subject_id = $1
	`
	rec := &models.TokenRecord{}
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&rec.SubjectID, &rec.AccessToken, &rec.RefreshToken,
		&rec.TokenType, &rec.Scope, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// Upsert inserts or fully replaces the record in one atomic statement.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.TokenRecord) error {
	query := `
		INSERT INTO token_records (subject_id, access_token, refresh_token, token_type, scope, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.SubjectID, rec.AccessToken, rec.RefreshToken,
		rec.TokenType, rec.Scope, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
