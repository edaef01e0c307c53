// Package tokenrecords provides the durable per-subject store of encrypted
// provider tokens and their expiry metadata.
package tokenrecords

import (
	"context"

	"github.com/dmitrijs2005/spotivault/internal/server/models"
)

// Repository persists one token record per subject. Only the custody service
// writes through it; token fields always carry cipher envelopes.
type Repository interface {
	// Get returns the record for the subject, or common.ErrorNotFound.
	Get(ctx context.Context, subjectID string) (*models.TokenRecord, error)

	// Upsert atomically inserts or replaces the whole record keyed by
	// subject id. Concurrent upserts cannot interleave partial field writes:
	// the winner replaces everything.
	Upsert(ctx context.Context, rec *models.TokenRecord) error
}
