// Package authstates provides the store for single-use anti-forgery states
// protecting the authorization redirect round-trip.
package authstates

import (
	"context"
	"time"
)

// Repository persists handshake states. States are single-use by
// construction: Consume atomically removes the row it matches, so no two
// callers can redeem the same state.
type Repository interface {
	// Create inserts a new state. Returns common.ErrorDuplicate when the
	// value collides with a live state.
	Create(ctx context.Context, state string) error

	// Consume atomically finds and deletes the state. It reports true only
	// if a matching row created at or after notBefore existed. Missing,
	// expired and already-consumed states are indistinguishable to callers.
	Consume(ctx context.Context, state string, notBefore time.Time) (bool, error)

	// DeleteExpired garbage-collects states created before the cutoff and
	// returns how many rows were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
