// Package models defines the persisted entities owned by the custody server.
package models

import "time"

// AuthState is a single-use anti-forgery token issued when an authorization
// redirect starts and consumed exactly once by the provider callback. States
// older than the handshake TTL are treated as nonexistent.
type AuthState struct {
	State     string
	CreatedAt time.Time
}
