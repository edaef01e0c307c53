package models

import "time"

// TokenRecord holds the Spotify credentials for one subject. AccessToken and
// RefreshToken are cipher envelopes, never plaintext. There is exactly one
// record per subject; creation and update share the upsert path.
type TokenRecord struct {
	SubjectID    string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
