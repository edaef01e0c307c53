// Package common defines shared sentinel errors and small helpers used across
// the custody service. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrorDuplicate = errors.New("duplicate key")

	// Crypto errors. ErrCipherUnavailable means no valid encryption key could
	// be derived at startup; every cipher operation fails closed with it for
	// the process lifetime. ErrReauthRequired means a stored credential could
	// not be decrypted and the subject has to authorize again.
	ErrCipherUnavailable = errors.New("token cipher unavailable")
	ErrReauthRequired    = errors.New("stored credential invalid, re-authentication required")

	// Custody flow errors.
	ErrNotConnected    = errors.New("subject is not connected")
	ErrHandshake       = errors.New("invalid or expired authorization state")
	ErrCallbackInvalid = errors.New("invalid authorization callback")
	ErrNoRefreshToken  = errors.New("no refresh token available, revoke access and reconnect")

	// Provider exchange errors.
	ErrInvalidClient  = errors.New("invalid client credentials")
	ErrExchangeFailed = errors.New("provider token exchange failed")

	// Infrastructure errors.
	ErrStoreUnavailable = errors.New("persistent store unavailable")
	ErrConfigInvalid    = errors.New("invalid configuration")

	// Session errors (httpapi boundary).
	ErrInvalidSession = errors.New("invalid session token")
)
