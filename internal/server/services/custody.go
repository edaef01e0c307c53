// Package services contains the custody engine: handshake state issuance and
// consumption, the authorization-code exchange, and the refresh orchestration
// that keeps a usable access token available per subject.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/spotivault/internal/common"
	"github.com/dmitrijs2005/spotivault/internal/cryptox"
	"github.com/dmitrijs2005/spotivault/internal/dbx"
	"github.com/dmitrijs2005/spotivault/internal/logging"
	"github.com/dmitrijs2005/spotivault/internal/server/models"
	"github.com/dmitrijs2005/spotivault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/spotivault/internal/server/spotify"
)

const (
	// StateTTL bounds how long an issued handshake state may be consumed.
	StateTTL = 10 * time.Minute

	// RefreshBuffer is subtracted from the recorded expiry when deciding
	// whether the cached access token is still usable. It absorbs clock skew
	// and in-flight latency so a token does not expire mid-call.
	RefreshBuffer = 60 * time.Second

	stateCreateAttempts = 3
	stateBytes          = 16

	// A concurrent callback may not have committed its record yet when the
	// provider omits a refresh token; one short delayed re-read covers that.
	recordRetryDelay = 100 * time.Millisecond
)

// Exchanger is the provider-facing surface the orchestrator depends on.
type Exchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*spotify.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*spotify.Token, error)
	Profile(ctx context.Context, accessToken string) (*spotify.Profile, error)
}

// CustodyService owns the token lifecycle for every subject: it is the only
// component that reads or writes token record fields.
type CustodyService struct {
	db       dbx.DBTX
	repos    repomanager.RepositoryManager
	cipher   *cryptox.TokenCipher
	provider Exchanger
	logger   logging.Logger

	now        func() time.Time
	retryDelay time.Duration
}

// NewCustodyService constructs the custody engine over its collaborators.
func NewCustodyService(db *sql.DB, repos repomanager.RepositoryManager, cipher *cryptox.TokenCipher, provider Exchanger, logger logging.Logger) *CustodyService {
	return &CustodyService{
		db:         db,
		repos:      repos,
		cipher:     cipher,
		provider:   provider,
		logger:     logger.With("module", "custody"),
		now:        time.Now,
		retryDelay: recordRetryDelay,
	}
}

// StartLogin issues a fresh handshake state and returns the provider
// authorize URL carrying it. With no usable encryption key the handshake is
// refused up front: a flow that cannot end in an encrypted record must not
// be started at all.
func (s *CustodyService) StartLogin(ctx context.Context) (string, error) {
	if !s.cipher.Enabled() {
		return "", common.ErrCipherUnavailable
	}
	state, err := s.createState(ctx)
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// createState persists a unique random state, retrying a bounded number of
// times on value collisions before failing closed.
func (s *CustodyService) createState(ctx context.Context) (string, error) {
	repo := s.repos.AuthStates(s.db)
	for attempt := 0; attempt < stateCreateAttempts; attempt++ {
		state, err := common.MakeRandHexString(stateBytes)
		if err != nil {
			return "", fmt.Errorf("error generating state: %w", err)
		}
		err = repo.Create(ctx, state)
		if err == nil {
			return state, nil
		}
		if errors.Is(err, common.ErrorDuplicate) {
			continue
		}
		return "", fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return "", fmt.Errorf("%w: could not issue a unique state", common.ErrStoreUnavailable)
}

// consumeState redeems a handshake state exactly once. Missing, expired and
// already-consumed states all produce the same generic error so a caller
// probing the handshake learns nothing.
func (s *CustodyService) consumeState(ctx context.Context, state string) error {
	if state == "" {
		return common.ErrHandshake
	}
	ok, err := s.repos.AuthStates(s.db).Consume(ctx, state, s.now().Add(-StateTTL))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	if !ok {
		return common.ErrHandshake
	}
	return nil
}

// CleanupStates garbage-collects handshake states that outlived the TTL.
func (s *CustodyService) CleanupStates(ctx context.Context) error {
	n, err := s.repos.AuthStates(s.db).DeleteExpired(ctx, s.now().Add(-StateTTL))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	if n > 0 {
		s.logger.Debug(ctx, "removed expired auth states", "count", n)
	}
	return nil
}

// HandleCallback completes the authorization handshake: it consumes the
// state, trades the one-time code for tokens, resolves the subject via the
// profile endpoint, and persists the encrypted record. It returns the
// subject id the record was stored under. With no usable encryption key the
// callback is rejected before the state is consumed or any provider call is
// made, so the one-time authorization code is not burned.
func (s *CustodyService) HandleCallback(ctx context.Context, code, state, providerErr string) (string, error) {
	if !s.cipher.Enabled() {
		return "", common.ErrCipherUnavailable
	}
	if providerErr != "" {
		return "", fmt.Errorf("%w: provider reported %q", common.ErrCallbackInvalid, providerErr)
	}
	if code == "" {
		return "", fmt.Errorf("%w: missing authorization code", common.ErrCallbackInvalid)
	}
	if err := s.consumeState(ctx, state); err != nil {
		return "", err
	}

	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	profile, err := s.provider.Profile(ctx, tok.AccessToken)
	if err != nil {
		return "", err
	}

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		// Spotify omits refresh_token when access was previously granted
		// and not revoked; fall back to the stored one.
		refreshToken, err = s.storedRefreshToken(ctx, profile.ID)
		if err != nil {
			return "", err
		}
		s.logger.Warn(ctx, "provider omitted refresh token, retaining stored one", "subject_id", profile.ID)
	}

	if err := s.persistTokens(ctx, profile.ID, tok, refreshToken); err != nil {
		return "", err
	}
	return profile.ID, nil
}

// storedRefreshToken fetches and decrypts the previously stored refresh
// token for a subject, allowing one short delayed re-read in case a
// concurrent callback has not committed its record yet.
func (s *CustodyService) storedRefreshToken(ctx context.Context, subjectID string) (string, error) {
	repo := s.repos.TokenRecords(s.db)

	rec, err := repo.Get(ctx, subjectID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	if rec == nil || rec.RefreshToken == "" {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.retryDelay):
		}
		rec, err = repo.Get(ctx, subjectID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return "", common.ErrNoRefreshToken
			}
			return "", fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}
		if rec.RefreshToken == "" {
			return "", common.ErrNoRefreshToken
		}
	}

	plaintext, err := s.cipher.Decrypt(rec.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrCipherUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: stored refresh token is invalid", common.ErrNoRefreshToken)
	}
	return plaintext, nil
}

// ResolveAccessToken returns a usable plaintext access token for a subject.
// A cached token is returned without any network call while its expiry is
// more than RefreshBuffer away; otherwise a refresh exchange runs and the
// whole record is atomically replaced. A failed exchange never mutates the
// stored record and is never retried here.
func (s *CustodyService) ResolveAccessToken(ctx context.Context, subjectID string) (string, error) {
	repo := s.repos.TokenRecords(s.db)

	rec, err := repo.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrNotConnected
		}
		return "", fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	access, err := s.cipher.Decrypt(rec.AccessToken)
	if err != nil {
		if errors.Is(err, common.ErrCipherUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: stored access token cannot be decrypted", common.ErrReauthRequired)
	}

	if rec.ExpiresAt.After(s.now().Add(RefreshBuffer)) {
		return access, nil
	}

	refresh, err := s.cipher.Decrypt(rec.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrCipherUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: stored refresh token cannot be decrypted", common.ErrReauthRequired)
	}

	tok, err := s.provider.Refresh(ctx, refresh)
	if err != nil {
		return "", err
	}

	newRefresh := tok.RefreshToken
	if newRefresh == "" {
		// no rotation from the provider, keep the current refresh token
		newRefresh = refresh
	}

	if err := s.persistTokens(ctx, subjectID, tok, newRefresh); err != nil {
		return "", err
	}
	s.logger.Info(ctx, "access token refreshed", "subject_id", subjectID, "expires_at", tok.ExpiresAt)
	return tok.AccessToken, nil
}

// persistTokens encrypts both tokens and atomically replaces the subject's
// record. The refresh token argument is always non-empty here, so a durably
// set refresh token can never be overwritten with a missing value.
func (s *CustodyService) persistTokens(ctx context.Context, subjectID string, tok *spotify.Token, refreshToken string) error {
	encAccess, err := s.cipher.Encrypt(tok.AccessToken)
	if err != nil {
		return err
	}
	encRefresh, err := s.cipher.Encrypt(refreshToken)
	if err != nil {
		return err
	}

	rec := &models.TokenRecord{
		SubjectID:    subjectID,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		TokenType:    tok.TokenType,
		Scope:        tok.Scope,
		ExpiresAt:    tok.ExpiresAt,
	}
	if err := s.repos.TokenRecords(s.db).Upsert(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}
