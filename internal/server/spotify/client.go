// Package spotify implements the provider-facing exchanges of the custody
// service: building the authorize URL, trading an authorization code for
// tokens, refreshing an access token, and fetching the profile that
// identifies the authorizing subject.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/spotivault/internal/common"
)

const (
	defaultAuthURL    = "https://accounts.spotify.com/authorize"
	defaultTokenURL   = "https://accounts.spotify.com/api/token"
	defaultProfileURL = "https://api.spotify.com/v1/me"

	requestTimeout = 15 * time.Second
)

// Token is a validated exchange result. RefreshToken is empty when the
// provider omitted it, which the caller has to resolve against stored state.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
}

// Profile identifies the authorizing subject.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Config carries the OAuth client settings. The URL fields default to the
// public Spotify endpoints and exist so tests can point at a fake provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// Client performs the provider round-trips. All methods convert transport
// and protocol failures into the common error taxonomy.
type Client struct {
	conf       *oauth2.Config
	profileURL string
	httpClient *http.Client
}

// NewClient constructs a provider client from cfg.
func NewClient(cfg Config) *Client {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	profileURL := cfg.ProfileURL
	if profileURL == "" {
		profileURL = defaultProfileURL
	}

	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		profileURL: profileURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// AuthCodeURL builds the provider authorize URL carrying the handshake state.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades a one-time authorization code for an initial token pair.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	tok, err := c.conf.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, mapRetrieveError(err)
	}
	return c.validateToken(tok)
}

// Refresh trades a refresh token for a new access token. The returned
// Token's RefreshToken is empty when the provider did not rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	src := c.conf.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, mapRetrieveError(err)
	}
	t, err := c.validateToken(tok)
	if err != nil {
		return nil, err
	}
	// x/oauth2 echoes the input refresh token back when the provider omits
	// one; report that case as empty so the caller decides what to retain.
	if t.RefreshToken == refreshToken {
		t.RefreshToken = ""
	}
	return t, nil
}

// Profile fetches the authorizing subject's profile with a bearer token.
func (c *Client) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	client := oauth2.NewClient(c.withHTTPClient(ctx), src)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error building profile request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile endpoint returned status %d", common.ErrExchangeFailed, resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: malformed profile response", common.ErrExchangeFailed)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: profile response missing id", common.ErrExchangeFailed)
	}
	return &p, nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// validateToken enforces the strict response schema: access token and a
// positive expiry are required, everything else is optional.
func (c *Client) validateToken(tok *oauth2.Token) (*Token, error) {
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access_token", common.ErrExchangeFailed)
	}
	if tok.Expiry.IsZero() {
		return nil, fmt.Errorf("%w: response missing token expiry", common.ErrExchangeFailed)
	}
	if !tok.Expiry.After(time.Now()) {
		return nil, fmt.Errorf("%w: token expiry must be in the future", common.ErrExchangeFailed)
	}
	scope, _ := tok.Extra("scope").(string)
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		Scope:        scope,
		ExpiresAt:    tok.Expiry,
	}, nil
}

// mapRetrieveError folds oauth2 errors into the common taxonomy, keeping the
// explicit invalid-client case distinguishable.
func mapRetrieveError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.ErrorCode == "invalid_client" {
			return fmt.Errorf("%w: provider reported invalid_client", common.ErrInvalidClient)
		}
		status := 0
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return fmt.Errorf("%w: provider returned status %d (%s)", common.ErrExchangeFailed, status, rErr.ErrorCode)
	}
	return fmt.Errorf("%w: %v", common.ErrExchangeFailed, err)
}
