package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/spotivault/internal/common"
)

// fakeTokenEndpoint returns a token endpoint handler that records the last
// form it received and replies with the given payload and status.
func fakeTokenEndpoint(t *testing.T, status int, payload map[string]any, lastForm *url.Values) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if lastForm != nil {
			*lastForm = r.PostForm
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}
}

func newTestClient(tokenURL, profileURL string) *Client {
	return NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3000/auth/spotify/callback",
		Scopes:       []string{"user-read-email", "user-read-private"},
		AuthURL:      "http://provider.test/authorize",
		TokenURL:     tokenURL,
		ProfileURL:   profileURL,
	})
}

func TestAuthCodeURL(t *testing.T) {
	c := newTestClient("http://provider.test/token", "")

	rawURL := c.AuthCodeURL("abc123")
	u, err := url.Parse(rawURL)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "abc123", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "user-read-email")
	assert.Equal(t, "http://localhost:3000/auth/spotify/callback", q.Get("redirect_uri"))
}

func TestExchange_Success(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(fakeTokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token":  "AT1",
		"refresh_token": "RT1",
		"token_type":    "Bearer",
		"scope":         "user-read-email",
		"expires_in":    3600,
	}, &form))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	tok, err := c.Exchange(context.Background(), "authcode")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "authcode", form.Get("code"))

	assert.Equal(t, "AT1", tok.AccessToken)
	assert.Equal(t, "RT1", tok.RefreshToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, "user-read-email", tok.Scope)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 10*time.Second)
}

func TestExchange_InvalidClient(t *testing.T) {
	srv := httptest.NewServer(fakeTokenEndpoint(t, http.StatusUnauthorized, map[string]any{
		"error": "invalid_client",
	}, nil))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	_, err := c.Exchange(context.Background(), "authcode")
	assert.True(t, errors.Is(err, common.ErrInvalidClient), "got %v", err)
}

func TestExchange_ProviderError(t *testing.T) {
	srv := httptest.NewServer(fakeTokenEndpoint(t, http.StatusBadGateway, map[string]any{
		"error": "server_error",
	}, nil))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	_, err := c.Exchange(context.Background(), "authcode")
	assert.True(t, errors.Is(err, common.ErrExchangeFailed), "got %v", err)
}

func TestExchange_MissingExpiry(t *testing.T) {
	srv := httptest.NewServer(fakeTokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token":  "AT1",
		"refresh_token": "RT1",
		"token_type":    "Bearer",
	}, nil))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	_, err := c.Exchange(context.Background(), "authcode")
	assert.True(t, errors.Is(err, common.ErrExchangeFailed), "got %v", err)
}

func TestExchange_TransportError(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1/token", "")
	_, err := c.Exchange(context.Background(), "authcode")
	assert.True(t, errors.Is(err, common.ErrExchangeFailed), "got %v", err)
}

func TestRefresh_Success(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(fakeTokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token":  "AT2",
		"refresh_token": "RT2",
		"token_type":    "Bearer",
		"expires_in":    3600,
	}, &form))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	tok, err := c.Refresh(context.Background(), "RT1")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "RT1", form.Get("refresh_token"))
	assert.Equal(t, "AT2", tok.AccessToken)
	assert.Equal(t, "RT2", tok.RefreshToken)
}

func TestRefresh_OmittedRefreshToken(t *testing.T) {
	srv := httptest.NewServer(fakeTokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token": "AT2",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}, nil))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	tok, err := c.Refresh(context.Background(), "RT1")
	require.NoError(t, err)

	// an omitted rotation must surface as empty, not as the input echoed back
	assert.Empty(t, tok.RefreshToken)
	assert.Equal(t, "AT2", tok.AccessToken)
}

func TestRefresh_ProviderError(t *testing.T) {
	srv := httptest.NewServer(fakeTokenEndpoint(t, http.StatusBadRequest, map[string]any{
		"error": "invalid_grant",
	}, nil))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	_, err := c.Refresh(context.Background(), "RT1")
	assert.True(t, errors.Is(err, common.ErrExchangeFailed), "got %v", err)
}

func TestProfile_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer AT1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "user-1",
			"display_name": "Listener",
			"email":        "listener@example.com",
		})
	}))
	defer srv.Close()

	c := newTestClient("http://provider.test/token", srv.URL)
	p, err := c.Profile(context.Background(), "AT1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.ID)
	assert.Equal(t, "Listener", p.DisplayName)
}

func TestProfile_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"display_name": "Listener"})
	}))
	defer srv.Close()

	c := newTestClient("http://provider.test/token", srv.URL)
	_, err := c.Profile(context.Background(), "AT1")
	assert.True(t, errors.Is(err, common.ErrExchangeFailed), "got %v", err)
}

func TestProfile_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient("http://provider.test/token", srv.URL)
	_, err := c.Profile(context.Background(), "AT1")
	assert.True(t, errors.Is(err, common.ErrExchangeFailed), "got %v", err)
}
