package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/spotivault/internal/common"
	"github.com/dmitrijs2005/spotivault/internal/server/auth"
)

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the common error taxonomy onto status codes. Internal
// detail never leaks to the client; the sentinel message plus an actionable
// hint is all a caller gets.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var hint string

	switch {
	case errors.Is(err, common.ErrNotConnected):
		status, hint = http.StatusUnauthorized, "no provider connection for this account, restart authorization"
	case errors.Is(err, common.ErrReauthRequired):
		status, hint = http.StatusUnauthorized, "stored credentials are unusable, restart authorization"
	case errors.Is(err, common.ErrInvalidSession):
		status, hint = http.StatusUnauthorized, "session token is missing or invalid"
	case errors.Is(err, common.ErrHandshake), errors.Is(err, common.ErrCallbackInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidClient):
		status, hint = http.StatusUnauthorized, "provider rejected the client credentials, check server configuration"
	case errors.Is(err, common.ErrExchangeFailed), errors.Is(err, common.ErrNoRefreshToken):
		status = http.StatusBadGateway
	case errors.Is(err, common.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	logger := s.requestLogger(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		logger.Warn(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	s.writeJSON(w, status, errorResponse{Error: msg, Hint: hint})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin starts the authorization handshake and redirects the browser
// to the provider.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, err := s.custody.StartLogin(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback completes the handshake, mints a session token for the
// established subject and sends the browser back to the frontend. Without a
// configured frontend URL the token is returned as JSON instead.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	subjectID, err := s.custody.HandleCallback(r.Context(), q.Get("code"), q.Get("state"), q.Get("error"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := auth.GenerateSessionToken(subjectID, s.opts.SessionSecret, s.opts.SessionTTL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.opts.FrontendURL != "" {
		target := s.opts.FrontendURL + "?session=" + url.QueryEscape(session)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"session": session})
}

// handleProfile resolves an access token for the session's subject and
// forwards the provider profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	subjectID := subjectFromContext(r.Context())

	accessToken, err := s.custody.ResolveAccessToken(r.Context(), subjectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.profiles.Profile(r.Context(), accessToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}
