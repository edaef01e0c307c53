// Package httpapi is the HTTP boundary of the custody server. Handlers stay
// thin: they translate requests into custody operations and map the common
// error taxonomy onto status codes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/spotivault/internal/logging"
	"github.com/dmitrijs2005/spotivault/internal/server/spotify"
)

const shutdownTimeout = 5 * time.Second

// Custody is the service surface the HTTP layer depends on.
type Custody interface {
	StartLogin(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, code, state, providerErr string) (string, error)
	ResolveAccessToken(ctx context.Context, subjectID string) (string, error)
}

// ProfileFetcher fetches the provider profile with a bearer token.
type ProfileFetcher interface {
	Profile(ctx context.Context, accessToken string) (*spotify.Profile, error)
}

// Options carries the boundary settings the handlers need.
type Options struct {
	Addr          string
	FrontendURL   string
	SessionSecret []byte
	SessionTTL    time.Duration
}

// Server serves the custody HTTP API.
type Server struct {
	custody  Custody
	profiles ProfileFetcher
	logger   logging.Logger
	opts     Options
}

// NewServer constructs the HTTP boundary over the custody service.
func NewServer(custody Custody, profiles ProfileFetcher, logger logging.Logger, opts Options) *Server {
	return &Server{
		custody:  custody,
		profiles: profiles,
		logger:   logger.With("module", "httpapi"),
		opts:     opts,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/auth/spotify/login", s.handleLogin).Methods(http.MethodGet)
	r.HandleFunc("/auth/spotify/callback", s.handleCallback).Methods(http.MethodGet)

	api := r.PathPrefix("/api/").Subrouter()
	api.Use(s.requireSession)
	api.HandleFunc("/spotify/profile", s.handleProfile).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting http server", "address", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
