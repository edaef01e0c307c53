package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/spotivault/internal/common"
	"github.com/dmitrijs2005/spotivault/internal/logging"
	"github.com/dmitrijs2005/spotivault/internal/server/auth"
)

type contextKey string

const (
	subjectKey contextKey = "subject_id"
	loggerKey  contextKey = "logger"
)

func subjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}

// requestLogger returns the request-scoped logger carrying the request id,
// falling back to the server logger outside the middleware chain.
func (s *Server) requestLogger(ctx context.Context) logging.Logger {
	if l, ok := ctx.Value(loggerKey).(logging.Logger); ok {
		return l
	}
	return s.logger
}

// requestIDMiddleware tags every request with a uuid, attaches a logger
// carrying it to the request context, and logs the outcome. All handler-level
// log lines for one request share the same request_id.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		logger := s.logger.With("request_id", requestID)
		ctx := context.WithValue(r.Context(), loggerKey, logger)
		r = r.WithContext(ctx)

		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug(ctx, "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// requireSession verifies the bearer session token and stores the subject id
// in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, r, common.ErrInvalidSession)
			return
		}

		subjectID, err := auth.SubjectFromToken(token, s.opts.SessionSecret)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, subjectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
