// internal/api/middleware.go
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/metrics"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user id set by requireSession.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
		if s.obs != nil {
			s.obs.RecordRequest(r.Context(), route, status)
			s.obs.RecordRequestDuration(r.Context(), time.Since(start), route)
		}
	})
}

// requireSession resolves the bearer token to a user and stores the user id
// on the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		sess, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			stderrors.WriteHTTP(w, err, s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCronSecret guards the batch trigger with a shared secret.
func (s *Server) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if s.cronSecret == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) != 1 {
			stderrors.WriteHTTP(w, stderrors.NewUnauthorizedError("invalid cron secret"), s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
