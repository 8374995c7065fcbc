package api

import (
	"context"
	"net/http"
	"time"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/auth"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging logs one line per request with the matched route pattern.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := logger.Ctx(r.Context()).Info()
		if rec.status >= http.StatusInternalServerError {
			event = logger.Ctx(r.Context()).Warn()
		}
		event.
			Str("method", r.Method).
			Str("route", r.Pattern).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}

// withTimeout bounds the request context.
func withTimeout(d time.Duration, next http.Handler) http.Handler {
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principalHandler is a handler for an authenticated route.
type principalHandler func(w http.ResponseWriter, r *http.Request, p *authz.Principal)

// authed resolves the bearer token into a principal before calling h.
func (s *Server) authed(h principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, r, apperr.Unauthenticated("missing bearer token"))
			return
		}
		p, err := s.auth.Principal(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		h(w, r.WithContext(authz.WithPrincipal(r.Context(), p)), p)
	}
}
