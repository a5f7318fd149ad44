package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/auth"
	"engagement-engine/internal/metrics"

	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(started)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		s.logger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				s.logger.Error("panic recovered",
					zap.Any("panic", p),
					zap.Stack("stack"),
					zap.String("path", r.URL.Path),
				)
				s.writeError(w, r, apperrors.Internal("panic", nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authed verifies the bearer token, makes sure the caller has a users row,
// applies the per-user rate limit and puts the actor on the context.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := r.Context()
		if err := s.store.EnsureUser(ctx, claims.User(s.now().UTC())); err != nil {
			s.writeError(w, r, apperrors.Internal("ensure user", err))
			return
		}

		actor := claims.Actor()
		if !s.allow(r, actor.UserID) {
			s.writeError(w, r, apperrors.RateLimited("too many requests, slow down"))
			return
		}

		next(w, r.WithContext(auth.WithActor(ctx, actor)))
	})
}

// allow fails open when redis is unreachable.
func (s *Server) allow(r *http.Request, userID string) bool {
	if s.cache == nil || s.opts.RateLimitPerMinute <= 0 {
		return true
	}

	count, err := s.cache.IncrementUserRateLimit(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to check rate limit", zap.String("user_id", userID), zap.Error(err))
		return true
	}
	if count > int64(s.opts.RateLimitPerMinute) {
		s.logger.Warn("rate limit exceeded", zap.String("user_id", userID), zap.Int64("count", count))
		return false
	}
	return true
}
