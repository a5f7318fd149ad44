// Package api exposes the engagement lifecycle over HTTP and the realtime
// websocket.
package api

import (
	"context"
	"net/http"
	"time"

	"engagement-engine/internal/auth"
	"engagement-engine/internal/engagement"
	"engagement-engine/internal/moderation"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/storage"
	"engagement-engine/internal/storage/redis"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	maxBodyBytes      = 1 << 20
	maxMultipartBytes = 8 << 20
)

type Options struct {
	// RateLimitPerMinute caps authenticated requests per user. Zero disables it.
	RateLimitPerMinute int
}

type Server struct {
	engagement *engagement.Service
	moderation *moderation.Gate
	inbox      *notify.Dispatcher
	store      storage.Store
	verifier   *auth.Verifier
	cache      *redis.Client
	hub        *realtime.Hub
	opts       Options
	logger     *zap.Logger

	mux     *http.ServeMux
	handler http.Handler
	now     func() time.Time
}

// New wires the routes. cache and hub may be nil; rate limiting and the
// websocket endpoint are then disabled.
func New(
	svc *engagement.Service,
	gate *moderation.Gate,
	inbox *notify.Dispatcher,
	store storage.Store,
	verifier *auth.Verifier,
	cache *redis.Client,
	hub *realtime.Hub,
	opts Options,
	logger *zap.Logger,
) *Server {
	s := &Server{
		engagement: svc,
		moderation: gate,
		inbox:      inbox,
		store:      store,
		verifier:   verifier,
		cache:      cache,
		hub:        hub,
		opts:       opts,
		logger:     logger,
		mux:        http.NewServeMux(),
		now:        time.Now,
	}
	s.routes()
	s.handler = s.recovery(s.logging(s.mux))
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	if s.hub != nil {
		s.mux.Handle("GET /ws", s.hub.Handler(s.authenticateSocket))
	}

	s.mux.Handle("POST /jobs", s.authed(s.handleCreateJob))
	s.mux.Handle("GET /jobs/{id}", s.authed(s.handleGetJob))
	s.mux.Handle("DELETE /jobs/{id}", s.authed(s.handleDeleteJob))
	s.mux.Handle("PATCH /jobs/{id}/status", s.authed(s.handleJobStatus))
	s.mux.Handle("POST /jobs/{id}/apply", s.authed(s.handleApply))
	s.mux.Handle("POST /jobs/{id}/recommend", s.authed(s.handleRecommend))
	s.mux.Handle("POST /jobs/{id}/clone", s.authed(s.handleCloneJob))
	s.mux.Handle("POST /jobs/{id}/unfreeze", s.authed(s.handleUnfreeze))

	s.mux.Handle("PUT /applications/{id}/status", s.authed(s.handleApplicationStatus))
	s.mux.Handle("POST /applications/{id}/withdraw", s.authed(s.handleWithdraw))

	s.mux.Handle("POST /reports", s.authed(s.handleReport))

	s.mux.Handle("GET /activities/recent", s.authed(s.handleRecentActivities))
	s.mux.Handle("POST /activities/{id}/read", s.authed(s.handleReadActivity))
	s.mux.Handle("DELETE /activities/{id}", s.authed(s.handleDeleteActivity))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) authenticateSocket(_ context.Context, token string) (string, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"store": "ok"}
	code := http.StatusOK

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store health check failed", zap.Error(err))
		status["store"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if s.cache != nil {
		status["redis"] = "ok"
		if err := s.cache.Ping(ctx); err != nil {
			s.logger.Warn("redis health check failed", zap.Error(err))
			status["redis"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, status)
}
