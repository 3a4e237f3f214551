// Package httpapi exposes the engine and its admin surfaces over HTTP.
// Transport only: every decision is made by the service layer.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cardea-access/cardea/internal/cardea/service"
	"github.com/cardea-access/cardea/internal/cardea/store"
)

type Dependencies struct {
	Logger           *slog.Logger
	Addr             string
	Engine           *service.Engine
	RuleAdmin        *service.RuleAdmin
	HeartbeatService *service.HeartbeatService
	AccessLog        store.AccessLogStore
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	engine     *service.Engine
	ruleAdmin  *service.RuleAdmin
	heartbeats *service.HeartbeatService
	accessLog  store.AccessLogStore
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:     d.Logger,
		engine:     d.Engine,
		ruleAdmin:  d.RuleAdmin,
		heartbeats: d.HeartbeatService,
		accessLog:  d.AccessLog,
	}

	r := chi.NewRouter()
	r.Use(requestLogger(d.Logger))

	r.Route("/v1", func(r chi.Router) {
		// Controllers authenticate out of band and carry the tenant in the
		// message body.
		r.Post("/heartbeat", s.handleHeartbeat)

		// Tenant-scoped surface.
		r.Group(func(r chi.Router) {
			r.Use(requireTenant)

			r.Post("/access/evaluate", s.handleEvaluate)

			r.Route("/doors/{doorID}", func(r chi.Router) {
				r.Get("/access-log", s.handleListAccessLog)
				r.Get("/rules", s.handleListRules)
				r.Put("/rules/{ruleID}", s.handlePutRule)
				r.Delete("/rules/{ruleID}", s.handleDeleteRule)
			})
		})
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
