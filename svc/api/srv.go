package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"

	"gitpaste/cfg"
	"gitpaste/svc/lim"
	"gitpaste/svc/util"
)

type Server struct {
	router     *chi.Mux
	cfg        *cfg.Cfg
	httpServer *http.Server
}

func NewServer(c *cfg.Cfg, hdl *Hdl, limiter *lim.Limiter) *Server {
	r := chi.NewRouter()
	mw := NewMw(limiter, c)

	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Get("/healthz", hdl.Health)
		r.Get("/readyz", hdl.Ready)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Handle("/metrics", mw.BasicAuthMetrics(promhttp.Handler()))
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Use(mw.RequestID)
		r.Use(hlog.NewHandler(util.GetLogger()))
		r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, dur time.Duration) {
			hlog.FromRequest(req).Info().
				Str("method", req.Method).
				Str("url", req.URL.String()).
				Int("status", status).
				Int("size", size).
				Dur("duration", dur).
				Str("request_id", util.GetRequestID(req.Context())).
				Msg("http request")
		}))
		r.Use(mw.ContextTimeout)
		r.Use(mw.SecurityHeaders)
		r.Use(mw.CORS)

		r.Get("/", hdl.Dashboard)
		r.Get("/dashboard", hdl.Dashboard)
		r.Get("/api", hdl.APIIndex)
		r.With(mw.RateLimit("create")).Post("/api/v1/paste", hdl.CreatePaste)
		r.With(mw.RateLimit("read")).Get("/api/v1/p/{id}", hdl.GetMeta)
		r.With(mw.RateLimit("read")).Get("/api/v1/p/{id}/raw", hdl.GetRaw)
		r.With(mw.RateLimit("read")).Get("/api/v1/recent", hdl.Recent)
		r.With(mw.RateLimit("read")).Get("/p/{id}", hdl.RenderView)
	})

	return &Server{
		router: r,
		cfg:    c,
		httpServer: &http.Server{
			Addr:           ":" + c.Port,
			Handler:        r,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 256 * 1024,
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	util.Info().Str("port", s.cfg.Port).Msg("starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		util.Error().Err(err).Str("port", s.cfg.Port).Msg("server failed to start")
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
