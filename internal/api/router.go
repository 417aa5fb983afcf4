// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Danny-Lenko/story-pull-backend/internal/auth"
	"github.com/Danny-Lenko/story-pull-backend/internal/config"
	"github.com/Danny-Lenko/story-pull-backend/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	authenticator *auth.Middleware
	chiMiddleware *ChiMiddleware
	trustProxies  bool
}

// NewRouter builds a router from the security section of the config.
func NewRouter(handler *Handler, authenticator *auth.Middleware, cfg *config.SecurityConfig) *Router {
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.CORSOrigins
	if cfg.RateLimitReqs > 0 {
		mwCfg.RateLimitRequests = cfg.RateLimitReqs
	}
	if cfg.RateLimitWindow > 0 {
		mwCfg.RateLimitWindow = cfg.RateLimitWindow
	}
	mwCfg.RateLimitDisabled = cfg.RateLimitDisabled

	return &Router{
		handler:       handler,
		authenticator: authenticator,
		chiMiddleware: NewChiMiddleware(mwCfg),
		trustProxies:  !cfg.TrustedProxiesDisabled,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	if router.trustProxies {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, ErrMethodNotAllowed)
	})

	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// Authentication Endpoints
	// ========================
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
		r.With(router.chiMiddleware.RateLimitAuth()).Post("/register", router.handler.Register)
		r.With(router.chiMiddleware.RateLimitAuth()).Post("/logout", router.handler.Logout)
		r.With(router.chiMiddleware.RateLimitAuth()).Post("/validate", router.handler.ValidateToken)
	})

	// ========================
	// Content Endpoints
	// ========================
	r.Route("/api/v1/content", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authenticator.Authenticate)

		r.With(chimiddleware.Compress(5, "application/json")).Get("/", router.handler.ContentList)
		r.Post("/", router.handler.ContentCreate)
		r.Get("/{id}", router.handler.ContentGet)
		r.Patch("/{id}", router.handler.ContentUpdate)
	})

	return r
}
