// Package api exposes the HTTP interface for the shop directory service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoplocal/shopfinder/internal/config"
	"github.com/shoplocal/shopfinder/internal/metrics"
	"github.com/shoplocal/shopfinder/internal/shop"
)

// ShopStore is the persistence surface the handlers depend on.
type ShopStore interface {
	ShopsInRange(ctx context.Context, center shop.Point, radiusMeters int) ([]shop.Shop, error)
	SearchShopsInRange(ctx context.Context, query string, center shop.Point, radiusMeters int) ([]shop.Shop, error)
	InsertShop(ctx context.Context, candidate shop.NewShop) (shop.Shop, error)
	UpdateShop(ctx context.Context, candidate shop.NewShop) (shop.Shop, error)
}

// ShopValidator gates create/update submissions before store access.
type ShopValidator interface {
	ValidateShop(ctx context.Context, candidate shop.NewShop) error
}

// Server wires HTTP handlers to the validator and shop store.
type Server struct {
	router    chi.Router
	store     ShopStore
	validator ShopValidator
	logger    *zap.Logger
	cfg       config.Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store ShopStore, validator ShopValidator, logger *zap.Logger, cfg config.Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:     store,
		validator: validator,
		logger:    logger,
		cfg:       cfg,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(s.recoverMiddleware)
	r.Use(corsMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/api/healthy", s.healthy)
	r.Route("/api/shop", func(r chi.Router) {
		r.Get("/", s.getShops)
		r.Post("/", s.insertShop)
		r.Put("/", s.updateShop)
	})
	r.Handle("/metrics", metrics.Handler())

	if cfg.Server.StaticDir != "" {
		fs := http.FileServer(http.Dir(cfg.Server.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fs))
	}

	// Unmatched GET routes fall back to the front-end bundle's index so
	// client-side routing keeps working; anything else is a 405.
	r.NotFound(s.spaFallback)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) spaFallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.Server.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	s.logger.Debug("serving spa index", zap.String("path", r.URL.Path))
	http.ServeFile(w, r, filepath.Join(s.cfg.Server.StaticDir, "index.html"))
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Msg: msg})
}
