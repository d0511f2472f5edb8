package internal

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"vendorbook-api/internal/config"
	"vendorbook-api/internal/handlers"
	"vendorbook-api/web"
)

// Server holds the HTTP router and the dependencies its handlers share.
type Server struct {
	Store   VendorStore
	Router  *chi.Mux
	Metrics *Metrics
	Logger  *slog.Logger
	Imports *handlers.ImportsHandler

	validate *validator.Validate
}

// NewServer wires the router around an already opened store. imports may be
// nil, in which case the spreadsheet import endpoint is not mounted.
func NewServer(store VendorStore, cfg *config.Config, logger *slog.Logger, imports *handlers.ImportsHandler) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Store:    store,
		Router:   chi.NewRouter(),
		Metrics:  NewMetrics(),
		Logger:   logger,
		Imports:  imports,
		validate: newValidator(),
	}

	timeout := 30 * time.Second
	if cfg != nil && cfg.RequestTimeout > 0 {
		timeout = cfg.RequestTimeout
	}

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	if cfg != nil && len(cfg.CORSAllowedOrigins) > 0 {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	s.Router.Use(RequestLogger(logger))
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(middleware.Timeout(timeout))
	s.Router.Use(SecureHeaders(logger))

	if cfg != nil && cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)

	s.Router.Route("/api/vendors", func(r chi.Router) {
		if cfg != nil && cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
				}),
			))
		}
		s.mountVendorRoutes(r)
	})

	s.mountStatic(s.Router, cfg)

	return s
}

func (s *Server) mountVendorRoutes(r chi.Router) {
	r.Get("/", s.listVendors)
	r.Post("/", s.createVendor)

	if s.Imports != nil {
		r.Get("/export", s.Imports.ExportExcel)
		r.Post("/import", s.Imports.UploadExcel)
	}

	r.Get("/{id}", s.getVendor)
	r.Put("/{id}", s.updateVendor)
	r.Delete("/{id}", s.deleteVendor)
}

// mountStatic serves the browser client from STATIC_DIR or the embedded copy.
func (s *Server) mountStatic(r chi.Router, cfg *config.Config) {
	var assets fs.FS
	if cfg != nil && cfg.StaticDir != "" {
		assets = os.DirFS(cfg.StaticDir)
	} else {
		sub, err := fs.Sub(web.Static, "static")
		if err != nil {
			s.Logger.Error("static assets unavailable", slog.Any("error", err))
			return
		}
		assets = sub
	}
	fileServer := http.FileServer(http.FS(assets))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api/") {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
			return
		}
		fileServer.ServeHTTP(w, req)
	})
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		s.Logger.Warn("database ping failed", slog.Any("error", err))
		http.Error(w, "db: unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, err := w.Write([]byte("db: ok")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// newValidator returns the validator used for request bodies.
func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
