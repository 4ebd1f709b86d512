// Package server wires the application together: it owns the MongoDB
// connection, assembles the rpc method table from the handlers and runs the
// HTTP server with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/handler"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/middleware"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/repository"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/repository/mongodb"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/rpc"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/service"
)

// DefaultBodyLimit bounds rpc request bodies; image uploads travel base64
// inside the envelope, so the cap sits well above typical picture sizes.
const DefaultBodyLimit = 16 << 20 // 16MiB

// Config holds the server configuration.
type Config struct {
	Port          int
	Hostname      string
	MongoURI      string
	Database      string
	AvatarsBucket string
	DynamicPosts  bool
	BodyLimit     int64
}

// Server owns the HTTP router and the database connection; the connection is
// closed during shutdown after in-flight requests drain.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *mongodb.DB
}

// New connects to MongoDB, ensures the indexes and assembles the routes.
// An unreachable database or a failing index build is fatal here, before the
// server ever listens.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := mongodb.New(ctx, mongodb.Config{
		URI:           cfg.MongoURI,
		Database:      cfg.Database,
		AvatarsBucket: cfg.AvatarsBucket,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to store: %w", err)
	}

	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("ensuring indexes: %w", err)
	}

	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS)

	storeService := service.NewStoreService(s.db, s.config.DynamicPosts, repository.RealClock{}, s.logger)
	imageService := service.NewImageService(s.db, s.logger)
	adminService := service.NewAdminService(s.db, s.logger)

	routes := rpc.Routes{}
	for _, table := range []rpc.Routes{
		handler.NewStoreHandler(storeService).Routes(),
		handler.NewImageHandler(imageService).Routes(),
		handler.NewAdminHandler(adminService).Routes(),
	} {
		for method, h := range table {
			routes[method] = h
		}
	}
	router := rpc.NewRouter(routes, s.logger)

	s.router.Post("/", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.BodyLimit)
		router.ServeHTTP(w, r)
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Start runs the HTTP server until a shutdown signal arrives, then drains
// in-flight requests and closes the store connection.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Hostname, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.Database),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = s.closeStore()
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			_ = s.closeStore()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return s.closeStore()
}

func (s *Server) closeStore() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.db.Close(ctx)
}
