package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/usermgmt/apiserver/config"
	"github.com/usermgmt/apiserver/internal/auth"
	"github.com/usermgmt/apiserver/internal/db"
	"github.com/usermgmt/apiserver/internal/events"
	"github.com/usermgmt/apiserver/internal/handlers"
	"github.com/usermgmt/apiserver/internal/mq"
	"github.com/usermgmt/apiserver/internal/services"
	"github.com/usermgmt/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
}

// New constructs a Server with its full dependency graph wired up.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	hasher := auth.NewPasswordHasher()
	codec := auth.NewTokenCodec([]byte(cfg.JWT.Secret), cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	publisher := events.NewPublisher(broker, slog.Default())

	authService := services.NewAuthService(userRepo, hasher, codec, publisher)
	userService := services.NewUserService(userRepo, hasher, publisher)

	authMiddleware := handlers.RequireAuth(authService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, userService)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mq != nil {
		_ = s.mq.Close()
	}
	return s.httpServer.Close()
}
