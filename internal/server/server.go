package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/taskhub/apiserver/config"
	"github.com/taskhub/apiserver/internal/db"
	"github.com/taskhub/apiserver/internal/events"
	"github.com/taskhub/apiserver/internal/handlers"
	"github.com/taskhub/apiserver/internal/services"
	"github.com/taskhub/apiserver/internal/storage"
	"github.com/taskhub/apiserver/internal/store"
)

// Server wraps the HTTP server, router and backing connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  *events.Publisher
}

// New constructs a Server with all routes and middleware wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	taskRepo := store.NewTaskRepository(dbConn)

	eventsBackend, err := events.NewBackend(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	publisher := events.NewPublisher(eventsBackend, logger)

	var avatars *storage.Avatars
	storageBackend, err := storage.NewBackend(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		_ = publisher.Close()
		return nil, err
	}
	if storageBackend != nil {
		if err := storageBackend.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			_ = publisher.Close()
			return nil, err
		}
		avatars = storage.NewAvatars(storageBackend)
	}

	userService := services.NewUserService(userRepo)
	taskService := services.NewTaskService(taskRepo, publisher)

	authHandler := handlers.NewAuthHandler(userService, cfg.JWT, logger)
	userHandler := handlers.NewUserHandler(userService, avatars, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"API endpoint not found"}`))
	})

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Healthz)
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler)
		})
		r.Route("/tasks", func(r chi.Router) {
			handlers.TaskRouter(r, taskService, authHandler.RequireAuth)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userHandler, authHandler.RequireAuth)
		})
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
		publisher:  publisher,
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
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
