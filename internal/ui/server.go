// Package ui provides the web-based canvas editor for flowcanvas.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/layout"
	"github.com/leapstack-labs/flowcanvas/internal/runner"
	"github.com/leapstack-labs/flowcanvas/internal/state"
	"github.com/leapstack-labs/flowcanvas/internal/ui/notifier"
	"github.com/leapstack-labs/flowcanvas/internal/ui/router"
)

// Server is the canvas UI server.
type Server struct {
	projectID    int
	projectName  string
	store        *canvas.Store
	runner       *runner.Runner
	layout       *layout.Service
	client       *api.Client
	state        *state.SQLiteStore
	sessionStore *sessions.CookieStore
	port         int
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	ProjectID     int
	ProjectName   string
	Store         *canvas.Store
	Runner        *runner.Runner
	Layout        *layout.Service
	Client        *api.Client
	State         *state.SQLiteStore // may be nil
	Port          int
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	secret := cfg.SessionSecret
	if secret == "" {
		// Sessions only carry flash messages, so a per-process secret is fine.
		secret = uuid.NewString()
	}
	sessionStore := sessions.NewCookieStore([]byte(secret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		projectID:    cfg.ProjectID,
		projectName:  cfg.ProjectName,
		store:        cfg.Store,
		runner:       cfg.Runner,
		layout:       cfg.Layout,
		client:       cfg.Client,
		state:        cfg.State,
		sessionStore: sessionStore,
		port:         cfg.Port,
		logger:       cfg.Logger,
		notifier:     notifier.New(),
	}
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting canvas server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	// Any graph change wakes the SSE update streams.
	for _, kind := range []canvas.EventKind{
		canvas.EventNodesChanged,
		canvas.EventEdgesChanged,
		canvas.EventStructural,
	} {
		s.store.On(kind, s.notifier.Broadcast)
	}

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(r, router.Deps{
		ProjectID:    s.projectID,
		ProjectName:  s.projectName,
		Store:        s.store,
		Runner:       s.runner,
		Layout:       s.layout,
		Client:       s.client,
		State:        s.state,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		Logger:       s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down canvas server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// URL returns the local address the server listens on.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}
