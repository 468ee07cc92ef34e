// Package server wires the application together: router, middleware, routes,
// and graceful shutdown.
//
// This is the composition root. main.go loads config and hands it here; New
// builds the full dependency chain (store → services → handlers) in one
// place, so each layer only receives the interfaces it needs — handlers never
// touch the database, services never touch HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mrahman/sitebuilder/internal/auth"
	"github.com/mrahman/sitebuilder/internal/cache"
	"github.com/mrahman/sitebuilder/internal/config"
	"github.com/mrahman/sitebuilder/internal/handler"
	"github.com/mrahman/sitebuilder/internal/mail"
	"github.com/mrahman/sitebuilder/internal/middleware"
	sqliteRepo "github.com/mrahman/sitebuilder/internal/repository/sqlite"
	"github.com/mrahman/sitebuilder/internal/service"
	"github.com/mrahman/sitebuilder/internal/validate"
)

// Server owns the router and the resources that must be released on
// shutdown — most importantly the database, whose Close flushes the WAL and
// releases the file lock.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  *sqliteRepo.Store
}

// New opens the database and assembles the dependency chain.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes builds the middleware stack, the services, and the route tree.
//
// MIDDLEWARE ORDER:
//  1. RequestID — tags each request for tracing
//  2. RealIP — real client IP from proxy headers
//  3. Recoverer — panics become 500s instead of crashes
//  4. Logger — one structured line per request
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	validator := validate.New()
	mailer := mail.NewLogSender(s.logger)
	pages := cache.NewPageCache()

	// GitHub OAuth is optional; without credentials the endpoints answer 404
	// and email/password auth still works.
	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth not configured, /auth/github routes disabled")
	}

	authService := service.NewAuthService(
		s.store, tokens, passwords, validator, mailer, s.config.BaseURL, s.logger)
	websiteService := service.NewWebsiteService(
		s.store, passwords, validator, pages, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	websiteHandler := handler.NewWebsiteHandler(websiteService, s.logger)
	siteHandler := handler.NewSiteHandler(websiteService, pages, s.logger)

	// Session endpoints: no auth required.
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignUp)
		r.Post("/login", authHandler.HandleSignIn)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/forgot-password", authHandler.HandleForgotPassword)
		r.Post("/reset-password", authHandler.HandleResetPassword)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	// Dashboard API: everything behind RequireAuth.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", authHandler.HandleMe)
		r.Get("/templates", websiteHandler.HandleTemplates)

		r.Get("/websites", websiteHandler.HandleList)
		r.Post("/websites", websiteHandler.HandleCreate)
		r.Get("/websites/{id}", websiteHandler.HandleGet)
		r.Patch("/websites/{id}/title", websiteHandler.HandleUpdateTitle)
		r.Patch("/websites/{id}/template", websiteHandler.HandleUpdateTemplate)
		r.Patch("/websites/{id}/publish", websiteHandler.HandlePublish)
		r.Patch("/websites/{id}/password-protection", websiteHandler.HandlePasswordProtection)
		r.Put("/websites/{id}/texts", websiteHandler.HandleUpdateTexts)
		r.Put("/websites/{id}/sections/order", websiteHandler.HandleReorderSections)
		r.Patch("/sections/{id}/status", websiteHandler.HandleSectionStatus)
	})

	// Public site views: OptionalAuth so owners can preview unpublished sites.
	s.router.Route("/sites", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Get("/{id}", siteHandler.HandleView)
		r.Post("/{id}/unlock", siteHandler.HandleUnlock)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30 seconds,
// close the database.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the route tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
