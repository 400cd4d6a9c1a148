package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MediSynth-io/casetracker/internal/auth"
	"github.com/MediSynth-io/casetracker/internal/config"
	"github.com/MediSynth-io/casetracker/internal/tracker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Api struct {
	Config  config.Config
	Router  *chi.Mux
	tracker *tracker.Service
	logger  *slog.Logger
}

func NewApi(cfg config.Config, svc *tracker.Service, logger *slog.Logger) (*Api, error) {
	if svc == nil {
		return nil, errors.New("tracker service is required")
	}

	api := &Api{
		Config:  cfg,
		Router:  chi.NewRouter(),
		tracker: svc,
		logger:  logger,
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(api.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	// Public routes
	r.Get("/heartbeat", api.Heartbeat)
	r.Post("/signup", api.SignupHandler)
	r.Post("/login", api.LoginHandler)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(api.tracker, api.logger))

		r.Get("/users/me", api.MeHandler)

		r.Route("/test-cases", func(r chi.Router) {
			r.Post("/", api.CreateTestCaseHandler)
			r.Get("/", api.ListTestCasesHandler)
			r.Post("/export", api.ExportTestCasesHandler)
			r.Get("/{id}", api.GetTestCaseHandler)
			r.Put("/{id}", api.UpdateTestCaseHandler)
			r.Delete("/{id}", api.DeleteTestCaseHandler)
		})
	})
}

// Serve listens on the configured port until ctx is cancelled, then drains
// in-flight requests for at most the configured shutdown timeout.
func (api *Api) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         api.Config.Addr(),
		Handler:      api.Router,
		ReadTimeout:  api.Config.Server.ReadTimeout,
		WriteTimeout: api.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		api.logger.Info("starting API server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	api.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (api *Api) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := api.tracker.Ping(r.Context()); err != nil {
		api.logger.Error("heartbeat database ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
