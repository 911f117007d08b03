package main

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

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mythic3d/particle-drawer/internal/asset"
	"github.com/mythic3d/particle-drawer/internal/auth"
	"github.com/mythic3d/particle-drawer/internal/config"
	"github.com/mythic3d/particle-drawer/internal/export"
	mw "github.com/mythic3d/particle-drawer/internal/middleware"
	"github.com/mythic3d/particle-drawer/internal/project"
	"github.com/mythic3d/particle-drawer/internal/session"
	"github.com/mythic3d/particle-drawer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := storage.Open(ctx, cfg.StorageDriver, cfg.StorageDSN(), cfg.SnapshotQuotaBytes)
	if err != nil {
		slog.Error("open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	authService := auth.NewService(repo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService, repo)

	projectService := project.NewService(repo)
	projectHandler := project.NewHandler(projectService)

	hub := session.NewHub(projectService.Load, session.Options{
		Width:         float64(cfg.ViewportWidth),
		Height:        float64(cfg.ViewportHeight),
		Backend:       repo,
		AutosaveDelay: cfg.AutosaveDelay,
	})
	go hub.Run()

	exportHandler := export.NewHandler()
	assetHandler := asset.NewHandler(cfg.WebDir)

	r := mux.NewRouter()

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, hub.Sessions())
	}).Methods("GET")

	// Conversions (public, used by the playground)
	r.HandleFunc("/export/skill", exportHandler.Skill).Methods("POST")
	r.HandleFunc("/export/project", exportHandler.Project).Methods("POST")
	r.HandleFunc("/import/skill", exportHandler.ImportSkill).Methods("POST")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.Rename).Methods("PATCH")
	api.HandleFunc("/projects/{projectId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/snapshots/latest", projectHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/projects/{projectId}/document", projectHandler.Import).Methods("PUT")
	api.HandleFunc("/projects/{projectId}/skill", projectHandler.Skill).Methods("GET")

	// WebSocket endpoint
	originHosts := cfg.OriginHosts()
	r.HandleFunc("/ws/project/{projectId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, projectService, originHosts)
	})

	// Browser client, registered last so it only gets what no other route matched.
	r.PathPrefix("/").Handler(assetHandler.Serve("")).Methods("GET")

	// CORS wraps the router so preflight requests never reach route matching.
	handler := mw.Recovery(mw.Logger(mw.CORS(cfg.Origins())(r)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so every open project gets its final save.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "storage", cfg.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, projects *project.Service, originHosts []string) {
	projectID := mux.Vars(r)["projectId"]

	var userID string
	if projectID == session.PlaygroundProjectID {
		userID = "anon-" + uuid.New().String()[:8]
	} else {
		// Browsers cannot set headers on websocket upgrades, so the token usually
		// arrives as a query parameter.
		token := auth.TokenFromRequest(r)
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if err := projects.Authorize(r.Context(), projectID, userID); err != nil {
			switch {
			case errors.Is(err, project.ErrNotFound):
				http.Error(w, "project not found", http.StatusNotFound)
			case errors.Is(err, project.ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				slog.Error("authorize websocket", "project", projectID, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
	}

	hub.ServeWS(w, r, projectID, userID, originHosts)
}
