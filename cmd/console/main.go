package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/app"
	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/crud"
	"github.com/dennislaw/svd-console/internal/dashboard"
	"github.com/dennislaw/svd-console/internal/files"
	"github.com/dennislaw/svd-console/internal/observability"
	"github.com/dennislaw/svd-console/internal/pages"
	"github.com/dennislaw/svd-console/internal/platform/cache"
	"github.com/dennislaw/svd-console/internal/preferences"
	"github.com/dennislaw/svd-console/internal/profile"
	"github.com/dennislaw/svd-console/internal/resources"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
	"github.com/dennislaw/svd-console/web"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "svd_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	submits := shared.NewIdempotencyStore(redisClient, cfg.SessionTTL)
	metrics := observability.NewMetrics()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	templates.WithNavigation(resources.Navigation())

	library, err := pages.Load(web.Content)
	if err != nil {
		logger.Error("load content pages", slog.Any("error", err))
		os.Exit(1)
	}

	api, err := apiclient.New(apiclient.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout, Observer: metrics})
	if err != nil {
		logger.Error("build api client", slog.Any("error", err))
		os.Exit(1)
	}

	authHandler := auth.NewHandler(logger, auth.NewService(api), templates, sessionManager, csrfManager)
	authMiddleware := auth.Middleware{Templates: templates, Logger: logger}

	var (
		resourceHandlers []*crud.Handler
		usersHandler     *crud.Handler
	)
	for _, res := range resources.All() {
		h := crud.NewHandler(logger, api, templates, csrfManager, res, cfg.PageSize).WithIdempotency(submits)
		if res.Key == "users" {
			usersHandler = h
		}
		resourceHandlers = append(resourceHandlers, h)
	}

	dashboardService := dashboard.NewService(logger, api, resources.All())
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, templates, csrfManager)
	profileHandler := profile.NewHandler(logger, api, templates, csrfManager, usersHandler, profile.Options{
		AvatarMaxBytes: cfg.AvatarMaxBytes,
		AssetBaseURL:   cfg.APIBaseURL,
	})
	filesHandler := files.NewHandler(logger, api, templates, csrfManager, cfg.UploadMaxBytes)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Templates:          templates,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		DashboardHandler:   dashboardHandler,
		ResourceHandlers:   resourceHandlers,
		ProfileHandler:     profileHandler,
		FilesHandler:       filesHandler,
		PagesHandler:       pages.NewHandler(logger, library, templates, csrfManager),
		PreferencesHandler: preferences.NewHandler(),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
