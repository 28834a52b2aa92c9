package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/crud"
	"github.com/dennislaw/svd-console/internal/dashboard"
	"github.com/dennislaw/svd-console/internal/files"
	"github.com/dennislaw/svd-console/internal/observability"
	"github.com/dennislaw/svd-console/internal/pages"
	"github.com/dennislaw/svd-console/internal/preferences"
	"github.com/dennislaw/svd-console/internal/profile"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
	"github.com/dennislaw/svd-console/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Templates          *view.Engine
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	AuthMiddleware     auth.Middleware
	DashboardHandler   *dashboard.Handler
	ResourceHandlers   []*crud.Handler
	ProfileHandler     *profile.Handler
	FilesHandler       *files.Handler
	PagesHandler       *pages.Handler
	PreferencesHandler *preferences.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if !sess.IsAuthenticated() {
			http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
			return
		}
		identity, _ := sess.Identity()
		if identity.IsAdmin() {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	mw := params.AuthMiddleware
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireAdmin)
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		for _, h := range params.ResourceHandlers {
			r.Route("/"+h.Resource().Key, h.MountRoutes)
		}
	})
	if params.ProfileHandler != nil {
		r.Route("/profile", func(r chi.Router) {
			r.Use(mw.RequireLogin)
			params.ProfileHandler.MountRoutes(r)
		})
	}
	if params.FilesHandler != nil {
		r.Route("/files", func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			params.FilesHandler.MountRoutes(r)
		})
	}
	if params.PreferencesHandler != nil {
		r.Route("/preferences", params.PreferencesHandler.MountRoutes)
	}
	if params.PagesHandler != nil {
		params.PagesHandler.MountRoutes(r)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
