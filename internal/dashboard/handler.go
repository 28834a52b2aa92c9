package dashboard

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/platform/httpx"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
)

// Tab is one link of the dashboard tab strip.
type Tab struct {
	Key    string
	Label  string
	Href   string
	Active bool
}

// ViewModel is rendered by pages/dashboard.html.
type ViewModel struct {
	Tabs     []Tab
	Overview Overview
	Chart    template.HTML
}

// Handler serves the admin shell.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers the shell routes, relative to /admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.overview)
	r.Get("/stats.json", h.statsJSON)
}

func (h *Handler) tabs() []Tab {
	tabs := []Tab{{Key: "overview", Label: "Overview", Href: "/admin?tab=overview", Active: true}}
	for _, res := range h.service.Screens() {
		tabs = append(tabs, Tab{Key: res.Key, Label: res.Title, Href: "/admin?tab=" + res.Key})
	}
	return append(tabs, Tab{Key: "files", Label: "Files", Href: "/admin?tab=files"})
}

// tabTarget resolves ?tab= to the page that renders it.
func (h *Handler) tabTarget(tab string) (string, bool) {
	switch tab {
	case "", "overview":
		return "", false
	case "files":
		return "/files", true
	case "profile":
		return "/profile", true
	}
	for _, res := range h.service.Screens() {
		if res.Key == tab {
			return res.Path(), true
		}
	}
	return "/admin", true
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	if target, ok := h.tabTarget(r.URL.Query().Get("tab")); ok {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	ctx := r.Context()
	ov := h.service.Overview(ctx, shared.AccessTokenFromContext(ctx))
	if ov.Unauthorized() {
		auth.ExpireSession(w, r)
		return
	}
	vm := ViewModel{Tabs: h.tabs(), Overview: ov}
	var values []float64
	var labels []string
	for _, sum := range ov.Summaries {
		if sum.HasTotal {
			values = append(values, sum.Total)
			labels = append(labels, sum.Title)
		}
	}
	if len(values) > 0 {
		chart, err := Bars(values, labels, ChartOpts{Title: "Records per entity", Description: "Total records reported by each entity"})
		if err != nil {
			h.logger.Warn("render overview chart", slog.Any("error", err))
		} else {
			vm.Chart = chart
		}
	}
	h.render(w, r, vm)
}

func (h *Handler) statsJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ov := h.service.Overview(ctx, shared.AccessTokenFromContext(ctx))
	switch {
	case ov.Unauthorized():
		httpx.RespondError(w, fmt.Errorf("overview: %w", httpx.ErrUnauthorized))
	case len(ov.Summaries) > 0 && ov.Failed == len(ov.Summaries):
		httpx.RespondError(w, fmt.Errorf("overview: %w", httpx.ErrUpstream))
	default:
		httpx.JSON(w, http.StatusOK, ov)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, vm ViewModel) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	data := view.NewTemplateData(r, "Dashboard")
	data.CSRFToken = csrfToken
	data.Flash = sess.PopFlash()
	data.Data = vm
	w.WriteHeader(http.StatusOK)
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
	}
}
