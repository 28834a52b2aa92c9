package pages

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
)

// Handler serves the content pages.
type Handler struct {
	logger    *slog.Logger
	library   *Library
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, library *Library, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, library: library, templates: templates, csrf: csrf}
}

// MountRoutes registers the content pages at the router root.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/services", h.show("services"))
	r.Get("/specification", h.show("specification"))
}

func (h *Handler) show(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := h.library.Page(key)
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
		data := view.NewTemplateData(r, page.Title)
		data.CSRFToken = csrfToken
		data.Flash = sess.PopFlash()
		data.Data = page
		w.WriteHeader(http.StatusOK)
		if err := h.templates.Render(w, "pages/"+key+".html", data); err != nil {
			h.logger.Error("render page", slog.String("page", key), slog.Any("error", err))
		}
	}
}
