// Package preferences stores per-browser display settings in the session.
package preferences

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/shared"
)

// Handler serves /preferences.
type Handler struct{}

// NewHandler builds Handler instance.
func NewHandler() *Handler {
	return &Handler{}
}

// MountRoutes registers preference routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/theme", h.theme)
}

// theme sets the requested theme, or flips the current one when none is given.
func (h *Handler) theme(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Set(shared.SessionKeyTheme, NextTheme(sess.Get(shared.SessionKeyTheme), r.PostFormValue("theme")))
	}
	http.Redirect(w, r, auth.SafeRedirect(r.PostFormValue("return_to"), "/"), http.StatusSeeOther)
}

// NextTheme returns requested when it is a known theme, otherwise the
// opposite of current.
func NextTheme(current, requested string) string {
	switch requested {
	case shared.ThemeLight, shared.ThemeDark:
		return requested
	}
	if shared.NormalizeTheme(current) == shared.ThemeDark {
		return shared.ThemeLight
	}
	return shared.ThemeDark
}
