package auth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/auth/login"

// Middleware gates console pages on the session identity. The backend still
// enforces authorization on every API call; this only keeps non-admins out of
// screens whose calls would be rejected anyway.
type Middleware struct {
	Templates *view.Engine
	Logger    *slog.Logger
}

// RequireLogin redirects visitors without a signed-in session to the login page.
func (m Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if !sess.IsAuthenticated() {
			http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 403 "Access denied" for signed-in users without an
// admin role.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := shared.IdentityFromContext(r.Context())
		if identity.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}
		if m.Logger != nil {
			m.Logger.Warn("admin access denied", slog.String("user", identity.ID), slog.String("role", identity.Role), slog.String("path", r.URL.Path))
		}
		m.denied(w, r)
	}))
}

func (m Middleware) denied(w http.ResponseWriter, r *http.Request) {
	if m.Templates == nil {
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}
	data := view.NewTemplateData(r, "Access denied")
	w.WriteHeader(http.StatusForbidden)
	if err := m.Templates.Render(w, "pages/denied.html", data); err != nil && m.Logger != nil {
		m.Logger.Error("render denied", slog.Any("error", err))
	}
}

// ExpireSession drops the credentials after the backend rejected the access
// token and sends the user back to the login page.
func ExpireSession(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SignOut()
		sess.AddFlash(shared.FlashMessage{Kind: shared.FlashInfo, Message: "Your session has expired. Please sign in again."})
	}
	http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
}

func loginURL(r *http.Request) string {
	if r.Method != http.MethodGet || r.URL.Path == "/" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

// SafeRedirect returns target when it is a local path and fallback otherwise.
func SafeRedirect(target, fallback string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}
	// Browsers strip tabs and newlines, so "/\t/host" would become "//host".
	if strings.IndexFunc(target, func(c rune) bool { return c < 0x20 || c == 0x7f }) >= 0 {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}
