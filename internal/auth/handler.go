package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Next     string `validate:"-"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

var loginMessages = map[string]string{
	"Email.required":    "Email is required",
	"Email.email":       "Enter a valid email address",
	"Password.required": "Password is required",
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess.IsAuthenticated() {
		http.Redirect(w, r, h.landing(sess, r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	h.render(w, r, loginPageData{Form: loginForm{Next: r.URL.Query().Get("next")}}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Next:     r.PostFormValue("next"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				msg, ok := loginMessages[fieldErr.Field()+"."+fieldErr.Tag()]
				if !ok {
					msg = fieldErr.Error()
				}
				errs[fieldErr.Field()] = msg
			}
		}
	}

	if len(errs) == 0 {
		token, identity, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		switch {
		case errors.Is(err, shared.ErrInvalidCredentials):
			errs["general"] = shared.UserSafeMessage(err)
		case err != nil:
			h.logger.Error("login failed", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		default:
			if sess == nil {
				h.logger.Error("session missing during login")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			sess.SignIn(token, identity)
			sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Welcome back, " + identity.DisplayName()})
			h.logger.Info("user signed in", slog.String("user", identity.ID), slog.String("role", identity.Role))
			http.Redirect(w, r, h.landing(sess, form.Next), http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	h.render(w, r, loginPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// landing picks the page shown after sign-in.
func (h *Handler) landing(sess *shared.Session, next string) string {
	fallback := "/profile"
	if identity, ok := sess.Identity(); ok && identity.IsAdmin() {
		fallback = "/admin"
	}
	return SafeRedirect(next, fallback)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	viewData := view.NewTemplateData(r, "Sign in")
	viewData.CSRFToken = csrfToken
	viewData.Flash = sess.PopFlash()
	viewData.Data = data
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}
