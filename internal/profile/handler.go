// Package profile serves the signed-in user's account screen.
package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/crud"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
)

// DefaultAvatarMaxBytes is the largest accepted avatar.
const DefaultAvatarMaxBytes = 5 << 20

// sniffLen is how much of an upload is read to detect its type.
const sniffLen = 3072

// API is the subset of the REST client used by the profile screen.
type API interface {
	Profile(ctx context.Context, token string) (apiclient.Record, error)
	UpdateProfile(ctx context.Context, token string, payload any) (apiclient.Record, error)
	UploadAvatar(ctx context.Context, token string, up apiclient.Upload) (apiclient.Record, error)
	ChangePassword(ctx context.Context, token, current, next string) error
}

// Options configures the handler.
type Options struct {
	AvatarMaxBytes int64
	// AssetBaseURL prefixes avatar paths returned relative to the API.
	AssetBaseURL string
}

// Handler serves /profile.
type Handler struct {
	logger    *slog.Logger
	api       API
	templates *view.Engine
	csrf      *shared.CSRFManager
	users     *crud.Handler
	validator *validator.Validate
	opts      Options
}

// NewHandler builds Handler instance. users may be nil, which hides the
// user-management table.
func NewHandler(logger *slog.Logger, api API, templates *view.Engine, csrf *shared.CSRFManager, users *crud.Handler, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AvatarMaxBytes <= 0 {
		opts.AvatarMaxBytes = DefaultAvatarMaxBytes
	}
	opts.AssetBaseURL = strings.TrimRight(opts.AssetBaseURL, "/")
	return &Handler{logger: logger, api: api, templates: templates, csrf: csrf, users: users, validator: validator.New(), opts: opts}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/", h.update)
	r.Post("/avatar", h.uploadAvatar)
	r.Post("/password", h.changePassword)
}

var profileForm = crud.Resource{
	Key: "profile",
	Fields: []crud.Field{
		{Name: "name", Label: "Full name", Type: crud.FieldText, Rules: "required,max=120"},
		{Name: "email", Type: crud.FieldEmail, Rules: "required,looseemail"},
		{Name: "phone", Type: crud.FieldTel, Rules: "omitempty,phone"},
		{Name: "organization", Type: crud.FieldText, Rules: "omitempty,max=160"},
		{Name: "bio", Type: crud.FieldTextarea, Rules: "omitempty,max=1000"},
	},
}

// ViewModel is rendered by pages/profile.html.
type ViewModel struct {
	Profile      apiclient.Record
	Fields       []crud.FieldView
	AvatarURL    string
	AvatarLimit  string
	Error        string
	Users        *crud.ListView
	UsersEnabled bool
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := shared.AccessTokenFromContext(ctx)
	vm := ViewModel{AvatarLimit: humanize.IBytes(uint64(h.opts.AvatarMaxBytes))}

	rec, err := h.api.Profile(ctx, token)
	if apiclient.IsUnauthorized(err) {
		auth.ExpireSession(w, r)
		return
	}
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		vm.Error = shared.UserSafeMessage(err)
		rec = apiclient.Record{}
	}
	vm.Profile = rec
	vm.AvatarURL = h.assetURL(rec.String("avatar"))
	values := profileForm.FormValues(rec)
	if identity, ok := shared.IdentityFromContext(ctx); ok {
		if values["name"] == "" {
			values["name"] = identity.Name
		}
		if values["email"] == "" {
			values["email"] = identity.Email
		}
		if vm.AvatarURL == "" {
			vm.AvatarURL = h.assetURL(identity.Avatar)
		}
		if identity.IsAdmin() && h.users != nil {
			list, err := h.users.Load(r)
			if apiclient.IsUnauthorized(err) {
				auth.ExpireSession(w, r)
				return
			}
			vm.Users = &list
			vm.UsersEnabled = true
		}
	}
	for _, f := range profileForm.Fields {
		vm.Fields = append(vm.Fields, crud.FieldView{Field: f, Value: values[f.Name]})
	}
	h.render(w, r, vm)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	values := make(map[string]string, len(profileForm.Fields))
	for _, f := range profileForm.Fields {
		values[f.Name] = r.PostFormValue(f.Name)
	}
	if errs := profileForm.Validate(values, false); len(errs) > 0 {
		h.redirectWithFlash(w, r, shared.FlashError, firstError(profileForm, errs))
		return
	}
	token := shared.AccessTokenFromContext(ctx)
	rec, err := h.api.UpdateProfile(ctx, token, profileForm.Payload(values, false))
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Warn("update profile", slog.Any("error", err))
		msg := shared.UserSafeMessage(err)
		if fields := apiclient.FieldErrors(err); len(fields) > 0 {
			msg = firstError(profileForm, fields)
		}
		h.redirectWithFlash(w, r, shared.FlashError, msg)
		return
	}
	if sess := shared.SessionFromContext(ctx); sess != nil {
		if identity, ok := sess.Identity(); ok {
			identity.Name = strings.TrimSpace(values["name"])
			identity.Email = strings.TrimSpace(values["email"])
			if avatar := rec.String("avatar"); avatar != "" {
				identity.Avatar = avatar
			}
			sess.SignIn(token, identity)
		}
	}
	h.redirectWithFlash(w, r, shared.FlashSuccess, "Profile updated")
}

// errAvatar is returned for uploads rejected before reaching the API.
var errAvatar = errors.New("invalid avatar")

// readAvatar validates size and sniffed type and returns the upload to send.
func (h *Handler) readAvatar(r *http.Request) (apiclient.Upload, error) {
	file, header, err := r.FormFile("avatar")
	if err != nil {
		return apiclient.Upload{}, fmt.Errorf("%w: choose an image to upload", errAvatar)
	}
	if header.Size > h.opts.AvatarMaxBytes {
		_ = file.Close()
		return apiclient.Upload{}, fmt.Errorf("%w: the image must be %s or smaller", errAvatar, humanize.IBytes(uint64(h.opts.AvatarMaxBytes)))
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = file.Close()
		return apiclient.Upload{}, fmt.Errorf("read avatar: %w", err)
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	if !strings.HasPrefix(mt.String(), "image/") {
		_ = file.Close()
		return apiclient.Upload{}, fmt.Errorf("%w: %s is not an image", errAvatar, header.Filename)
	}
	return apiclient.Upload{
		FieldName:   "avatar",
		Filename:    header.Filename,
		ContentType: mt.String(),
		Body:        readCloser{Reader: io.MultiReader(bytes.NewReader(head), file), Closer: file},
	}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, err := h.readAvatar(r)
	if err != nil {
		if !errors.Is(err, errAvatar) {
			h.logger.Error("read avatar", slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, shared.FlashError, avatarMessage(err))
		return
	}
	defer up.Body.(io.Closer).Close()

	token := shared.AccessTokenFromContext(ctx)
	rec, err := h.api.UploadAvatar(ctx, token, up)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Warn("upload avatar", slog.Any("error", err))
		h.redirectWithFlash(w, r, shared.FlashError, "Avatar upload failed: "+shared.UserSafeMessage(err))
		return
	}
	if sess := shared.SessionFromContext(ctx); sess != nil {
		if identity, ok := sess.Identity(); ok {
			if avatar := firstNonEmpty(rec.String("avatar"), rec.String("avatar_url"), rec.String("url")); avatar != "" {
				identity.Avatar = avatar
				sess.SignIn(token, identity)
			}
		}
	}
	h.redirectWithFlash(w, r, shared.FlashSuccess, "Avatar updated")
}

func avatarMessage(err error) string {
	if errors.Is(err, errAvatar) {
		msg := strings.TrimPrefix(err.Error(), errAvatar.Error()+": ")
		return strings.ToUpper(msg[:1]) + msg[1:]
	}
	return "The avatar could not be read."
}

type passwordForm struct {
	Current string `validate:"required"`
	New     string `validate:"required,min=8"`
	Confirm string `validate:"required,eqfield=New"`
}

var passwordMessages = map[string]string{
	"Current.required": "Enter your current password",
	"New.required":     "Enter a new password",
	"New.min":          "The new password must be at least 8 characters",
	"Confirm.required": "Confirm the new password",
	"Confirm.eqfield":  "The new passwords do not match",
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	form := passwordForm{
		Current: r.PostFormValue("current_password"),
		New:     r.PostFormValue("new_password"),
		Confirm: r.PostFormValue("confirm_password"),
	}
	if err := h.validator.Struct(form); err != nil {
		msg := "Check the password fields"
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if m, ok := passwordMessages[verrs[0].Field()+"."+verrs[0].Tag()]; ok {
				msg = m
			}
		}
		h.redirectWithFlash(w, r, shared.FlashError, msg)
		return
	}
	if err := h.api.ChangePassword(ctx, shared.AccessTokenFromContext(ctx), form.Current, form.New); err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Warn("change password", slog.Any("error", err))
		h.redirectWithFlash(w, r, shared.FlashError, shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, shared.FlashSuccess, "Password changed")
}

func (h *Handler) assetURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || h.opts.AssetBaseURL == "" {
		return path
	}
	return h.opts.AssetBaseURL + "/" + strings.TrimLeft(path, "/")
}

func firstError(res crud.Resource, errs map[string]string) string {
	for _, f := range res.Fields {
		if msg, ok := errs[f.Name]; ok {
			return msg
		}
	}
	for _, msg := range errs {
		return msg
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, vm ViewModel) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	data := view.NewTemplateData(r, "Profile")
	data.CSRFToken = csrfToken
	data.Flash = sess.PopFlash()
	data.Data = vm
	w.WriteHeader(http.StatusOK)
	if err := h.templates.Render(w, "pages/profile.html", data); err != nil {
		h.logger.Error("render profile", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
