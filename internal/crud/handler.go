package crud

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/platform/httpx"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
)

// API is the subset of the REST client used by list screens.
type API interface {
	List(ctx context.Context, token, entity string, q apiclient.ListQuery) (apiclient.Page, error)
	Stats(ctx context.Context, token, entity string) (apiclient.Stats, error)
	Get(ctx context.Context, token, entity, id string) (apiclient.Record, error)
	Create(ctx context.Context, token, entity string, payload any) (apiclient.Record, error)
	Update(ctx context.Context, token, entity, id string, payload any) (apiclient.Record, error)
	Delete(ctx context.Context, token, entity, id string) error
	SetStatus(ctx context.Context, token, entity, id, status string) error
}

// Handler serves the list screen of one resource.
type Handler struct {
	logger    *slog.Logger
	api       API
	templates *view.Engine
	csrf      *shared.CSRFManager
	resource  Resource
	pageSize  int
	submits   *shared.IdempotencyStore
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, api API, templates *view.Engine, csrf *shared.CSRFManager, resource Resource, pageSize int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Handler{logger: logger, api: api, templates: templates, csrf: csrf, resource: resource, pageSize: pageSize}
}

// WithIdempotency guards create forms against repeated submits.
func (h *Handler) WithIdempotency(store *shared.IdempotencyStore) *Handler {
	h.submits = store
	return h
}

// Resource returns the entity served by h.
func (h *Handler) Resource() Resource {
	return h.resource
}

// MountRoutes registers list and mutation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.With(exportLimiter()).Get("/export.csv", h.export)
	r.Post("/{id}/delete", h.delete)
	if h.resource.Editable {
		r.Post("/", h.create)
		r.Post("/{id}", h.update)
	}
	if h.resource.StatusToggle {
		r.Post("/{id}/status", h.toggleStatus)
	}
}

// Load fetches the page described by the request query, with stats, and
// resolves the view, edit and delete overlays. Links point at r.URL.Path so
// the table can be embedded in other pages. A list failure is returned and
// also carried in ListView.Error.
func (h *Handler) Load(r *http.Request) (ListView, error) {
	return h.load(r.Context(), r.URL.Path, r.URL.Query())
}

func (h *Handler) load(ctx context.Context, listPath string, q url.Values) (ListView, error) {
	token := shared.AccessTokenFromContext(ctx)
	state := ParseListState(h.resource, q, h.pageSize)
	v := h.newView(listPath, state)

	var (
		page     apiclient.Page
		stats    apiclient.Stats
		statsErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		page, err = h.api.List(ctx, token, h.resource.Key, state.ListQuery())
		return err
	})
	if h.resource.Stats {
		g.Go(func() error {
			stats, statsErr = h.api.Stats(ctx, token, h.resource.Key)
			return nil
		})
	}
	err := g.Wait()

	if statsErr != nil {
		h.logger.Warn("load stats", slog.String("resource", h.resource.Key), slog.Any("error", statsErr))
		v.StatsUnavailable = true
	} else if len(stats) > 0 {
		v.Stats = StatCards(stats)
	}

	if err != nil {
		h.logger.Error("load list", slog.String("resource", h.resource.Key), slog.Any("error", err))
		v.Error = shared.UserSafeMessage(err)
		v.Pagination = shared.NewPagination(state.Page, state.Limit, 0, 1)
		return v, err
	}

	v.Loaded = true
	v.Rows = buildRows(h.resource, page.Items)
	v.Pagination = shared.NewPagination(state.Page, state.Limit, page.Total, page.TotalPages)
	v.PageLinks = pageLinks(state, v.Pagination, listPath)
	if v.Pagination.HasPrev() {
		v.PrevURL = state.WithPage(v.Pagination.Prev()).URL(listPath)
		v.FirstURL = state.WithPage(1).URL(listPath)
	}
	if v.Pagination.HasNext() {
		v.NextURL = state.WithPage(v.Pagination.Next()).URL(listPath)
	}
	h.applyOverlays(ctx, token, &v, q)
	return v, nil
}

func (h *Handler) newView(listPath string, state ListState) ListView {
	v := ListView{
		Resource:   h.resource,
		State:      state,
		ListPath:   listPath,
		ActionPath: h.resource.Path(),
		ReturnTo:   state.URL(listPath),
		CloseURL:   state.URL(listPath),
		ExportURL:  state.URL(h.resource.Path() + "/export.csv"),
	}
	for _, f := range h.resource.Filters {
		v.Controls = append(v.Controls, FilterControl{Filter: f, Selected: state.FilterValue(f.Param)})
	}
	return v
}

func (h *Handler) applyOverlays(ctx context.Context, token string, v *ListView, q url.Values) {
	if id := q.Get("view"); id != "" {
		if row, ok := findRow(v.Rows, id); ok {
			v.Viewing = &row
		} else {
			v.Error = h.resource.SingularTitle() + " " + id + " is not on this page."
		}
		return
	}
	if id := q.Get("confirm_delete"); id != "" {
		row, ok := findRow(v.Rows, id)
		if !ok {
			row = Row{ID: id}
		}
		v.Deleting = &row
		return
	}
	if !h.resource.Editable {
		return
	}
	if id := q.Get("edit"); id != "" {
		row, ok := findRow(v.Rows, id)
		rec := row.Record
		if !ok {
			var err error
			rec, err = h.api.Get(ctx, token, h.resource.Key, id)
			if err != nil {
				h.logger.Warn("load record for edit", slog.String("resource", h.resource.Key), slog.String("id", id), slog.Any("error", err))
				v.Error = shared.UserSafeMessage(err)
				return
			}
		}
		v.Form = h.formView(false, id, h.resource.FormValues(rec), nil, "", "")
		return
	}
	if q.Get("new") != "" {
		v.Form = h.formView(true, "", map[string]string{}, nil, "", "")
	}
}

func findRow(rows []Row, id string) (Row, bool) {
	for _, row := range rows {
		if row.ID == id {
			return row, true
		}
	}
	return Row{}, false
}

func (h *Handler) formView(creating bool, id string, values, errs map[string]string, general, submitKey string) *FormView {
	form := &FormView{Creating: creating, RecordID: id, Action: h.resource.Path(), General: general, SubmitKey: submitKey}
	if creating && form.SubmitKey == "" {
		form.SubmitKey = uuid.NewString()
	}
	if !creating {
		form.Action = h.resource.Path() + "/" + url.PathEscape(id)
	}
	for _, f := range h.resource.Fields {
		if f.CreateOnly && !creating {
			continue
		}
		form.Fields = append(form.Fields, FieldView{Field: f, Value: values[f.Name], Error: errs[f.Name]})
	}
	return form
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	v, err := h.Load(r)
	if apiclient.IsUnauthorized(err) {
		auth.ExpireSession(w, r)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = httpx.StatusFor(err)
	}
	h.render(w, r, v, status)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, id string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	creating := id == ""
	returnTo := h.returnTo(r)

	values := make(map[string]string, len(h.resource.Fields))
	for _, f := range h.resource.Fields {
		values[f.Name] = r.PostFormValue(f.Name)
	}
	submitKey := r.PostFormValue("submit_key")
	errs := h.resource.Validate(values, creating)
	general := ""
	if len(errs) == 0 {
		if creating && h.submits != nil && submitKey != "" {
			switch err := h.submits.CheckAndInsert(ctx, submitKey, h.resource.Key); {
			case errors.Is(err, shared.ErrIdempotencyConflict):
				h.redirectWithFlash(w, r, returnTo, shared.FlashInfo, "This "+strings.ToLower(h.resource.SingularTitle())+" was already submitted")
				return
			case err != nil:
				h.logger.Warn("check submit key", slog.String("resource", h.resource.Key), slog.Any("error", err))
			}
		}
		token := shared.AccessTokenFromContext(ctx)
		payload := h.resource.Payload(values, creating)
		var err error
		if creating {
			_, err = h.api.Create(ctx, token, h.resource.Key, payload)
			if err != nil {
				if releaseErr := h.submits.Release(ctx, submitKey, h.resource.Key); releaseErr != nil {
					h.logger.Warn("release submit key", slog.String("resource", h.resource.Key), slog.Any("error", releaseErr))
				}
			}
		} else {
			_, err = h.api.Update(ctx, token, h.resource.Key, id, payload)
		}
		if err == nil {
			verb := "updated"
			if creating {
				verb = "created"
			}
			h.redirectWithFlash(w, r, returnTo, shared.FlashSuccess, h.resource.SingularTitle()+" "+verb)
			return
		}
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Warn("save record", slog.String("resource", h.resource.Key), slog.String("id", id), slog.Any("error", err))
		fieldErrs := apiclient.FieldErrors(err)
		for name, msg := range fieldErrs {
			errs[name] = msg
		}
		if len(fieldErrs) == 0 {
			general = shared.UserSafeMessage(err)
		}
	}

	var listQuery url.Values
	if target, err := url.Parse(returnTo); err == nil {
		listQuery = target.Query()
	}
	v, err := h.load(ctx, h.resource.Path(), listQuery)
	if apiclient.IsUnauthorized(err) {
		auth.ExpireSession(w, r)
		return
	}
	v.Viewing, v.Deleting = nil, nil
	v.Form = h.formView(creating, id, values, errs, general, submitKey)
	h.render(w, r, v, http.StatusUnprocessableEntity)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	returnTo := h.returnTo(r)
	if err := h.api.Delete(ctx, shared.AccessTokenFromContext(ctx), h.resource.Key, id); err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Error("delete record", slog.String("resource", h.resource.Key), slog.String("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, returnTo, shared.FlashError, "Could not delete "+h.resource.SingularTitle()+": "+shared.UserSafeMessage(err))
		return
	}
	identity, _ := shared.IdentityFromContext(ctx)
	h.logger.Info("record deleted", slog.String("resource", h.resource.Key), slog.String("id", id), slog.String("by", identity.ID))
	h.redirectWithFlash(w, r, returnTo, shared.FlashSuccess, h.resource.SingularTitle()+" deleted")
}

var statusValues = map[string]string{
	"active":    "activated",
	"inactive":  "deactivated",
	"suspended": "suspended",
}

func (h *Handler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	returnTo := h.returnTo(r)
	status := r.PostFormValue("status")
	verb, ok := statusValues[status]
	if !ok {
		h.redirectWithFlash(w, r, returnTo, shared.FlashError, "Unknown status "+status)
		return
	}
	if err := h.api.SetStatus(ctx, shared.AccessTokenFromContext(ctx), h.resource.Key, id, status); err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Error("set status", slog.String("resource", h.resource.Key), slog.String("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, returnTo, shared.FlashError, shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, returnTo, shared.FlashSuccess, h.resource.SingularTitle()+" "+verb)
}

// returnTo is the list URL, with its page and filters, a mutation goes back to.
func (h *Handler) returnTo(r *http.Request) string {
	return auth.SafeRedirect(r.PostFormValue("return_to"), h.resource.Path())
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, v ListView, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	data := view.NewTemplateData(r, h.resource.Title)
	data.CSRFToken = csrfToken
	data.Flash = sess.PopFlash()
	data.Data = v
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/resource.html", data); err != nil {
		h.logger.Error("render template", slog.String("resource", h.resource.Key), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
