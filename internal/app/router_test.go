package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/app"
	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/crud"
	"github.com/dennislaw/svd-console/internal/dashboard"
	"github.com/dennislaw/svd-console/internal/files"
	"github.com/dennislaw/svd-console/internal/observability"
	"github.com/dennislaw/svd-console/internal/pages"
	"github.com/dennislaw/svd-console/internal/preferences"
	"github.com/dennislaw/svd-console/internal/profile"
	"github.com/dennislaw/svd-console/internal/resources"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
	"github.com/dennislaw/svd-console/web"
	_ "github.com/dennislaw/svd-console/testing"
)

type backend struct {
	mu       sync.Mutex
	requests []string
	role     string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.RequestURI())
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/auth/login":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "backend-token",
			"user":         map[string]any{"id": 1, "email": "admin@dennislaw.com", "full_name": "Efua Admin", "role": b.role},
		})
	case strings.HasSuffix(r.URL.Path, "/stats"):
		_ = json.NewEncoder(w).Encode(map[string]any{"total_banks": 23})
	case r.URL.Path == "/api/admin/banks":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items":       []map[string]any{{"id": 5, "name": "Ghana Commercial Bank", "bank_type": "commercial"}},
			"total":       11,
			"total_pages": 2,
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found"}`))
	}
}

func (b *backend) seen(prefix string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, req := range b.requests {
		if strings.HasPrefix(req, prefix) {
			out = append(out, req)
		}
	}
	return out
}

func newServer(t *testing.T, role string) (http.Handler, *backend) {
	t.Helper()
	be := &backend{role: role}
	upstream := httptest.NewServer(be)
	t.Cleanup(upstream.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	cfg := &app.Config{AppEnv: "development", PageSize: 10, RateLimitPerMinute: 1000, AppRequestTimeout: 5 * time.Second}
	sessions := shared.NewSessionManager(redisClient, "svd_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	metrics := observability.NewMetrics()

	templates, err := view.NewEngine()
	require.NoError(t, err)
	templates.WithNavigation(resources.Navigation())
	library, err := pages.Load(web.Content)
	require.NoError(t, err)

	api, err := apiclient.New(apiclient.Config{BaseURL: upstream.URL, Observer: metrics})
	require.NoError(t, err)

	var handlers []*crud.Handler
	for _, res := range resources.All() {
		handlers = append(handlers, crud.NewHandler(nil, api, templates, csrf, res, cfg.PageSize))
	}
	router := app.NewRouter(app.RouterParams{
		Config:             cfg,
		Templates:          templates,
		SessionManager:     sessions,
		CSRFManager:        csrf,
		AuthHandler:        auth.NewHandler(nil, auth.NewService(api), templates, sessions, csrf),
		AuthMiddleware:     auth.Middleware{Templates: templates},
		DashboardHandler:   dashboard.NewHandler(nil, dashboard.NewService(nil, api, resources.All()), templates, csrf),
		ResourceHandlers:   handlers,
		ProfileHandler:     profile.NewHandler(nil, api, templates, csrf, handlers[0], profile.Options{}),
		FilesHandler:       files.NewHandler(nil, api, templates, csrf, 0),
		PagesHandler:       pages.NewHandler(nil, library, templates, csrf),
		PreferencesHandler: preferences.NewHandler(),
		Metrics:            metrics,
	})
	return router, be
}

type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, handler http.Handler) *browser {
	return &browser{t: t, handler: handler, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) csrfToken() string {
	rec := b.get("/auth/login")
	require.Equal(b.t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	marker := `name="csrf_token" value="`
	idx := strings.Index(body, marker)
	require.GreaterOrEqual(b.t, idx, 0)
	rest := body[idx+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}

func (b *browser) login() *httptest.ResponseRecorder {
	token := b.csrfToken()
	return b.post("/auth/login", url.Values{"email": {"admin@dennislaw.com"}, "password": {"s3cret"}, "csrf_token": {token}})
}

func TestHealthz(t *testing.T) {
	router, _ := newServer(t, "admin")
	rec := newBrowser(t, router).get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnonymousVisitorsAreSentToLogin(t *testing.T) {
	router, be := newServer(t, "admin")
	b := newBrowser(t, router)

	rec := b.get("/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	rec = b.get("/admin/cases?page=2")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Fadmin%2Fcases%3Fpage%3D2", rec.Header().Get("Location"))
	assert.Empty(t, be.seen("GET"))
}

func TestStaticAssetsAreCached(t *testing.T) {
	router, _ := newServer(t, "admin")
	rec := newBrowser(t, router).get("/static/css/console.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "--accent")
}

func TestPostWithoutCSRFIsRejected(t *testing.T) {
	router, _ := newServer(t, "admin")
	rec := newBrowser(t, router).post("/preferences/theme", url.Values{"return_to": {"/"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContentPagesArePublic(t *testing.T) {
	router, _ := newServer(t, "admin")
	rec := newBrowser(t, router).get("/specification")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Collections")
}

func TestAdminLoginAndFilteredList(t *testing.T) {
	router, be := newServer(t, "admin")
	b := newBrowser(t, router)

	rec := b.login()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = b.get("/admin/banks?page=2&search=Ghana&bank_type=commercial")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"GET /api/admin/banks?page=2&limit=10&search=Ghana&bank_type=commercial"}, be.seen("GET /api/admin/banks?"))
	assert.Contains(t, rec.Body.String(), "Ghana Commercial Bank")
	assert.Contains(t, rec.Body.String(), "Welcome back, Efua Admin")

	rec = b.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "svd_console_api_calls_total")
}

func TestNonAdminIsDeniedAdminScreens(t *testing.T) {
	router, _ := newServer(t, "user")
	b := newBrowser(t, router)

	rec := b.login()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))

	rec = b.get("/admin/banks")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")

	rec = b.get("/files")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
