package pages

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
	"github.com/dennislaw/svd-console/web"
)

func TestLoadEmbeddedContent(t *testing.T) {
	lib, err := Load(web.Content)
	require.NoError(t, err)

	for _, key := range []string{"services", "specification"} {
		page, err := lib.Page(key)
		require.NoError(t, err, key)
		assert.NotEmpty(t, page.Title)
		assert.NotEmpty(t, page.Sections)
	}
	_, err = lib.Page("pricing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	fsys := fstest.MapFS{"content/bad.yaml": {Data: []byte("title: Bad\nsubtitle: nope\n")}}
	_, err := Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestLoadRejectsRaggedTables(t *testing.T) {
	fsys := fstest.MapFS{"content/grid.yaml": {Data: []byte("title: Grid\nsections:\n  - heading: T\n    table:\n      columns: [A, B]\n      rows:\n        - [one]\n")}}
	_, err := Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 1 cells")
}

func TestHandlerRendersServices(t *testing.T) {
	lib, err := Load(web.Content)
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	h := NewHandler(nil, lib, templates, shared.NewCSRFManager("secret"))
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/services", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Record search")
	assert.Contains(t, rec.Body.String(), "Professional")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/specification", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "payment_method")
}
