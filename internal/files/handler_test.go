package files_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/files"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
	_ "github.com/dennislaw/svd-console/testing"
)

type fakeAPI struct {
	mu       sync.Mutex
	listed   []string
	folders  []string
	uploads  []string
	bodies   [][]byte
	deleted  []string
	listing  apiclient.Listing
	download *apiclient.Download
	err      error
}

func (f *fakeAPI) ListFolder(ctx context.Context, token, dir string) (apiclient.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, dir)
	return f.listing, f.err
}

func (f *fakeAPI) CreateFolder(ctx context.Context, token, parent, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, parent+"|"+name)
	return f.err
}

func (f *fakeAPI) UploadFile(ctx context.Context, token, dir string, up apiclient.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(up.Body)
	f.uploads = append(f.uploads, dir+"|"+up.Filename+"|"+up.ContentType)
	f.bodies = append(f.bodies, body)
	return f.err
}

func (f *fakeAPI) Download(ctx context.Context, token, file string) (*apiclient.Download, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.download, nil
}

func (f *fakeAPI) DeleteEntry(ctx context.Context, token, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, target)
	return f.err
}

func newRouter(t *testing.T, api files.API, sess *shared.Session, maxUpload int64) http.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	h := files.NewHandler(nil, api, templates, shared.NewCSRFManager("secret"), maxUpload)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/files", h.MountRoutes)
	return r
}

func signedIn() *shared.Session {
	sess := &shared.Session{ID: "s"}
	sess.SignIn("tok", shared.Identity{ID: "1", Email: "admin@dennislaw.com", Role: "admin"})
	return sess
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestBrowseListsFoldersFirst(t *testing.T) {
	api := &fakeAPI{listing: apiclient.Listing{Path: "/contracts", Entries: []apiclient.Entry{
		{Name: "zeta.pdf", Path: "/contracts/zeta.pdf", Size: 2048, ModifiedAt: time.Now().Add(-time.Hour)},
		{Name: "archive", Path: "/contracts/archive", IsDir: true},
		{Name: "Alpha.docx", Path: "/contracts/Alpha.docx", Size: 1_500_000},
	}}}
	router := newRouter(t, api, signedIn(), 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files?path=contracts/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/contracts"}, api.listed)
	body := rec.Body.String()
	archive := strings.Index(body, "archive/")
	alpha := strings.Index(body, "Alpha.docx")
	zeta := strings.Index(body, "zeta.pdf")
	require.True(t, archive >= 0 && alpha >= 0 && zeta >= 0)
	assert.True(t, archive < alpha && alpha < zeta)
	assert.Contains(t, body, "2.0 kB")
	assert.Contains(t, body, "1.5 MB")
	assert.Contains(t, body, "Up one level")
	assert.Contains(t, body, `href="/files"`)
}

func TestBrowseEachNavigationRefetches(t *testing.T) {
	api := &fakeAPI{}
	router := newRouter(t, api, signedIn(), 0)

	for _, target := range []string{"/files", "/files?path=%2Fa", "/files"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, []string{"/", "/a", "/"}, api.listed)
}

func TestBrowseFailureShowsBanner(t *testing.T) {
	api := &fakeAPI{err: &apiclient.APIError{Status: http.StatusNotFound, Message: "Folder not found"}}
	router := newRouter(t, api, signedIn(), 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files?path=/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Folder not found")
}

func TestCreateFolder(t *testing.T) {
	sess := signedIn()
	api := &fakeAPI{}
	router := newRouter(t, api, sess, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/files/folder", url.Values{"path": {"/contracts"}, "name": {"../escape"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, api.folders)
	assert.Equal(t, shared.FlashError, sess.PopFlash().Kind)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/files/folder", url.Values{"path": {"/contracts"}, "name": {"2024"}}))
	assert.Equal(t, "/files?path=%2Fcontracts", rec.Header().Get("Location"))
	assert.Equal(t, []string{"/contracts|2024"}, api.folders)
}

func uploadRequest(t *testing.T, dir, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", dir))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadStreamsFileWithSniffedType(t *testing.T) {
	api := &fakeAPI{}
	router := newRouter(t, api, signedIn(), 0)
	content := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/contracts", "brief.pdf", content))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"/contracts|brief.pdf|application/pdf"}, api.uploads)
	assert.Equal(t, content, api.bodies[0])
}

func TestUploadRejectsOversizeFiles(t *testing.T) {
	sess := signedIn()
	api := &fakeAPI{}
	router := newRouter(t, api, sess, 16)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/", "big.txt", bytes.Repeat([]byte("x"), 64)))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, api.uploads)
	assert.Contains(t, sess.PopFlash().Message, "16 B or smaller")
}

func TestDownloadStreamsAttachment(t *testing.T) {
	api := &fakeAPI{download: &apiclient.Download{
		Body:        io.NopCloser(strings.NewReader("judgment text")),
		Filename:    "judgment 2024.txt",
		ContentType: "text/plain",
		Size:        13,
	}}
	router := newRouter(t, api, signedIn(), 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/download?path=/judgments/judgment%202024.txt", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "judgment text", rec.Body.String())
	assert.Equal(t, `attachment; filename="judgment 2024.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "13", rec.Header().Get("Content-Length"))
}

func TestDeleteRedirectsToParent(t *testing.T) {
	sess := signedIn()
	api := &fakeAPI{}
	router := newRouter(t, api, sess, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files?path=/contracts&confirm_delete=/contracts/old.pdf", nil))
	assert.Contains(t, rec.Body.String(), `class="overlay"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/files/delete", url.Values{"path": {"/contracts/old.pdf"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/files?path=%2Fcontracts", rec.Header().Get("Location"))
	assert.Equal(t, []string{"/contracts/old.pdf"}, api.deleted)
	assert.Equal(t, "old.pdf deleted", sess.PopFlash().Message)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/files/delete", url.Values{"path": {"/"}}))
	assert.Len(t, api.deleted, 1)
}

func TestUnauthorizedExpiresSession(t *testing.T) {
	sess := signedIn()
	api := &fakeAPI{err: &apiclient.APIError{Status: http.StatusUnauthorized}}
	router := newRouter(t, api, sess, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, sess.IsAuthenticated())
}
