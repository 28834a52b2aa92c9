// Package files serves the repository browser backed by the files API.
package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/platform/httpx"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
)

// DefaultUploadMaxBytes caps a single upload.
const DefaultUploadMaxBytes = 50 << 20

// API is the subset of the REST client used by the browser.
type API interface {
	ListFolder(ctx context.Context, token, dir string) (apiclient.Listing, error)
	CreateFolder(ctx context.Context, token, parent, name string) error
	UploadFile(ctx context.Context, token, dir string, up apiclient.Upload) error
	Download(ctx context.Context, token, file string) (*apiclient.Download, error)
	DeleteEntry(ctx context.Context, token, target string) error
}

// EntryView is one listing row.
type EntryView struct {
	apiclient.Entry
	Href      string
	SizeLabel string
	Modified  string
}

// ViewModel is rendered by pages/files.html.
type ViewModel struct {
	Path        string
	ParentURL   string
	AtRoot      bool
	Crumbs      []Crumb
	Entries     []EntryView
	Deleting    *EntryView
	CloseURL    string
	Error       string
	UploadLimit string
}

// Handler serves /files.
type Handler struct {
	logger    *slog.Logger
	api       API
	templates *view.Engine
	csrf      *shared.CSRFManager
	maxUpload int64
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, api API, templates *view.Engine, csrf *shared.CSRFManager, maxUpload int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = DefaultUploadMaxBytes
	}
	return &Handler{logger: logger, api: api, templates: templates, csrf: csrf, maxUpload: maxUpload}
}

// MountRoutes registers browser routes, relative to /files.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.browse)
	r.Get("/download", h.download)
	r.Post("/folder", h.createFolder)
	r.Post("/upload", h.upload)
	r.Post("/delete", h.delete)
}

func (h *Handler) browse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dir := NormalizePath(r.URL.Query().Get("path"))
	vm := ViewModel{
		Path:        dir,
		ParentURL:   BrowseURL(ParentPath(dir)),
		AtRoot:      dir == Root,
		Crumbs:      Breadcrumbs(dir),
		CloseURL:    BrowseURL(dir),
		UploadLimit: humanize.IBytes(uint64(h.maxUpload)),
	}

	listing, err := h.api.ListFolder(ctx, shared.AccessTokenFromContext(ctx), dir)
	status := http.StatusOK
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Error("list folder", slog.String("path", dir), slog.Any("error", err))
		vm.Error = shared.UserSafeMessage(err)
		status = httpx.StatusFor(err)
	}
	vm.Entries = entryViews(listing.Entries)

	if target := r.URL.Query().Get("confirm_delete"); target != "" {
		target = NormalizePath(target)
		for i := range vm.Entries {
			if vm.Entries[i].Path == target {
				vm.Deleting = &vm.Entries[i]
				break
			}
		}
		if vm.Deleting == nil {
			vm.Deleting = &EntryView{Entry: apiclient.Entry{Name: path.Base(target), Path: target}}
		}
	}
	h.render(w, r, vm, status)
}

func entryViews(entries []apiclient.Entry) []EntryView {
	sorted := append([]apiclient.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsDir != sorted[j].IsDir {
			return sorted[i].IsDir
		}
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})
	out := make([]EntryView, 0, len(sorted))
	for _, e := range sorted {
		e.Path = NormalizePath(e.Path)
		v := EntryView{Entry: e, SizeLabel: "-"}
		if e.IsDir {
			v.Href = BrowseURL(e.Path)
		} else {
			v.Href = DownloadURL(e.Path)
			if e.Size >= 0 {
				v.SizeLabel = humanize.Bytes(uint64(e.Size))
			}
		}
		if !e.ModifiedAt.IsZero() {
			v.Modified = humanize.Time(e.ModifiedAt)
		}
		out = append(out, v)
	}
	return out
}

func (h *Handler) createFolder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	parent := NormalizePath(r.PostFormValue("path"))
	name := strings.TrimSpace(r.PostFormValue("name"))
	if !validFolderName(name) {
		h.redirectWithFlash(w, r, parent, shared.FlashError, "Enter a folder name without slashes")
		return
	}
	if err := h.api.CreateFolder(ctx, shared.AccessTokenFromContext(ctx), parent, name); err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Warn("create folder", slog.String("path", parent), slog.String("name", name), slog.Any("error", err))
		h.redirectWithFlash(w, r, parent, shared.FlashError, "Could not create folder: "+shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, parent, shared.FlashSuccess, "Folder "+name+" created")
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dir := NormalizePath(r.FormValue("path"))
	file, header, err := r.FormFile("file")
	if err != nil {
		h.redirectWithFlash(w, r, dir, shared.FlashError, "Choose a file to upload")
		return
	}
	defer file.Close()
	if header.Size > h.maxUpload {
		h.redirectWithFlash(w, r, dir, shared.FlashError, "Files must be "+humanize.IBytes(uint64(h.maxUpload))+" or smaller")
		return
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		h.logger.Error("read upload", slog.Any("error", err))
		h.redirectWithFlash(w, r, dir, shared.FlashError, "The file could not be read")
		return
	}
	head = head[:n]
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(head).String()
	}

	err = h.api.UploadFile(ctx, shared.AccessTokenFromContext(ctx), dir, apiclient.Upload{
		FieldName:   "file",
		Filename:    path.Base(header.Filename),
		ContentType: contentType,
		Body:        io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Warn("upload file", slog.String("path", dir), slog.String("file", header.Filename), slog.Any("error", err))
		h.redirectWithFlash(w, r, dir, shared.FlashError, "Upload failed: "+shared.UserSafeMessage(err))
		return
	}
	h.logger.Info("file uploaded", slog.String("path", dir), slog.String("file", header.Filename), slog.Int64("size", header.Size))
	h.redirectWithFlash(w, r, dir, shared.FlashSuccess, path.Base(header.Filename)+" uploaded")
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := NormalizePath(r.URL.Query().Get("path"))
	if target == Root {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	dl, err := h.api.Download(ctx, shared.AccessTokenFromContext(ctx), target)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Warn("download file", slog.String("path", target), slog.Any("error", err))
		h.redirectWithFlash(w, r, ParentPath(target), shared.FlashError, "Download failed: "+shared.UserSafeMessage(err))
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, dl.Body); err != nil {
		h.logger.Warn("stream download", slog.String("path", target), slog.Any("error", err))
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	target := NormalizePath(r.PostFormValue("path"))
	parent := ParentPath(target)
	if target == Root {
		h.redirectWithFlash(w, r, Root, shared.FlashError, "The repository root cannot be deleted")
		return
	}
	if err := h.api.DeleteEntry(ctx, shared.AccessTokenFromContext(ctx), target); err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Warn("delete entry", slog.String("path", target), slog.Any("error", err))
		h.redirectWithFlash(w, r, parent, shared.FlashError, "Could not delete "+path.Base(target)+": "+shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, parent, shared.FlashSuccess, path.Base(target)+" deleted")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, vm ViewModel, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	data := view.NewTemplateData(r, "Files")
	data.CSRFToken = csrfToken
	data.Flash = sess.PopFlash()
	data.Data = vm
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/files.html", data); err != nil {
		h.logger.Error("render files", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, dir, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, BrowseURL(dir), http.StatusSeeOther)
}
