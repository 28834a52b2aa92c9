package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

const filesResource = "files"

// Entry is one file or folder in the repository.
type Entry struct {
	Name       string
	Path       string
	IsDir      bool
	Size       int64
	MimeType   string
	ModifiedAt time.Time
}

// Listing is the content of one repository folder.
type Listing struct {
	Path    string
	Entries []Entry
}

type entryPayload struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Type       string `json:"type"`
	IsDir      *bool  `json:"is_dir"`
	IsFolder   *bool  `json:"is_folder"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type"`
	ModifiedAt string `json:"modified_at"`
	UpdatedAt  string `json:"updated_at"`
}

type listingPayload struct {
	Path    string         `json:"path"`
	Items   []entryPayload `json:"items"`
	Entries []entryPayload `json:"entries"`
	Files   []entryPayload `json:"files"`
	Folders []entryPayload `json:"folders"`
}

// ListFolder fetches GET /api/files/repository?path=<dir>.
func (c *Client) ListFolder(ctx context.Context, token, dir string) (Listing, error) {
	var payload listingPayload
	err := c.doJSON(ctx, call{
		resource: filesResource,
		method:   http.MethodGet,
		path:     "/api/files/repository",
		query:    Query{}.Add("path", dir),
		token:    token,
	}, nil, &payload)
	if err != nil {
		return Listing{}, err
	}
	listing := Listing{Path: payload.Path}
	if listing.Path == "" {
		listing.Path = dir
	}
	for _, raw := range payload.Folders {
		entry := raw.toEntry(listing.Path)
		entry.IsDir = true
		listing.Entries = append(listing.Entries, entry)
	}
	for _, group := range [][]entryPayload{payload.Items, payload.Entries, payload.Files} {
		for _, raw := range group {
			listing.Entries = append(listing.Entries, raw.toEntry(listing.Path))
		}
	}
	return listing, nil
}

func (p entryPayload) toEntry(parent string) Entry {
	entry := Entry{Name: p.Name, Path: p.Path, Size: p.Size, MimeType: p.MimeType}
	if entry.Path == "" {
		entry.Path = path.Join("/", parent, p.Name)
	}
	if entry.Name == "" {
		entry.Name = path.Base(entry.Path)
	}
	switch {
	case p.IsDir != nil:
		entry.IsDir = *p.IsDir
	case p.IsFolder != nil:
		entry.IsDir = *p.IsFolder
	default:
		t := strings.ToLower(p.Type)
		entry.IsDir = t == "folder" || t == "directory" || t == "dir"
	}
	for _, raw := range []string{p.ModifiedAt, p.UpdatedAt} {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			entry.ModifiedAt = ts
			break
		}
		if ts, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
			entry.ModifiedAt = ts
			break
		}
	}
	return entry
}

type createFolderRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// CreateFolder creates name inside parent.
func (c *Client) CreateFolder(ctx context.Context, token, parent, name string) error {
	return c.doJSON(ctx, call{
		resource: filesResource,
		method:   http.MethodPost,
		path:     "/api/files/repository/folder",
		token:    token,
	}, createFolderRequest{Path: parent, Name: name}, nil)
}

// UploadFile stores a file inside dir.
func (c *Client) UploadFile(ctx context.Context, token, dir string, up Upload) error {
	if up.FieldName == "" {
		up.FieldName = "file"
	}
	up.Fields = append(Query{}.Add("path", dir), up.Fields...)
	body, contentType := multipartBody(up)
	resp, err := c.send(ctx, call{
		resource:    filesResource,
		method:      http.MethodPost,
		path:        "/api/files/repository/upload",
		token:       token,
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Download is a streamed file body. Callers must close Body.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// Download streams GET /api/files/repository/download?path=<file>.
func (c *Client) Download(ctx context.Context, token, file string) (*Download, error) {
	resp, err := c.send(ctx, call{
		resource: filesResource,
		method:   http.MethodGet,
		path:     "/api/files/repository/download",
		query:    Query{}.Add("path", file),
		token:    token,
	})
	if err != nil {
		return nil, err
	}
	dl := &Download{
		Body:        resp.Body,
		Filename:    path.Base(file),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			dl.Filename = params["filename"]
		}
	}
	if dl.ContentType == "" {
		dl.ContentType = "application/octet-stream"
	}
	return dl, nil
}

// DeleteEntry removes a file or folder.
func (c *Client) DeleteEntry(ctx context.Context, token, target string) error {
	return c.doJSON(ctx, call{
		resource: filesResource,
		method:   http.MethodDelete,
		path:     "/api/files/repository",
		query:    Query{}.Add("path", target),
		token:    token,
	}, nil, nil)
}

// String implements fmt.Stringer for log attributes.
func (e Entry) String() string {
	kind := "file"
	if e.IsDir {
		kind = "folder"
	}
	return fmt.Sprintf("%s %s (%s bytes)", kind, e.Path, strconv.FormatInt(e.Size, 10))
}
