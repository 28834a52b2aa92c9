package files

import (
	"net/url"
	"path"
	"strings"
)

// Root is the top of the repository.
const Root = "/"

// NormalizePath cleans a repository path and anchors it at Root.
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	return path.Clean("/" + p)
}

// ParentPath returns the folder containing p. The parent of Root is Root.
func ParentPath(p string) string {
	return path.Dir(NormalizePath(p))
}

// Crumb is one segment of the breadcrumb trail.
type Crumb struct {
	Name string
	Href string
}

// Breadcrumbs splits p into links from Root down to p.
func Breadcrumbs(p string) []Crumb {
	p = NormalizePath(p)
	crumbs := []Crumb{{Name: "Repository", Href: BrowseURL(Root)}}
	if p == Root {
		return crumbs
	}
	current := ""
	for _, part := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		current += "/" + part
		crumbs = append(crumbs, Crumb{Name: part, Href: BrowseURL(current)})
	}
	return crumbs
}

// BrowseURL links to the listing of dir.
func BrowseURL(dir string) string {
	dir = NormalizePath(dir)
	if dir == Root {
		return "/files"
	}
	return "/files?path=" + url.QueryEscape(dir)
}

// DownloadURL links to the streamed download of file.
func DownloadURL(file string) string {
	return "/files/download?path=" + url.QueryEscape(NormalizePath(file))
}

// validFolderName rejects names that would escape or nest.
func validFolderName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
