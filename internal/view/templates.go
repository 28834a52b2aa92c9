package view

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
	nav       []NavItem
}

// NavItem is one entry of the console sidebar.
type NavItem struct {
	Label     string
	Href      string
	Active    bool
	AdminOnly bool
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	// RequestURI is the current path with its query, used as return_to.
	RequestURI string
	Identity    *shared.Identity
	Theme       string
	Nav         []NavItem
	Data        any
}

var (
	printer   = message.NewPrinter(language.English)
	titleCase = cases.Title(language.English)
)

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(FuncMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// WithNavigation sets the sidebar entries rendered on every page.
func (e *Engine) WithNavigation(items []NavItem) *Engine {
	e.nav = append([]NavItem(nil), items...)
	return e
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	if data.Nav == nil {
		data.Nav = e.navigation(data.CurrentPath, data.Identity)
	}
	if data.Theme == "" {
		data.Theme = shared.ThemeLight
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

func (e *Engine) navigation(current string, identity *shared.Identity) []NavItem {
	items := make([]NavItem, 0, len(e.nav))
	for _, item := range e.nav {
		if item.AdminOnly && (identity == nil || !identity.IsAdmin()) {
			continue
		}
		item.Active = current == item.Href || (item.Href != "/admin" && strings.HasPrefix(current, item.Href+"/"))
		items = append(items, item)
	}
	return items
}

// NewTemplateData fills the per-request fields every page needs. The caller
// adds the CSRF token, flash and page data.
func NewTemplateData(r *http.Request, title string) TemplateData {
	sess := shared.SessionFromContext(r.Context())
	data := TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		RequestURI:  r.URL.RequestURI(),
		Theme:       shared.NormalizeTheme(sess.Get(shared.SessionKeyTheme)),
	}
	if identity, ok := sess.Identity(); ok {
		data.Identity = &identity
	}
	return data
}

// FuncMap returns the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":   FormatDate,
		"formatNumber": FormatNumber,
		"bytes": func(n int64) string {
			if n < 0 {
				return "-"
			}
			return humanize.Bytes(uint64(n))
		},
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return humanize.Time(t)
		},
		"title": titleCase.String,
		"add":   func(a, b int) int { return a + b },
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			out := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
				}
				out[key] = pairs[i+1]
			}
			return out, nil
		},
	}
}

// FormatDate renders time values and RFC 3339 strings as "02 Jan 2006 15:04".
func FormatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006 15:04")
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.Format("02 Jan 2006 15:04")
			}
		}
		return t
	}
	return ""
}

// FormatNumber groups thousands, e.g. 12345 -> "12,345".
func FormatNumber(v any) string {
	switch n := v.(type) {
	case int:
		return printer.Sprintf("%d", n)
	case int64:
		return printer.Sprintf("%d", n)
	case float64:
		if n == float64(int64(n)) {
			return printer.Sprintf("%d", int64(n))
		}
		return printer.Sprintf("%.2f", n)
	}
	return fmt.Sprint(v)
}
