package crud

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/shared"
	"github.com/dennislaw/svd-console/internal/view"
)

// Cell is one formatted table cell.
type Cell struct {
	Value string
	Kind  ColumnKind
}

// Badge reports whether the cell renders as a status pill.
func (c Cell) Badge() bool { return c.Kind == KindBadge }

// Row is one record of the current page.
type Row struct {
	ID     string
	Cells  []Cell
	Fields []apiclient.Field
	Active bool
	Record apiclient.Record
}

// StatCard is one figure of the stats strip.
type StatCard struct {
	Label string
	Value string
}

// PageLink is one entry of the pager.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// FilterControl is a filter select with its active value.
type FilterControl struct {
	Filter   Filter
	Selected string
}

// FieldView is one form input with its value and error.
type FieldView struct {
	Field
	Value string
	Error string
}

// FormView is the create/edit overlay.
type FormView struct {
	Creating bool
	RecordID string
	Action   string
	Fields   []FieldView
	General  string

	// SubmitKey identifies one create form across re-renders.
	SubmitKey string
}

// ListView is everything the list template renders.
type ListView struct {
	Resource   Resource
	State      ListState
	ListPath   string
	ActionPath string
	ReturnTo   string
	Loaded     bool
	Error      string
	Rows       []Row
	Pagination shared.Pagination
	PageLinks  []PageLink
	PrevURL    string
	NextURL    string
	FirstURL   string
	Controls   []FilterControl
	Stats      []StatCard
	// StatsUnavailable is set when the stats endpoint failed.
	StatsUnavailable bool
	Viewing          *Row
	Deleting         *Row
	Form             *FormView
	CloseURL         string
	ExportURL        string
}

// Headers returns the column titles.
func (v ListView) Headers() []string {
	out := make([]string, 0, len(v.Resource.Columns))
	for _, c := range v.Resource.Columns {
		out = append(out, c.Header())
	}
	return out
}

// ViewURL opens the detail overlay for id.
func (v ListView) ViewURL(id string) string {
	return v.State.URL(v.ListPath) + "&view=" + url.QueryEscape(id)
}

// EditURL opens the edit overlay for id.
func (v ListView) EditURL(id string) string {
	return v.State.URL(v.ListPath) + "&edit=" + url.QueryEscape(id)
}

// DeleteURL opens the delete confirmation for id.
func (v ListView) DeleteURL(id string) string {
	return v.State.URL(v.ListPath) + "&confirm_delete=" + url.QueryEscape(id)
}

// NewURL opens the create overlay.
func (v ListView) NewURL() string {
	return v.State.URL(v.ListPath) + "&new=1"
}

// DeleteAction is the form target that deletes id.
func (v ListView) DeleteAction(id string) string {
	return v.ActionPath + "/" + url.PathEscape(id) + "/delete"
}

// StatusAction is the form target that toggles the status of id.
func (v ListView) StatusAction(id string) string {
	return v.ActionPath + "/" + url.PathEscape(id) + "/status"
}

func buildRows(res Resource, items []apiclient.Record) []Row {
	rows := make([]Row, 0, len(items))
	for _, rec := range items {
		rows = append(rows, buildRow(res, rec))
	}
	return rows
}

func buildRow(res Resource, rec apiclient.Record) Row {
	row := Row{ID: rec.ID(), Record: rec, Active: isActive(rec)}
	for _, col := range res.Columns {
		row.Cells = append(row.Cells, Cell{Value: formatCell(rec, col), Kind: col.Kind})
	}
	row.Fields = rec.Flatten()
	return row
}

// Cells formats rec column by column the way the list table shows it.
func (r Resource) Cells(rec apiclient.Record) []string {
	out := make([]string, 0, len(r.Columns))
	for _, col := range r.Columns {
		out = append(out, formatCell(rec, col))
	}
	return out
}

func isActive(rec apiclient.Record) bool {
	if status := strings.ToLower(rec.String("status")); status != "" {
		return status == "active"
	}
	return rec.Bool("is_active")
}

func formatCell(rec apiclient.Record, col Column) string {
	raw, ok := rec.Lookup(col.Path)
	if !ok || raw == nil {
		return apiclient.NotAvailable
	}
	switch col.Kind {
	case KindDate:
		if s := view.FormatDate(raw); s != "" {
			return s
		}
	case KindNumber:
		switch n := raw.(type) {
		case float64:
			return view.FormatNumber(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return view.FormatNumber(f)
			}
		}
	case KindBadge:
		if s := rec.String(col.Path); s != "" {
			return Label(strings.ToLower(s))
		}
	case KindBool:
		if rec.Bool(col.Path) {
			return "Yes"
		}
		return "No"
	}
	return rec.Display(col.Path)
}

// StatCards flattens a stats object into labelled figures, one level deep.
func StatCards(stats apiclient.Stats) []StatCard {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var cards []StatCard
	for _, key := range keys {
		switch v := stats[key].(type) {
		case map[string]any:
			sub := make([]string, 0, len(v))
			for k := range v {
				sub = append(sub, k)
			}
			sort.Strings(sub)
			for _, k := range sub {
				if value, ok := statValue(v[k]); ok {
					cards = append(cards, StatCard{Label: Label(key + "_" + k), Value: value})
				}
			}
		default:
			if value, ok := statValue(v); ok {
				cards = append(cards, StatCard{Label: Label(key), Value: value})
			}
		}
	}
	return cards
}

func statValue(v any) (string, bool) {
	switch n := v.(type) {
	case float64:
		return view.FormatNumber(n), true
	case string:
		return n, n != ""
	case bool:
		if n {
			return "Yes", true
		}
		return "No", true
	}
	return "", false
}

func pageLinks(state ListState, p shared.Pagination, base string) []PageLink {
	window := p.Window(7)
	links := make([]PageLink, 0, len(window))
	for _, n := range window {
		links = append(links, PageLink{Number: n, URL: state.WithPage(n).URL(base), Current: n == p.Page})
	}
	return links
}
