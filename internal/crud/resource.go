// Package crud implements the paginated list screen shared by every admin
// entity: one page of records, categorical filters, stats cards and the
// view, edit and delete overlays.
package crud

import (
	"strings"

	"github.com/ettle/strcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ColumnKind selects how a cell is formatted.
type ColumnKind int

// Column kinds.
const (
	KindText ColumnKind = iota
	KindDate
	KindNumber
	KindBadge
	KindBool
)

// Column is one table column, addressed by a dotted path into the record.
type Column struct {
	Path  string
	Label string
	Kind  ColumnKind
}

// Header returns the column title.
func (c Column) Header() string {
	if c.Label != "" {
		return c.Label
	}
	return Label(c.Path)
}

// Option is one choice of a filter or select field.
type Option struct {
	Value string
	Label string
}

// Filter is a categorical list filter sent as a query parameter.
type Filter struct {
	Param   string
	Label   string
	Options []Option
}

// Title returns the filter caption.
func (f Filter) Title() string {
	if f.Label != "" {
		return f.Label
	}
	return Label(f.Param)
}

// FieldType is the HTML input used for a form field.
type FieldType string

// Field types.
const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTel      FieldType = "tel"
	FieldPassword FieldType = "password"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
	FieldCheckbox FieldType = "checkbox"
)

// Field is one input of the create/edit form. Rules use validator tag syntax.
type Field struct {
	Name       string
	Label      string
	Type       FieldType
	Rules      string
	Options    []Option
	CreateOnly bool
}

// Title returns the field caption.
func (f Field) Title() string {
	if f.Label != "" {
		return f.Label
	}
	return Label(f.Name)
}

// Resource describes one admin entity.
type Resource struct {
	// Key is both the console path segment and the API entity name.
	Key         string
	Title       string
	Singular    string
	Description string
	Columns     []Column
	Filters     []Filter
	Stats       bool
	Editable    bool
	// StatusToggle enables PUT /api/admin/{entity}/{id}/status.
	StatusToggle bool
	Fields       []Field
}

// Path is the console URL of the list screen.
func (r Resource) Path() string {
	return "/admin/" + r.Key
}

// SingularTitle names one record, e.g. "Bank".
func (r Resource) SingularTitle() string {
	if r.Singular != "" {
		return r.Singular
	}
	return strings.TrimSuffix(r.Title, "s")
}

// Filter returns the filter bound to param.
func (r Resource) Filter(param string) (Filter, bool) {
	for _, f := range r.Filters {
		if f.Param == param {
			return f, true
		}
	}
	return Filter{}, false
}

var labelCase = cases.Title(language.English)

// Label turns a field path such as "contact.phoneNumber" into "Contact Phone Number".
func Label(path string) string {
	snake := strcase.ToSnake(strings.ReplaceAll(path, ".", "_"))
	words := strings.FieldsFunc(snake, func(r rune) bool { return r == '_' })
	for i, w := range words {
		switch w {
		case "id", "url", "tin":
			words[i] = strings.ToUpper(w)
		default:
			words[i] = labelCase.String(w)
		}
	}
	return strings.Join(words, " ")
}
