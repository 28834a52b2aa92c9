// Package pages renders the static Services and Specification pages.
package pages

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Page is one content page loaded from YAML.
type Page struct {
	Key      string    `yaml:"-"`
	Title    string    `yaml:"title"`
	Intro    string    `yaml:"intro"`
	Sections []Section `yaml:"sections"`
	Contact  string    `yaml:"contact"`
}

// Section is a headed block of a page.
type Section struct {
	Heading    string   `yaml:"heading"`
	Paragraphs []string `yaml:"paragraphs"`
	Items      []Item   `yaml:"items"`
	Table      *Table   `yaml:"table"`
}

// Item is one bullet, optionally with a bold title.
type Item struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// Table is a simple grid of strings.
type Table struct {
	Columns []string   `yaml:"columns"`
	Rows    [][]string `yaml:"rows"`
}

// ErrNotFound is returned for unknown page keys.
var ErrNotFound = errors.New("pages: not found")

// Library holds the parsed pages keyed by file name without extension.
type Library struct {
	pages map[string]Page
}

// Load parses every content/*.yaml file of fsys. Unknown keys are rejected.
func Load(fsys fs.FS) (*Library, error) {
	matches, err := fs.Glob(fsys, "content/*.yaml")
	if err != nil {
		return nil, err
	}
	lib := &Library{pages: make(map[string]Page, len(matches))}
	for _, name := range matches {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var page Page
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&page); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		page.Key = strings.TrimSuffix(path.Base(name), path.Ext(name))
		if err := page.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		lib.pages[page.Key] = page
	}
	return lib, nil
}

func (p Page) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title is required")
	}
	for i, s := range p.Sections {
		if s.Table == nil {
			continue
		}
		for j, row := range s.Table.Rows {
			if len(row) != len(s.Table.Columns) {
				return fmt.Errorf("section %d row %d has %d cells, want %d", i, j, len(row), len(s.Table.Columns))
			}
		}
	}
	return nil
}

// Page returns the page stored under key.
func (l *Library) Page(key string) (Page, error) {
	if l == nil {
		return Page{}, ErrNotFound
	}
	page, ok := l.pages[key]
	if !ok {
		return Page{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return page, nil
}
