package crud

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dennislaw/svd-console/internal/apiclient"
)

// MaxLimit caps the page size a visitor may request.
const MaxLimit = 100

// ListState is the pagination and filter state of a list screen. It lives in
// the query string so every link and redirect carries it.
type ListState struct {
	Page    int
	Limit   int
	Search  string
	Filters apiclient.Query
}

// ParseListState reads the state from q. Only the resource's own filters are
// kept, in declaration order.
func ParseListState(res Resource, q url.Values, defaultLimit int) ListState {
	state := ListState{
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), defaultLimit),
		Search: strings.TrimSpace(q.Get("search")),
	}
	if state.Page < 1 {
		state.Page = 1
	}
	if state.Limit < 1 {
		state.Limit = defaultLimit
	}
	if state.Limit > MaxLimit {
		state.Limit = MaxLimit
	}
	for _, f := range res.Filters {
		if v := strings.TrimSpace(q.Get(f.Param)); v != "" {
			state.Filters = state.Filters.Add(f.Param, v)
		}
	}
	return state
}

func atoiDefault(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

// ListQuery converts the state into the API request.
func (s ListState) ListQuery() apiclient.ListQuery {
	return apiclient.ListQuery{Page: s.Page, Limit: s.Limit, Search: s.Search, Filters: s.Filters}
}

// Encode renders page, limit, search and the filters in order.
func (s ListState) Encode() string {
	return s.ListQuery().Query().Encode()
}

// URL returns base with the encoded state.
func (s ListState) URL(base string) string {
	return base + "?" + s.Encode()
}

// FilterValue returns the active value of a filter.
func (s ListState) FilterValue(param string) string {
	return s.Filters.Get(param)
}

// WithPage moves to page n, keeping search and filters.
func (s ListState) WithPage(n int) ListState {
	if n < 1 {
		n = 1
	}
	s.Filters = append(apiclient.Query(nil), s.Filters...)
	s.Page = n
	return s
}

// WithSearch changes the search term and returns to the first page.
func (s ListState) WithSearch(term string) ListState {
	s.Filters = append(apiclient.Query(nil), s.Filters...)
	s.Search = strings.TrimSpace(term)
	s.Page = 1
	return s
}

// WithFilter sets or clears one filter and returns to the first page.
func (s ListState) WithFilter(param, value string) ListState {
	value = strings.TrimSpace(value)
	next := make(apiclient.Query, 0, len(s.Filters)+1)
	replaced := false
	for _, p := range s.Filters {
		if p.Key != param {
			next = append(next, p)
			continue
		}
		replaced = true
		if value != "" {
			next = append(next, apiclient.Param{Key: param, Value: value})
		}
	}
	if !replaced && value != "" {
		next = append(next, apiclient.Param{Key: param, Value: value})
	}
	s.Filters = next
	s.Page = 1
	return s
}

// Filtered reports whether a search or filter is active.
func (s ListState) Filtered() bool {
	return s.Search != "" || len(s.Filters) > 0
}
