package apiclient

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Param is one query parameter. Order is preserved when encoding.
type Param struct {
	Key   string
	Value string
}

// Query is an ordered list of query parameters. url.Values sorts its keys,
// which would reorder page/limit/search after the entity filters.
type Query []Param

// Add appends a parameter.
func (q Query) Add(key, value string) Query {
	return append(q, Param{Key: key, Value: value})
}

// Get returns the first value for key.
func (q Query) Get(key string) string {
	for _, p := range q {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Encode renders the query in insertion order.
func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// ListQuery selects one page of an entity listing.
type ListQuery struct {
	Page    int
	Limit   int
	Search  string
	Filters Query
}

// Query encodes the listing as page, limit, search and then the filters in
// the order given; empty search and filter values are omitted.
func (q ListQuery) Query() Query {
	page := q.Page
	if page < 1 {
		page = 1
	}
	out := Query{}.Add("page", strconv.Itoa(page))
	if q.Limit > 0 {
		out = out.Add("limit", strconv.Itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		out = out.Add("search", s)
	}
	for _, f := range q.Filters {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		out = out.Add(f.Key, f.Value)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
