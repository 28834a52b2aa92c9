package apiclient

import (
	"encoding/json"
	"fmt"
	"math"
)

// Page is one page of an entity listing.
type Page struct {
	Items      []Record
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// Stats is the summary returned by an entity's /stats endpoint.
type Stats map[string]any

var itemKeys = []string{"items", "data", "results", "records"}

var (
	totalKeys      = []string{"total", "total_items", "totalItems", "total_count", "count"}
	totalPagesKeys = []string{"total_pages", "totalPages", "pages"}
	pageKeys       = []string{"page", "current_page", "currentPage"}
)

// decodePage accepts the envelope shapes used across the Dennislaw admin
// endpoints: items under a generic or entity-named key, totals at the top
// level or inside a "pagination" object, or a bare array.
func decodePage(body []byte, entity string, q ListQuery) (Page, error) {
	page := Page{Page: q.Page, Limit: q.Limit}
	if page.Page < 1 {
		page.Page = 1
	}

	var bare []Record
	if err := json.Unmarshal(body, &bare); err == nil {
		page.Items = bare
		page.Total = len(bare)
		page.TotalPages = 1
		return page, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Page{}, fmt.Errorf("api: decode %s list: %w", entity, err)
	}

	found := false
	for _, key := range append([]string{entity}, itemKeys...) {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var items []Record
		if err := json.Unmarshal(raw, &items); err != nil {
			continue
		}
		page.Items = items
		found = true
		break
	}
	if !found {
		for _, key := range sortedRawKeys(envelope) {
			var items []Record
			if err := json.Unmarshal(envelope[key], &items); err == nil {
				page.Items = items
				found = true
				break
			}
		}
	}
	if !found {
		return Page{}, fmt.Errorf("api: %s list response has no items", entity)
	}

	meta := envelope
	if raw, ok := envelope["pagination"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil {
			meta = nested
		}
	}
	if n, ok := readInt(meta, totalKeys); ok {
		page.Total = n
	} else {
		page.Total = len(page.Items)
	}
	if n, ok := readInt(meta, pageKeys); ok && n > 0 {
		page.Page = n
	}
	if n, ok := readInt(meta, []string{"limit", "per_page", "page_size"}); ok && n > 0 {
		page.Limit = n
	}
	if n, ok := readInt(meta, totalPagesKeys); ok {
		page.TotalPages = n
	}
	if page.TotalPages <= 0 {
		page.TotalPages = 1
		if page.Limit > 0 && page.Total > 0 {
			page.TotalPages = int(math.Ceil(float64(page.Total) / float64(page.Limit)))
		}
	}
	return page, nil
}

func decodeStats(body []byte, entity string) (Stats, error) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("api: decode %s stats: %w", entity, err)
	}
	for _, key := range []string{"stats", "data"} {
		if nested, ok := envelope[key].(map[string]any); ok {
			return Stats(nested), nil
		}
	}
	return Stats(envelope), nil
}

func readInt(m map[string]json.RawMessage, keys []string) (int, bool) {
	for _, key := range keys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func sortedRawKeys(m map[string]json.RawMessage) []string {
	plain := make(map[string]any, len(m))
	for k := range m {
		plain[k] = nil
	}
	return sortedKeys(plain)
}
