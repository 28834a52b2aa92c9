package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	mu       sync.Mutex
	requests []string
	auth     []string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.RequestURI())
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/admin/banks/stats":
		_ = json.NewEncoder(w).Encode(map[string]any{"total_banks": 1234})
	case strings.HasSuffix(r.URL.Path, "/stats"):
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"stats offline"}`))
	case r.URL.Path == "/api/admin/banks" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": 5, "name": "Ghana Commercial Bank", "short_name": "GCB", "bank_type": "commercial", "total_cases": 1200},
			},
			"total":       1,
			"total_pages": 1,
		})
	case r.URL.Path == "/api/admin/banks/5" && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/api/files/repository":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"path":    "/",
			"folders": []map[string]any{{"name": "judgments"}},
			"files":   []map[string]any{{"name": "index.pdf", "size": 2048, "modified_at": "2024-05-01T10:00:00Z"}},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found"}`))
	}
}

func (b *backend) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func execute(t *testing.T, args ...string) (*backend, string, error) {
	t.Helper()
	be := &backend{}
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	var stdout, stderr bytes.Buffer
	full := append([]string{"--api-url", srv.URL, "--token", "tok"}, args...)
	err := run(context.Background(), full, &stdout, &stderr)
	return be, stdout.String(), err
}

func TestListSendsOrderedQuery(t *testing.T) {
	be, out, err := execute(t, "list", "banks", "--page", "2", "--search", "Ghana", "--filter", "bank_type=commercial")
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /api/admin/banks?page=2&limit=10&search=Ghana&bank_type=commercial"}, be.seen())
	assert.Equal(t, "Bearer tok", be.auth[0])
	assert.Contains(t, out, "Ghana Commercial Bank")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "page 1 of 1, 1 records")
}

func TestListRejectsUndeclaredFilter(t *testing.T) {
	be, _, err := execute(t, "list", "banks", "--filter", "role=admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `banks cannot be filtered by "role"`)
	assert.Empty(t, be.seen())
}

func TestListUnknownEntity(t *testing.T) {
	_, _, err := execute(t, "list", "judges")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown entity "judges"`)
}

func TestListCSV(t *testing.T) {
	_, out, err := execute(t, "-o", "csv", "list", "banks")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Name,Code,Type"))
	assert.True(t, strings.HasPrefix(lines[1], "5,Ghana Commercial Bank,GCB,"))
}

func TestStatsForOneEntity(t *testing.T) {
	_, out, err := execute(t, "stats", "banks")
	require.NoError(t, err)
	assert.Contains(t, out, "1,234")
}

func TestStatsOverviewKeepsFailures(t *testing.T) {
	_, out, err := execute(t, "-o", "json", "stats")
	require.NoError(t, err)

	var overview struct {
		Summaries []struct {
			Entity string  `json:"entity"`
			Total  float64 `json:"total"`
			Error  string  `json:"error"`
		} `json:"summaries"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &overview))
	require.NotEmpty(t, overview.Summaries)
	assert.Positive(t, overview.Failed)
	for _, s := range overview.Summaries {
		if s.Entity == "banks" {
			assert.Equal(t, float64(1234), s.Total)
			assert.Empty(t, s.Error)
		} else {
			assert.NotEmpty(t, s.Error)
		}
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	be, _, err := execute(t, "delete", "banks", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without --yes")
	assert.Empty(t, be.seen())

	be, out, err := execute(t, "delete", "banks", "5", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"DELETE /api/admin/banks/5"}, be.seen())
	assert.Equal(t, "Bank 5 deleted\n", out)
}

func TestFilesLs(t *testing.T) {
	be, out, err := execute(t, "files", "ls")
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /api/files/repository?path=%2F"}, be.seen())
	assert.Contains(t, out, "judgments")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "2024-05-01 10:00:00")
}

func TestMissingToken(t *testing.T) {
	t.Setenv("SVD_API_TOKEN", "")
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--api-url", "http://127.0.0.1:1", "stats"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")
}
