package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/crud"
)

type stubStats struct {
	mu       sync.Mutex
	calls    map[string]int
	fail     map[string]error
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *stubStats) Stats(ctx context.Context, token, entity string) (apiclient.Stats, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[entity]++
	s.mu.Unlock()
	if err := s.fail[entity]; err != nil {
		return nil, err
	}
	return apiclient.Stats{"total_" + entity: float64(len(entity) * 100), "active": float64(3)}, nil
}

func testResources() []crud.Resource {
	keys := []string{"users", "cases", "people", "banks", "insurance", "companies", "payments"}
	out := make([]crud.Resource, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, crud.Resource{Key: k, Title: strings.ToUpper(k[:1]) + k[1:], Stats: true})
	}
	return append(out, crud.Resource{Key: "settings", Title: "Settings"})
}

func TestOverviewIsolatesFailures(t *testing.T) {
	api := &stubStats{fail: map[string]error{"banks": errors.New("connection reset")}}
	svc := NewService(nil, api, testResources())

	ov := svc.Overview(context.Background(), "tok")
	require.Len(t, ov.Summaries, 7, "settings has no stats endpoint")
	assert.Equal(t, 1, ov.Failed)

	for _, sum := range ov.Summaries {
		if sum.Entity == "banks" {
			assert.True(t, sum.Failed())
			assert.Equal(t, "unavailable", sum.Error)
			continue
		}
		assert.False(t, sum.Failed(), sum.Entity)
		assert.True(t, sum.HasTotal, sum.Entity)
		assert.Equal(t, float64(len(sum.Entity)*100), sum.Total)
	}
	assert.Equal(t, "users", ov.Summaries[0].Entity, "summaries keep sidebar order")
	assert.False(t, ov.Unauthorized())
}

func TestOverviewBoundsConcurrency(t *testing.T) {
	api := &stubStats{delay: 20 * time.Millisecond}
	svc := NewService(nil, api, testResources())
	svc.Overview(context.Background(), "tok")
	assert.LessOrEqual(t, int(api.peak.Load()), maxConcurrentStats)
	assert.Equal(t, 1, api.calls["payments"])
}

func TestOverviewDetectsExpiredToken(t *testing.T) {
	api := &stubStats{fail: map[string]error{"users": &apiclient.APIError{Status: 401}}}
	ov := NewService(nil, api, testResources()).Overview(context.Background(), "expired")
	assert.True(t, ov.Unauthorized())
}

func TestTotalOf(t *testing.T) {
	n, ok := totalOf("cases", apiclient.Stats{"total": float64(9), "total_cases": float64(4)})
	assert.True(t, ok)
	assert.Equal(t, float64(9), n)

	n, ok = totalOf("payments", apiclient.Stats{"total_revenue": float64(5000), "completed": float64(10)})
	assert.True(t, ok)
	assert.Equal(t, float64(5000), n)

	_, ok = totalOf("settings", apiclient.Stats{"categories": []any{"general"}})
	assert.False(t, ok)
}

func TestBarsRendersOneRowPerLabel(t *testing.T) {
	html, err := Bars([]float64{1200, 40}, []string{"Cases", "Banks & Co"}, ChartOpts{Title: "Records"})
	require.NoError(t, err)
	out := string(html)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Equal(t, 2, strings.Count(out, "<rect"))
	assert.Contains(t, out, "Banks &amp; Co")
	assert.Contains(t, out, "1.2k")

	_, err = Bars([]float64{1}, nil, ChartOpts{})
	assert.Error(t, err)
}

func TestSharedStatsLoadSurvivesCancelledCaller(t *testing.T) {
	api := &stubStats{delay: 200 * time.Millisecond}
	svc := NewService(nil, api, testResources())

	cancelled, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.stats(cancelled, "tok", "banks")
		first <- err
	}()
	require.Eventually(t, func() bool { return api.inFlight.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	stats, err := svc.stats(context.Background(), "tok", "banks")
	require.NoError(t, err)
	assert.Equal(t, float64(500), stats["total_banks"])
	require.NoError(t, <-first)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, 1, api.calls["banks"])
}

func TestScreensKeepEntitiesWithoutStats(t *testing.T) {
	svc := NewService(nil, &stubStats{}, testResources())
	assert.Len(t, svc.Resources(), 7)
	require.Len(t, svc.Screens(), 8)
	assert.Equal(t, "settings", svc.Screens()[7].Key)
}
