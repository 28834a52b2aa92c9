// Package dashboard builds the admin overview from every entity's stats.
package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/crud"
)

// maxConcurrentStats bounds the stats requests in flight per overview.
const maxConcurrentStats = 4

// StatsAPI fetches the stats object of one entity.
type StatsAPI interface {
	Stats(ctx context.Context, token, entity string) (apiclient.Stats, error)
}

// Summary is the overview card of one entity.
type Summary struct {
	Entity   string           `json:"entity"`
	Title    string           `json:"title"`
	Path     string           `json:"path"`
	Total    float64          `json:"total"`
	HasTotal bool             `json:"has_total"`
	Stats    apiclient.Stats  `json:"stats,omitempty"`
	Cards    []crud.StatCard  `json:"-"`
	Error    string           `json:"error,omitempty"`
	err      error
}

// Failed reports whether the stats call for this entity failed.
func (s Summary) Failed() bool {
	return s.err != nil
}

// Overview aggregates the summaries in sidebar order.
type Overview struct {
	Summaries []Summary `json:"summaries"`
	Failed    int       `json:"failed"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Unauthorized reports whether any call was rejected for the access token.
func (o Overview) Unauthorized() bool {
	for _, s := range o.Summaries {
		if apiclient.IsUnauthorized(s.err) {
			return true
		}
	}
	return false
}

// Service loads the overview.
type Service struct {
	api       StatsAPI
	resources []crud.Resource
	screens   []crud.Resource
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewService constructs the overview service for resources with stats.
func NewService(logger *slog.Logger, api StatsAPI, resources []crud.Resource) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	withStats := make([]crud.Resource, 0, len(resources))
	for _, res := range resources {
		if res.Stats {
			withStats = append(withStats, res)
		}
	}
	return &Service{api: api, resources: withStats, screens: resources, logger: logger, now: time.Now}
}

// Resources lists the entities shown on the overview.
func (s *Service) Resources() []crud.Resource {
	return s.resources
}

// Screens lists every entity screen, with or without stats.
func (s *Service) Screens() []crud.Resource {
	return s.screens
}

// Overview requests every stats endpoint concurrently. A failed call only
// marks its own card as unavailable.
func (s *Service) Overview(ctx context.Context, token string) Overview {
	summaries := make([]Summary, len(s.resources))
	var g errgroup.Group
	g.SetLimit(maxConcurrentStats)
	for i, res := range s.resources {
		g.Go(func() error {
			summaries[i] = s.summary(ctx, token, res)
			return nil
		})
	}
	_ = g.Wait()

	out := Overview{Summaries: summaries, LoadedAt: s.now()}
	for _, sum := range summaries {
		if sum.err != nil {
			out.Failed++
		}
	}
	return out
}

func (s *Service) summary(ctx context.Context, token string, res crud.Resource) Summary {
	sum := Summary{Entity: res.Key, Title: res.Title, Path: res.Path()}
	stats, err := s.stats(ctx, token, res.Key)
	if err != nil {
		s.logger.Warn("overview stats", slog.String("resource", res.Key), slog.Any("error", err))
		sum.err = err
		sum.Error = "unavailable"
		return sum
	}
	sum.Stats = stats
	sum.Cards = crud.StatCards(stats)
	sum.Total, sum.HasTotal = totalOf(res.Key, stats)
	return sum
}

// stats collapses concurrent identical loads, e.g. the overview page and the
// JSON endpoint polled by the same user.
func (s *Service) stats(ctx context.Context, token, entity string) (apiclient.Stats, error) {
	// The shared call outlives any one caller; the client timeout bounds it.
	detached := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(token+"|"+entity, func() (any, error) {
		return s.api.Stats(detached, token, entity)
	})
	if err != nil {
		return nil, err
	}
	stats, _ := v.(apiclient.Stats)
	return stats, nil
}

// totalOf finds the headline count of a stats object.
func totalOf(entity string, stats apiclient.Stats) (float64, bool) {
	for _, key := range []string{"total", "total_" + entity, "total_count", "count"} {
		if n, ok := stats[key].(float64); ok {
			return n, true
		}
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		if strings.HasPrefix(k, "total") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if n, ok := stats[k].(float64); ok {
			return n, true
		}
	}
	return 0, false
}
