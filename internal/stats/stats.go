// Package stats records endpoint hits and reads view counts from the
// external statistics collector.
package stats

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// Hit is one request to a public endpoint.
type Hit struct {
	App       string
	URI       string
	IP        string
	Timestamp time.Time
}

// ViewStats is the hit count of one URI.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// Collector is the contract of the statistics collector.
type Collector interface {
	RecordHit(ctx context.Context, hit Hit) error
	// ViewCounts returns hit counts for uris (all URIs when empty) between
	// start and end inclusive, counting each client address once when
	// unique is set. Results are ordered by hits, highest first.
	ViewCounts(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]ViewStats, error)
}

// Memory is an in-process Collector used when no collector URL is configured.
type Memory struct {
	app  string
	mu   sync.Mutex
	hits []Hit
}

// NewMemory creates an empty in-process collector recording hits under app.
func NewMemory(app string) *Memory {
	return &Memory{app: app}
}

// RecordHit implements Collector.
func (m *Memory) RecordHit(_ context.Context, hit Hit) error {
	if hit.App == "" {
		hit.App = m.app
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits = append(m.hits, hit)
	return nil
}

// ViewCounts implements Collector.
func (m *Memory) ViewCounts(_ context.Context, start, end time.Time, uris []string, unique bool) ([]ViewStats, error) {
	type key struct{ app, uri string }

	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[key]int64)
	seen := make(map[key]map[string]struct{})
	for _, h := range m.hits {
		if h.Timestamp.Before(start) || h.Timestamp.After(end) {
			continue
		}
		if len(uris) > 0 && !slices.Contains(uris, h.URI) {
			continue
		}
		k := key{h.App, h.URI}
		if unique {
			if seen[k] == nil {
				seen[k] = make(map[string]struct{})
			}
			if _, ok := seen[k][h.IP]; ok {
				continue
			}
			seen[k][h.IP] = struct{}{}
		}
		counts[k]++
	}

	out := make([]ViewStats, 0, len(counts))
	for k, n := range counts {
		out = append(out, ViewStats{App: k.app, URI: k.uri, Hits: n})
	}
	slices.SortFunc(out, func(a, b ViewStats) int {
		if c := cmp.Compare(b.Hits, a.Hits); c != 0 {
			return c
		}
		return cmp.Compare(a.URI, b.URI)
	})
	return out, nil
}
