package cache

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail error
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[key] = value
	return nil
}

func (m *memStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func sortedFields(q string) []string {
	terms := strings.Fields(strings.ToLower(q))
	sort.Strings(terms)
	return terms
}

func sampleResult(query string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     query,
		Terms:     sortedFields(query),
		TotalHits: 1,
		Results:   []executor.Hit{{DocID: 4, Score: 1.25, Snippet: "Go Go Go"}},
		TermStats: map[string]int{"go": 4},
	}
}

func TestKeyNormalization(t *testing.T) {
	c := New(newMemStore(), time.Minute, "fp1", sortedFields, nil)
	if c.Key("go python", 5) != c.Key("Python  GO", 5) {
		t.Error("term order and case should not change the key")
	}
	if c.Key("go go python", 5) == c.Key("go python", 5) {
		t.Error("repeated terms change the score and must change the key")
	}
	if c.Key("go", 5) == c.Key("go", 10) {
		t.Error("limit must be part of the key")
	}
	other := New(newMemStore(), time.Minute, "fp2", sortedFields, nil)
	if c.Key("go", 5) == other.Key("go", 5) {
		t.Error("different engines must not share keys")
	}
	if !strings.HasPrefix(c.Key("go", 5), keyPrefix+"fp1:") {
		t.Errorf("key %q not namespaced", c.Key("go", 5))
	}
}

func TestGetOrComputeRoundTrip(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(newMemStore(), time.Minute, "fp", sortedFields, metrics.New(reg))
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return sampleResult("go"), nil
	}

	first, hit, err := c.GetOrCompute(context.Background(), "go", 5, compute)
	if err != nil || hit {
		t.Fatalf("first call hit=%v err=%v", hit, err)
	}
	second, hit, err := c.GetOrCompute(context.Background(), "GO", 5, compute)
	if err != nil || !hit {
		t.Fatalf("second call hit=%v err=%v", hit, err)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if second.Results[0] != first.Results[0] || second.TermStats["go"] != 4 || second.TotalHits != 1 {
		t.Errorf("cached result = %+v, want %+v", second, first)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Breaker != "closed" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGetOrComputeSingleflight(t *testing.T) {
	c := New(newMemStore(), time.Minute, "fp", sortedFields, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return sampleResult("go"), nil
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.GetOrCompute(context.Background(), "go", 5, compute); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Errorf("compute calls = %d, want 1", n)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	c := New(newMemStore(), time.Minute, "fp", sortedFields, nil)
	boom := errors.New("boom")
	if _, _, err := c.GetOrCompute(context.Background(), "go", 5, func() (*executor.SearchResult, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if _, ok := c.Get(context.Background(), "go", 5); ok {
		t.Error("failed computation must not be cached")
	}
}

func TestStoreFailuresOpenBreaker(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection refused")
	c := New(store, time.Minute, "fp", sortedFields, nil)
	for i := 0; i < 6; i++ {
		result, hit, err := c.GetOrCompute(context.Background(), "go", 5, func() (*executor.SearchResult, error) {
			return sampleResult("go"), nil
		})
		if err != nil || hit || result == nil {
			t.Fatalf("store failure must fall back to compute: hit=%v err=%v", hit, err)
		}
	}
	if got := c.Stats().Breaker; got != "open" {
		t.Errorf("breaker = %s, want open", got)
	}
}

func TestInvalidateNamespace(t *testing.T) {
	store := newMemStore()
	a := New(store, time.Minute, "fpA", sortedFields, nil)
	b := New(store, time.Minute, "fpB", sortedFields, nil)
	a.Set(context.Background(), "go", 5, sampleResult("go"))
	a.Set(context.Background(), "python", 5, sampleResult("python"))
	b.Set(context.Background(), "go", 5, sampleResult("go"))

	deleted, err := a.Invalidate(context.Background())
	if err != nil || deleted != 2 {
		t.Errorf("deleted=%d err=%v, want 2", deleted, err)
	}
	if _, ok := b.Get(context.Background(), "go", 5); !ok {
		t.Error("other namespace should survive invalidation")
	}
}
