package search

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookhub/internal/cache"
	"bookhub/internal/crawler"
	"bookhub/internal/match"
	"bookhub/internal/platform"
	"bookhub/internal/resolver"
	"bookhub/pkg/database"
	"bookhub/pkg/models"
)

type countingAdapter struct {
	desc     models.PlatformDescriptor
	searches atomic.Int64
}

func (f *countingAdapter) Descriptor() models.PlatformDescriptor { return f.desc }

func (f *countingAdapter) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	f.searches.Add(1)
	return []models.RawCandidate{{Title: "test book", URL: "https://example.com/1"}}, nil
}

func (f *countingAdapter) FetchDetail(ctx context.Context, c models.RawCandidate) (platform.Detail, error) {
	raw := 8.0
	return platform.Detail{RawRating: &raw, ReviewCount: 5}, nil
}

func newTestService(t *testing.T) (*Service, *countingAdapter, *cache.Gateway) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`PRAGMA foreign_keys = ON;`)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })

	adapter := &countingAdapter{
		desc: models.PlatformDescriptor{ID: "fake", Group: models.GroupNetwork, Scale: 10},
	}
	registry := platform.NewRegistry()
	require.NoError(t, registry.Register(adapter))

	matcher := match.New(nil, 0.5)
	orch := crawler.New(registry, matcher, time.Second)
	gateway := cache.New(db)
	res := resolver.New(nil, matcher, resolver.NewISBNLookup("test", "", time.Second))

	return NewService(orch, gateway, res, registry, nil), adapter, gateway
}

func drain(t *testing.T, events <-chan crawler.Event) []crawler.Event {
	t.Helper()
	var out []crawler.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRunCrawlsAndStores(t *testing.T) {
	svc, adapter, gateway := newTestService(t)
	ctx := context.Background()

	events, err := svc.Run(ctx, Request{Query: "  test   book "})
	require.NoError(t, err)
	got := drain(t, events)

	require.Len(t, got, 2)
	require.Equal(t, crawler.EventPlatformResult, got[0].Type)
	require.Equal(t, crawler.EventDone, got[1].Type)
	require.Equal(t, crawler.SourceCrawl, got[1].Source)
	require.EqualValues(t, 1, adapter.searches.Load())

	// stored under the normalized query
	summary, ratings, err := gateway.Lookup(ctx, "test book")
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Equal(t, got[1].Summary.ExecutionID, summary.ExecutionID)
	require.Len(t, ratings, 1)
}

func TestRunReplaysFromCache(t *testing.T) {
	svc, adapter, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Run(ctx, Request{Query: "test book"})
	require.NoError(t, err)
	drain(t, first)
	require.EqualValues(t, 1, adapter.searches.Load())

	// differently-spaced query hits the same cache entry
	second, err := svc.Run(ctx, Request{Query: "test    book"})
	require.NoError(t, err)
	got := drain(t, second)

	require.EqualValues(t, 1, adapter.searches.Load(), "cache hit must not crawl")
	require.Len(t, got, 2)
	require.Equal(t, crawler.SourceCache, got[0].Source)
	require.Equal(t, crawler.SourceCache, got[1].Source)
}

func TestForceRefreshSupersedesCache(t *testing.T) {
	svc, adapter, gateway := newTestService(t)
	ctx := context.Background()

	first, err := svc.Run(ctx, Request{Query: "test book"})
	require.NoError(t, err)
	firstEvents := drain(t, first)
	firstID := firstEvents[len(firstEvents)-1].Summary.ExecutionID

	second, err := svc.Run(ctx, Request{Query: "test book", ForceRefresh: true})
	require.NoError(t, err)
	secondEvents := drain(t, second)
	secondID := secondEvents[len(secondEvents)-1].Summary.ExecutionID

	require.EqualValues(t, 2, adapter.searches.Load())
	require.NotEqual(t, firstID, secondID)

	summary, _, err := gateway.Lookup(ctx, "test book")
	require.NoError(t, err)
	require.Equal(t, secondID, summary.ExecutionID)

	history, err := gateway.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestRunRejectsBadRequests(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, Request{Query: " "})
	require.ErrorIs(t, err, crawler.ErrEmptyQuery)

	_, err = svc.Run(ctx, Request{Query: "q", Platforms: []string{}})
	require.ErrorIs(t, err, crawler.ErrEmptySelection)

	_, err = svc.Run(ctx, Request{Query: "q", Platforms: []string{"missing"}})
	require.ErrorIs(t, err, crawler.ErrUnknownPlatform)
}
