package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookhub/internal/match"
	"bookhub/internal/platform"
	"bookhub/pkg/models"
)

// recorder keeps an ordered trace of adapter activity across goroutines.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(entry string) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, e := range r.snapshot() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

type fakeAdapter struct {
	desc        models.PlatformDescriptor
	rec         *recorder
	searchDelay time.Duration
	searchErr   error
	candidates  []models.RawCandidate
	detail      platform.Detail
	detailErr   error
}

func (f *fakeAdapter) Descriptor() models.PlatformDescriptor { return f.desc }

func (f *fakeAdapter) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	if f.rec != nil {
		f.rec.add("search-start " + f.desc.ID)
	}
	if f.searchDelay > 0 {
		time.Sleep(f.searchDelay)
	}
	if f.rec != nil {
		f.rec.add("search-end " + f.desc.ID)
	}
	return f.candidates, f.searchErr
}

func (f *fakeAdapter) FetchDetail(ctx context.Context, c models.RawCandidate) (platform.Detail, error) {
	return f.detail, f.detailErr
}

func ptr(v float64) *float64 { return &v }

func newFake(id string, group models.ExecutionGroup, order int, rec *recorder) *fakeAdapter {
	return &fakeAdapter{
		desc: models.PlatformDescriptor{ID: id, Group: group, Scale: 10, Order: order},
		rec:  rec,
		candidates: []models.RawCandidate{
			{Title: "test book", URL: "https://example.com/" + id},
		},
		detail: platform.Detail{RawRating: ptr(8.0), ReviewCount: 4},
	}
}

func newOrchestrator(t *testing.T, timeout time.Duration, adapters ...platform.Adapter) *Orchestrator {
	t.Helper()
	reg := platform.NewRegistry()
	for _, a := range adapters {
		require.NoError(t, reg.Register(a))
	}
	return New(reg, match.New(nil, 0.5), timeout)
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRunValidation(t *testing.T) {
	o := newOrchestrator(t, time.Second, newFake("a", models.GroupNetwork, 0, nil))

	_, err := o.Run(context.Background(), Request{Query: "   "})
	require.ErrorIs(t, err, ErrEmptyQuery)

	_, err = o.Run(context.Background(), Request{Query: "q", Platforms: []string{}})
	require.ErrorIs(t, err, ErrEmptySelection)

	_, err = o.Run(context.Background(), Request{Query: "q", Platforms: []string{"nope"}})
	require.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestBrowserGroupFinishesBeforeNetworkStarts(t *testing.T) {
	for run := 0; run < 20; run++ {
		rec := &recorder{}
		b1 := newFake("b1", models.GroupBrowser, 0, rec)
		b2 := newFake("b2", models.GroupBrowser, 1, rec)
		b2.searchDelay = 10 * time.Millisecond
		n1 := newFake("n1", models.GroupNetwork, 2, rec)
		n2 := newFake("n2", models.GroupNetwork, 3, rec)

		o := newOrchestrator(t, time.Second, b1, b2, n1, n2)
		events, err := o.Run(context.Background(), Request{Query: "test book", ExecutionID: fmt.Sprint(run)})
		require.NoError(t, err)
		drain(t, events)

		trace := rec.snapshot()
		lastBrowserEnd, firstNetworkStart := -1, len(trace)
		for i, e := range trace {
			switch {
			case strings.HasPrefix(e, "search-end b"):
				if i > lastBrowserEnd {
					lastBrowserEnd = i
				}
			case strings.HasPrefix(e, "search-start n"):
				if i < firstNetworkStart {
					firstNetworkStart = i
				}
			}
		}
		require.Less(t, lastBrowserEnd, firstNetworkStart,
			"network adapter started before browser group finished: %v", trace)
	}
}

func TestEventSequenceEndsWithSingleDone(t *testing.T) {
	o := newOrchestrator(t, time.Second,
		newFake("b1", models.GroupBrowser, 0, nil),
		newFake("n1", models.GroupNetwork, 1, nil),
	)

	events, err := o.Run(context.Background(), Request{Query: "test book", ExecutionID: "e"})
	require.NoError(t, err)
	got := drain(t, events)

	require.Len(t, got, 3)
	for _, ev := range got[:2] {
		require.Equal(t, EventPlatformResult, ev.Type)
		require.NotNil(t, ev.Rating)
	}
	require.Equal(t, EventDone, got[2].Type)
	require.NotNil(t, got[2].Summary)
	require.Equal(t, 2, got[2].Summary.PlatformCount)
}

func TestPartialFailuresStillProduceSummary(t *testing.T) {
	ok := newFake("ok", models.GroupNetwork, 0, nil)

	noMatch := newFake("nomatch", models.GroupNetwork, 1, nil)
	noMatch.candidates = nil

	failing := newFake("failing", models.GroupNetwork, 2, nil)
	failing.searchErr = errors.New("connection refused")

	o := newOrchestrator(t, time.Second, ok, noMatch, failing)
	events, err := o.Run(context.Background(), Request{Query: "test book", ExecutionID: "e"})
	require.NoError(t, err)
	got := drain(t, events)

	require.Len(t, got, 2)
	require.Equal(t, EventPlatformResult, got[0].Type)
	require.Equal(t, "ok", got[0].Rating.Platform)

	s := got[1].Summary
	require.Equal(t, 1, s.PlatformCount)
	require.Equal(t, 4, s.TotalReviews)
	require.NotNil(t, s.AvgRating)
	require.InDelta(t, 8.0, *s.AvgRating, 1e-9)
}

func TestSlowAdapterTimesOutWithoutStallingSiblings(t *testing.T) {
	slow := newFake("slow", models.GroupNetwork, 0, nil)
	slow.searchDelay = 2 * time.Second
	fast := newFake("fast", models.GroupNetwork, 1, nil)

	o := newOrchestrator(t, 50*time.Millisecond, slow, fast)

	start := time.Now()
	events, err := o.Run(context.Background(), Request{Query: "test book", ExecutionID: "e"})
	require.NoError(t, err)
	got := drain(t, events)
	elapsed := time.Since(start)

	// the run must not wait out the slow adapter's sleep
	require.Less(t, elapsed, time.Second)

	require.Len(t, got, 2)
	require.Equal(t, "fast", got[0].Rating.Platform)
	require.Equal(t, 1, got[1].Summary.PlatformCount)
}

func TestAbandonedConsumerDoesNotBlockRun(t *testing.T) {
	rec := &recorder{}
	adapters := []platform.Adapter{
		newFake("a", models.GroupBrowser, 0, rec),
		newFake("b", models.GroupNetwork, 1, rec),
		newFake("c", models.GroupNetwork, 2, rec),
	}

	o := newOrchestrator(t, time.Second, adapters...)
	_, err := o.Run(context.Background(), Request{Query: "test book", ExecutionID: "e"})
	require.NoError(t, err)

	// nobody reads the channel; every adapter must still finish
	require.Eventually(t, func() bool {
		return rec.count("search-end") == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueryOverridesReachTheRightAdapter(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}

	spy := func(id string, order int) platform.Adapter {
		f := newFake(id, models.GroupNetwork, order, nil)
		return &spyAdapter{fakeAdapter: f, seen: seen, mu: &mu}
	}

	o := newOrchestrator(t, time.Second, spy("a", 0), spy("b", 1))
	events, err := o.Run(context.Background(), Request{
		Query:          "한국어 제목",
		Platforms:      []string{"a", "b"},
		QueryOverrides: map[string]string{"b": "original title"},
		ExecutionID:    "e",
	})
	require.NoError(t, err)
	drain(t, events)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "한국어 제목", seen["a"])
	require.Equal(t, "original title", seen["b"])
}

func TestDetailFallsBackToSearchFoldedRating(t *testing.T) {
	// aladin-style source: the search response already carries the
	// rating, detail adds nothing
	a := newFake("folded", models.GroupNetwork, 0, nil)
	a.candidates = []models.RawCandidate{{
		Title:     "test book",
		URL:       "https://example.com/1",
		RawRating: ptr(9.0),
	}}
	a.detail = platform.Detail{}

	o := newOrchestrator(t, time.Second, a)
	events, err := o.Run(context.Background(), Request{Query: "test book", ExecutionID: "e"})
	require.NoError(t, err)
	got := drain(t, events)

	require.Len(t, got, 2)
	r := got[0].Rating
	require.NotNil(t, r.RawRating)
	require.InDelta(t, 9.0, *r.RawRating, 1e-9)
	require.NotNil(t, r.NormalizedRating)
	require.InDelta(t, 9.0, *r.NormalizedRating, 1e-9)
}

func TestISBNQuerySkipsTokenMatching(t *testing.T) {
	a := newFake("isbn", models.GroupNetwork, 0, nil)
	a.candidates = []models.RawCandidate{{Title: "Pachinko", URL: "https://example.com/dp/1"}}

	o := newOrchestrator(t, time.Second, a)
	events, err := o.Run(context.Background(), Request{Query: "9788936434120", ExecutionID: "e"})
	require.NoError(t, err)
	got := drain(t, events)

	require.Len(t, got, 2)
	require.Equal(t, "Pachinko", got[0].Rating.BookTitle)
}

type spyAdapter struct {
	*fakeAdapter
	mu   *sync.Mutex
	seen map[string]string
}

func (s *spyAdapter) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	s.mu.Lock()
	s.seen[s.desc.ID] = query
	s.mu.Unlock()
	return s.fakeAdapter.Search(ctx, query)
}
