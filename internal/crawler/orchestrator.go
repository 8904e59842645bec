// Package crawler schedules platform adapters for one search execution
// and folds their results into a live event stream plus a final summary.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bookhub/internal/match"
	"bookhub/internal/platform"
	"bookhub/internal/rating"
	"bookhub/pkg/models"
)

// Request describes one crawl execution. A nil Platforms slice selects
// every registered platform; an explicitly empty one is rejected.
// QueryOverrides substitutes a per-platform search term, used for
// foreign platforms after original-title resolution.
type Request struct {
	Query          string
	Platforms      []string
	QueryOverrides map[string]string
	ExecutionID    string
}

type Orchestrator struct {
	registry *platform.Registry
	matcher  *match.Matcher
	timeout  time.Duration
}

func New(registry *platform.Registry, matcher *match.Matcher, timeout time.Duration) *Orchestrator {
	return &Orchestrator{registry: registry, matcher: matcher, timeout: timeout}
}

// NormalizeQuery trims and collapses internal whitespace; the result is
// both the match input and the cache key.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// Run validates the request and starts the crawl. Validation failures
// return synchronously; after that the caller always receives zero or
// more platform_result events followed by one done event. The channel
// is buffered for the worst case, so an abandoned consumer never blocks
// the run: outstanding work completes, is folded into the stored
// summary, and the channel is closed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (<-chan Event, error) {
	query := NormalizeQuery(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	ids := req.Platforms
	if ids == nil {
		ids = o.registry.IDs()
	}
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	adapters := make([]platform.Adapter, 0, len(ids))
	for _, id := range ids {
		a, ok := o.registry.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, id)
		}
		adapters = append(adapters, a)
	}

	events := make(chan Event, len(adapters)+1)
	go o.run(ctx, query, req, adapters, events)
	return events, nil
}

func (o *Orchestrator) run(ctx context.Context, query string, req Request, adapters []platform.Adapter, events chan<- Event) {
	defer close(events)

	acc := rating.NewAccumulator(req.ExecutionID, query)

	// Every browser-group adapter reaches a terminal state before any
	// network-group adapter starts. The barrier lives here so call-site
	// or registration order cannot change the phasing.
	browser, network := partition(adapters)
	for _, group := range [][]platform.Adapter{browser, network} {
		if len(group) == 0 {
			continue
		}

		results := make(chan adapterResult, len(group))
		for _, a := range group {
			q := query
			if override, ok := req.QueryOverrides[a.Descriptor().ID]; ok {
				q = override
			}
			go o.invoke(ctx, a, q, results)
		}

		// full barrier: wait for every member of the group
		for range group {
			r := <-results
			switch r.outcome {
			case OutcomeSucceeded:
				log.Printf("[crawler] %s %s: %s ok (reviews=%d)",
					req.ExecutionID, r.platform, query, r.rating.ReviewCount)
				acc.Fold(*r.rating)
				events <- Event{Type: EventPlatformResult, Rating: r.rating}
			case OutcomeNoMatch:
				log.Printf("[crawler] %s %s: no confident match for %q", req.ExecutionID, r.platform, query)
			case OutcomeTimedOut:
				log.Printf("[crawler] %s %s: timed out", req.ExecutionID, r.platform)
			default:
				log.Printf("[crawler] %s %s: failed: %v", req.ExecutionID, r.platform, r.err)
			}
		}
	}

	summary := acc.Summary()
	events <- Event{Type: EventDone, Summary: &summary, Source: SourceCrawl}
}

func partition(adapters []platform.Adapter) (browser, network []platform.Adapter) {
	for _, a := range adapters {
		if a.Descriptor().Group == models.GroupBrowser {
			browser = append(browser, a)
		} else {
			network = append(network, a)
		}
	}
	return browser, network
}

type adapterResult struct {
	platform string
	outcome  Outcome
	rating   *models.PlatformRating
	err      error
}

// invoke bounds one adapter with the per-adapter timeout. The timeout is
// a soft cancellation of this unit of work only: the result is reported
// immediately and the worker goroutine is left to drain and be
// discarded, so siblings and the group barrier are unaffected.
func (o *Orchestrator) invoke(ctx context.Context, a platform.Adapter, query string, out chan<- adapterResult) {
	tctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan adapterResult, 1)
	go func() { done <- o.crawlOne(tctx, a, query) }()

	select {
	case r := <-done:
		out <- r
	case <-tctx.Done():
		out <- adapterResult{
			platform: a.Descriptor().ID,
			outcome:  OutcomeTimedOut,
			err:      tctx.Err(),
		}
	}
}

func (o *Orchestrator) crawlOne(ctx context.Context, a platform.Adapter, query string) adapterResult {
	d := a.Descriptor()

	candidates, err := a.Search(ctx, query)
	if err != nil {
		return adapterResult{platform: d.ID, outcome: classify(err), err: err}
	}

	var (
		best models.RawCandidate
		ok   bool
	)
	if platform.IsISBN(query) {
		// identifier lookups answer "this exact book"; containment
		// scoring against a digit string would reject everything
		best, ok = o.matcher.FirstEligible(candidates)
	} else {
		best, ok = o.matcher.Match(query, candidates)
	}
	if !ok {
		return adapterResult{platform: d.ID, outcome: OutcomeNoMatch}
	}

	detail, err := a.FetchDetail(ctx, best)
	if err != nil {
		return adapterResult{platform: d.ID, outcome: classify(err), err: err}
	}

	raw := detail.RawRating
	if raw == nil {
		raw = best.RawRating
	}
	count := detail.ReviewCount
	if count == 0 && best.ReviewCount != nil {
		count = *best.ReviewCount
	}
	if count < 0 {
		count = 0
	}

	pr := &models.PlatformRating{
		Platform:         d.ID,
		BookTitle:        best.Title,
		RawRating:        raw,
		RatingScale:      d.Scale,
		NormalizedRating: rating.Normalize(raw, d.Scale),
		ReviewCount:      count,
		URL:              best.URL,
		FetchedAt:        time.Now(),
	}
	return adapterResult{platform: d.ID, outcome: OutcomeSucceeded, rating: pr}
}

func classify(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimedOut
	}
	return OutcomeFailed
}
