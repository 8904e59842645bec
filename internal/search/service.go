// Package search ties the engine together behind the HTTP API: cache
// gateway in front, orchestrator behind, with foreign-query resolution
// and feed broadcasting on the way through.
package search

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"bookhub/internal/cache"
	"bookhub/internal/crawler"
	"bookhub/internal/feed"
	"bookhub/internal/platform"
	"bookhub/internal/rating"
	"bookhub/internal/resolver"
	"bookhub/pkg/models"
)

type Request struct {
	Query        string
	Platforms    []string
	ForceRefresh bool
}

type Service struct {
	orch     *crawler.Orchestrator
	gateway  *cache.Gateway
	resolver *resolver.Resolver
	registry *platform.Registry
	hub      *feed.Hub // nil disables broadcasting
}

func NewService(orch *crawler.Orchestrator, gateway *cache.Gateway, res *resolver.Resolver, registry *platform.Registry, hub *feed.Hub) *Service {
	return &Service{orch: orch, gateway: gateway, resolver: res, registry: registry, hub: hub}
}

// Run answers a search with an event stream. A cache hit replays the
// stored execution without touching any platform; a miss (or
// ForceRefresh) runs a fresh crawl, stores the outcome, and supersedes
// the previous entry for the query. The crawl itself is detached from
// the caller's context: a client that stops reading mid-stream does not
// abort the crawl or lose the stored result.
func (s *Service) Run(ctx context.Context, req Request) (<-chan crawler.Event, error) {
	query := crawler.NormalizeQuery(req.Query)
	if query == "" {
		return nil, crawler.ErrEmptyQuery
	}

	if !req.ForceRefresh {
		summary, ratings, err := s.gateway.Lookup(ctx, query)
		if err != nil {
			log.Printf("[search] cache lookup failed, crawling: %v", err)
		} else if summary != nil {
			log.Printf("[search] cache hit for %q (%s)", query, summary.ExecutionID)
			return replay(summary, ratings), nil
		}
	}

	ids := req.Platforms
	if ids == nil {
		ids = s.registry.IDs()
	}
	if len(ids) == 0 {
		return nil, crawler.ErrEmptySelection
	}

	descriptors := make([]models.PlatformDescriptor, 0, len(ids))
	for _, id := range ids {
		a, ok := s.registry.Get(id)
		if !ok {
			return nil, crawler.ErrUnknownPlatform
		}
		descriptors = append(descriptors, a.Descriptor())
	}

	crawlCtx := context.WithoutCancel(ctx)
	overrides, skip := s.resolver.Overrides(crawlCtx, query, descriptors)
	ids = without(ids, skip)

	execID := uuid.NewString()
	if len(ids) == 0 {
		// every selected platform needed a foreign edition and none exists
		summary := rating.NewAccumulator(execID, query).Summary()
		out := make(chan crawler.Event, 1)
		out <- crawler.Event{Type: crawler.EventDone, Summary: &summary, Source: crawler.SourceCrawl}
		close(out)
		return out, nil
	}

	events, err := s.orch.Run(crawlCtx, crawler.Request{
		Query:          query,
		Platforms:      ids,
		QueryOverrides: overrides,
		ExecutionID:    execID,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan crawler.Event, len(ids)+1)
	go s.collect(crawlCtx, events, out)
	return out, nil
}

// collect forwards crawl events to the caller and the feed while
// gathering ratings, then persists the finished execution.
func (s *Service) collect(ctx context.Context, events <-chan crawler.Event, out chan<- crawler.Event) {
	defer close(out)

	var ratings []models.PlatformRating
	for ev := range events {
		if ev.Type == crawler.EventPlatformResult && ev.Rating != nil {
			ratings = append(ratings, *ev.Rating)
		}
		if ev.Type == crawler.EventDone && ev.Summary != nil && len(ratings) > 0 {
			storeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s.gateway.Store(storeCtx, *ev.Summary, ratings); err != nil {
				log.Printf("[search] store %s failed: %v", ev.Summary.ExecutionID, err)
			}
			cancel()
		}
		if s.hub != nil {
			s.hub.Broadcast(ev)
		}
		out <- ev
	}
}

func replay(summary *models.SearchSummary, ratings []models.PlatformRating) <-chan crawler.Event {
	out := make(chan crawler.Event, len(ratings)+1)
	for i := range ratings {
		out <- crawler.Event{
			Type:   crawler.EventPlatformResult,
			Rating: &ratings[i],
			Source: crawler.SourceCache,
		}
	}
	out <- crawler.Event{Type: crawler.EventDone, Summary: summary, Source: crawler.SourceCache}
	close(out)
	return out
}

func without(ids, skip []string) []string {
	if len(skip) == 0 {
		return ids
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, id := range skip {
		skipped[id] = struct{}{}
	}
	kept := ids[:0:0]
	for _, id := range ids {
		if _, drop := skipped[id]; !drop {
			kept = append(kept, id)
		}
	}
	return kept
}

// Check probes the cache without ever triggering a crawl.
func (s *Service) Check(ctx context.Context, query string) (*models.SearchSummary, error) {
	return s.gateway.Check(ctx, crawler.NormalizeQuery(query))
}

// History, Get, and Delete expose stored executions to the API layer.

func (s *Service) History(ctx context.Context, limit int) ([]models.SearchSummary, error) {
	return s.gateway.History(ctx, limit)
}

func (s *Service) Get(ctx context.Context, id string) (*models.SearchSummary, []models.PlatformRating, error) {
	return s.gateway.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.gateway.Delete(ctx, id)
}

func (s *Service) Platforms() []models.PlatformDescriptor {
	return s.registry.Descriptors()
}
