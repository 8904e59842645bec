// Command crawler runs one crawl from the terminal, without the API
// server or the cache: results print as they arrive, the summary last.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookhub/internal/crawler"
	"bookhub/internal/match"
	"bookhub/internal/platform"
	"bookhub/internal/resolver"
	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

func main() {
	query := flag.String("query", "", "book title (and optionally author) to search")
	platformList := flag.String("platforms", "", "comma-separated platform ids (default: all)")
	timeout := flag.Int("timeout", 0, "per-platform timeout in seconds (default: config value)")
	asJSON := flag.Bool("json", false, "print events as JSON lines")
	flag.Parse()

	if strings.TrimSpace(*query) == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := utils.LoadCrawlConfig()
	if err != nil {
		log.Fatalf("crawl config failed: %v", err)
	}
	if *timeout > 0 {
		cfg.AdapterTimeoutSec = *timeout
	}

	registry, err := platform.Default(cfg)
	if err != nil {
		log.Fatalf("platform registry failed: %v", err)
	}
	matcher := match.New(cfg.ExclusionMarkers, cfg.MinMatchScore)
	orch := crawler.New(registry, matcher, cfg.AdapterTimeout())

	var selected []string
	if *platformList != "" {
		selected = strings.Split(*platformList, ",")
	} else {
		selected = registry.IDs()
	}

	ctx := context.Background()

	var aladin *platform.Aladin
	if a, ok := registry.Get("aladin"); ok {
		aladin, _ = a.(*platform.Aladin)
	}
	lookup := resolver.NewISBNLookup(cfg.UserAgent, os.Getenv("GOOGLE_BOOKS_API_KEY"), cfg.AdapterTimeout())
	res := resolver.New(aladin, matcher, lookup)

	descriptors := make([]models.PlatformDescriptor, 0, len(selected))
	for _, id := range selected {
		a, ok := registry.Get(id)
		if !ok {
			log.Fatalf("unknown platform: %s", id)
		}
		descriptors = append(descriptors, a.Descriptor())
	}
	overrides, skip := res.Overrides(ctx, crawler.NormalizeQuery(*query), descriptors)
	if len(skip) > 0 {
		fmt.Printf("skipping (no foreign edition): %s\n", strings.Join(skip, ", "))
		selected = without(selected, skip)
	}
	if len(selected) == 0 {
		fmt.Println("nothing to crawl")
		return
	}

	start := time.Now()
	events, err := orch.Run(ctx, crawler.Request{
		Query:          *query,
		Platforms:      selected,
		QueryOverrides: overrides,
		ExecutionID:    uuid.NewString(),
	})
	if err != nil {
		log.Fatalf("crawl failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for ev := range events {
		if *asJSON {
			_ = enc.Encode(ev)
			continue
		}
		switch ev.Type {
		case crawler.EventPlatformResult:
			printRating(ev.Rating)
		case crawler.EventDone:
			printSummary(ev.Summary, time.Since(start))
		}
	}
}

func printRating(r *models.PlatformRating) {
	rating := "-"
	if r.NormalizedRating != nil {
		rating = fmt.Sprintf("%.2f", *r.NormalizedRating)
	}
	fmt.Printf("%-14s %s  (%d reviews)  %s\n", r.Platform, rating, r.ReviewCount, r.BookTitle)
}

func printSummary(s *models.SearchSummary, elapsed time.Duration) {
	fmt.Println(strings.Repeat("-", 60))
	avg := "no ratings"
	if s.AvgRating != nil {
		avg = fmt.Sprintf("%.2f / 10", *s.AvgRating)
	}
	fmt.Printf("%q: %s across %d platforms, %d reviews (%.1fs)\n",
		s.Query, avg, s.PlatformCount, s.TotalReviews, elapsed.Seconds())
}

func without(ids, skip []string) []string {
	kept := ids[:0:0]
	for _, id := range ids {
		drop := false
		for _, s := range skip {
			if id == s {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, id)
		}
	}
	return kept
}
