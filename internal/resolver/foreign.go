// Package resolver turns a Korean search query into terms usable on
// foreign platforms: the original-edition title and, when a catalog
// knows one, an original-edition ISBN for direct page access.
package resolver

import (
	"context"
	"log"

	"bookhub/internal/match"
	"bookhub/internal/platform"
	"bookhub/pkg/models"
)

// ForeignQuery is the resolved search information for foreign platforms.
// A zero Query means the book could not be connected to an original
// edition and foreign platforms should be skipped for this run.
type ForeignQuery struct {
	Query string
	ISBN  string
}

func (q ForeignQuery) Available() bool { return q.Query != "" }

// ContainsHangul reports whether the string has any Hangul syllable.
func ContainsHangul(s string) bool {
	for _, r := range s {
		if r >= 0xAC00 && r <= 0xD7A3 {
			return true
		}
	}
	return false
}

// Resolver connects a Korean edition to its original through the aladin
// catalog, with bibliographic providers filling in the original ISBN.
// aladin may be nil (platform disabled), in which case Korean queries
// never resolve.
type Resolver struct {
	aladin  *platform.Aladin
	matcher *match.Matcher
	lookup  *ISBNLookup
}

func New(aladin *platform.Aladin, matcher *match.Matcher, lookup *ISBNLookup) *Resolver {
	return &Resolver{aladin: aladin, matcher: matcher, lookup: lookup}
}

// Resolve maps a query to foreign-platform search terms. Non-Korean
// queries pass through unchanged; Korean ones resolve through the
// catalog's original-title record, then through ISBN providers when the
// record is missing but the book is a known translation.
func (r *Resolver) Resolve(ctx context.Context, query string) ForeignQuery {
	if !ContainsHangul(query) {
		return ForeignQuery{Query: query}
	}
	if r.aladin == nil {
		return ForeignQuery{}
	}

	candidates, err := r.aladin.Search(ctx, query)
	if err != nil {
		log.Printf("[resolver] catalog search for %q failed: %v", query, err)
		return ForeignQuery{}
	}
	best, ok := r.matcher.Match(query, candidates)
	if !ok {
		return ForeignQuery{}
	}

	info, err := r.aladin.OriginalInfo(ctx, best.SourceID)
	if err != nil {
		log.Printf("[resolver] original info for %q failed: %v", query, err)
		return ForeignQuery{}
	}

	if info.Title != "" {
		isbn := r.lookup.ISBN(ctx, info.Title, info.Author)
		if isbn != "" {
			log.Printf("[resolver] %q resolved to %q (isbn %s)", query, info.Title, isbn)
		} else {
			log.Printf("[resolver] %q resolved to %q (no isbn)", query, info.Title)
		}
		return ForeignQuery{Query: info.Title, ISBN: isbn}
	}

	// no original-title record; a translation can still be connected
	// through its Korean edition's ISBN
	if info.Translated && info.ISBN13 != "" {
		if ed := r.lookup.FindOriginal(ctx, info.ISBN13); ed != nil {
			q := ed.Title
			if len(ed.Authors) > 0 {
				q += " " + ed.Authors[0]
			}
			isbn := ed.ISBN
			if isbn == "" {
				isbn = r.lookup.ISBN(ctx, ed.Title, "")
			}
			log.Printf("[resolver] %q resolved via isbn %s to %q", query, info.ISBN13, ed.Title)
			return ForeignQuery{Query: q, ISBN: isbn}
		}
	}

	return ForeignQuery{}
}

// Overrides plans the foreign side of a crawl: the per-platform query
// substitutions for foreign descriptors and, when the query could not be
// resolved, the set of platform ids to skip. Platforms that take the
// query as-is are absent from both.
func (r *Resolver) Overrides(ctx context.Context, query string, descriptors []models.PlatformDescriptor) (map[string]string, []string) {
	foreign := make([]models.PlatformDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Foreign {
			foreign = append(foreign, d)
		}
	}
	if len(foreign) == 0 || !ContainsHangul(query) {
		return nil, nil
	}

	fq := r.Resolve(ctx, query)
	if !fq.Available() {
		skip := make([]string, 0, len(foreign))
		for _, d := range foreign {
			skip = append(skip, d.ID)
		}
		log.Printf("[resolver] %q has no foreign edition, skipping %v", query, skip)
		return nil, skip
	}

	term := fq.Query
	if fq.ISBN != "" {
		// identifier beats keywords: adapters resolve ISBNs in one step
		term = fq.ISBN
	}
	overrides := make(map[string]string, len(foreign))
	for _, d := range foreign {
		overrides[d.ID] = term
	}
	return overrides, nil
}
