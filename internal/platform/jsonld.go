package platform

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// bookLD is the subset of schema.org Book metadata the foreign platforms
// embed in their detail pages.
type bookLD struct {
	Name            string `json:"name"`
	AggregateRating struct {
		RatingValue json.Number `json:"ratingValue"`
		RatingCount int         `json:"ratingCount"`
		ReviewCount int         `json:"reviewCount"`
	} `json:"aggregateRating"`
}

// extractBookLD scans the page's ld+json blocks for a Book record with
// an aggregate rating. Returns false when none parses.
func extractBookLD(doc *goquery.Document) (bookLD, bool) {
	var out bookLD
	found := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var ld bookLD
		if err := json.Unmarshal([]byte(raw), &ld); err != nil {
			return true
		}
		if ld.AggregateRating.RatingValue == "" {
			return true
		}
		out = ld
		found = true
		return false
	})

	return out, found
}

func (b bookLD) rating() *float64 {
	v, err := b.AggregateRating.RatingValue.Float64()
	if err != nil {
		return nil
	}
	return &v
}

// reviews prefers the explicit rating count, falling back to the review
// count when the platform reports only one of the two.
func (b bookLD) reviews() int {
	if b.AggregateRating.RatingCount > 0 {
		return b.AggregateRating.RatingCount
	}
	return b.AggregateRating.ReviewCount
}
