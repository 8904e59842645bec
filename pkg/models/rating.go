package models

import "time"

// RawCandidate is a single search-result item as a platform returned it,
// before match selection. Produced and consumed inside one adapter
// invocation; never persisted.
type RawCandidate struct {
	Title       string
	Author      string
	URL         string
	SourceID    string   // platform-specific product/item id, opaque to the engine
	RawRating   *float64 // present when the platform folds rating into search results
	ReviewCount *int
}

// PlatformRating is the normalized, per-platform unit of output.
//
// NormalizedRating is present iff RawRating is present and always lies
// in [0, 10]. ReviewCount is never negative.
type PlatformRating struct {
	Platform         string    `json:"platform"`
	BookTitle        string    `json:"book_title"`
	RawRating        *float64  `json:"rating"`
	RatingScale      float64   `json:"rating_scale"`
	NormalizedRating *float64  `json:"normalized_rating"`
	ReviewCount      int       `json:"review_count"`
	URL              string    `json:"url"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// SearchSummary aggregates all PlatformRatings produced by one execution.
//
// AvgRating is the mean of the present NormalizedRating values; platforms
// that produced no rating are excluded from numerator and denominator.
// PlatformCount counts platforms that produced a PlatformRating, not
// platforms attempted.
type SearchSummary struct {
	ExecutionID   string    `json:"execution_id"`
	Query         string    `json:"query"`
	AvgRating     *float64  `json:"avg_rating"`
	TotalReviews  int       `json:"total_reviews"`
	PlatformCount int       `json:"platform_count"`
	CreatedAt     time.Time `json:"created_at"`
}
