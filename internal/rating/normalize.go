package rating

import (
	"time"

	"bookhub/pkg/models"
)

// Normalize maps a raw score on the given scale onto the 0-10 reference
// axis. Pure: nil in, nil out; the result is clamped to [0, 10]. The
// scale is validated at adapter registration, so it is never zero here,
// but a non-positive scale still yields nil rather than garbage.
func Normalize(raw *float64, scale float64) *float64 {
	if raw == nil || scale <= 0 {
		return nil
	}
	v := *raw * (10 / scale)
	if v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	return &v
}

// Accumulator folds PlatformRatings into a running SearchSummary.
// It has exactly one writer: the orchestrator's collect loop. Adapter
// goroutines never touch it.
type Accumulator struct {
	executionID  string
	query        string
	startedAt    time.Time
	sum          float64
	rated        int
	totalReviews int
	count        int
}

func NewAccumulator(executionID, query string) *Accumulator {
	return &Accumulator{
		executionID: executionID,
		query:       query,
		startedAt:   time.Now(),
	}
}

func (a *Accumulator) Fold(r models.PlatformRating) {
	a.count++
	a.totalReviews += r.ReviewCount
	if r.NormalizedRating != nil {
		a.sum += *r.NormalizedRating
		a.rated++
	}
}

func (a *Accumulator) Summary() models.SearchSummary {
	s := models.SearchSummary{
		ExecutionID:   a.executionID,
		Query:         a.query,
		TotalReviews:  a.totalReviews,
		PlatformCount: a.count,
		CreatedAt:     a.startedAt,
	}
	if a.rated > 0 {
		avg := a.sum / float64(a.rated)
		s.AvgRating = &avg
	}
	return s
}
