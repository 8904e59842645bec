package crawler

import (
	"errors"

	"bookhub/pkg/models"
)

// Outcome is the terminal state of one adapter invocation.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
)

// EventType tags entries on the output sequence. A run emits zero or
// more platform_result events followed by exactly one done event.
type EventType string

const (
	EventPlatformResult EventType = "platform_result"
	EventDone           EventType = "done"
	EventError          EventType = "error"
)

const (
	SourceCrawl = "crawl"
	SourceCache = "cache"
)

type Event struct {
	Type    EventType              `json:"type"`
	Rating  *models.PlatformRating `json:"rating,omitempty"`
	Summary *models.SearchSummary  `json:"summary,omitempty"`
	Source  string                 `json:"source,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Request validation errors, surfaced synchronously before anything is
// dispatched or streamed.
var (
	ErrEmptyQuery      = errors.New("query must not be empty")
	ErrEmptySelection  = errors.New("platform selection must not be empty")
	ErrUnknownPlatform = errors.New("unknown platform")
)
