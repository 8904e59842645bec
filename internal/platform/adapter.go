// Package platform holds the per-source adapters the crawl engine fans
// out to. Each adapter maps one bookstore or reading community onto the
// common search/fetch-detail contract; everything source-specific (URLs,
// selectors, response shapes) stays inside its own file.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"bookhub/pkg/models"
)

// Typed adapter outcomes. The orchestrator maps any Search/FetchDetail
// error to a failed outcome; ErrBlocked and ErrParse only refine the
// diagnostics. "No results" is an empty candidate slice, not an error.
var (
	ErrBlocked = errors.New("platform blocked the request")
	ErrParse   = errors.New("unexpected response structure")
)

// Detail carries the rating data fetched from a matched candidate's
// detail page or API.
type Detail struct {
	RawRating   *float64
	ReviewCount int
}

// Adapter is the capability the orchestrator consumes, one per source.
// Some sources fold rating data into search results already; their
// FetchDetail just echoes the candidate.
type Adapter interface {
	Descriptor() models.PlatformDescriptor
	Search(ctx context.Context, query string) ([]models.RawCandidate, error)
	FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error)
}

func newClient(userAgent string, timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetHeader("User-Agent", userAgent)
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return client
}

// statusErr maps an HTTP status to the adapter error taxonomy.
func statusErr(platform string, code int) error {
	switch code {
	case 403, 429, 503:
		return fmt.Errorf("%s: status %d: %w", platform, code, ErrBlocked)
	default:
		return fmt.Errorf("%s: unexpected status %d", platform, code)
	}
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
