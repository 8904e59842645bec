package platform

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

// Sarak is Yes24's reading community. Books are located through the
// Yes24 catalog search, then the sarak statistics API supplies the
// community rating (10-point scale, rated-user count as review count).
type Sarak struct {
	client *resty.Client
}

func NewSarak(cfg utils.CrawlConfig) *Sarak {
	return &Sarak{client: newClient(cfg.UserAgent, cfg.AdapterTimeout())}
}

func (s *Sarak) Descriptor() models.PlatformDescriptor {
	return models.PlatformDescriptor{
		ID:    "sarak",
		Group: models.GroupNetwork,
		Scale: 10,
		Order: 3,
	}
}

func (s *Sarak) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	candidates, err := yes24Search(ctx, s.client, "sarak", query)
	if err != nil {
		return nil, err
	}
	// rewrite the Yes24 product URLs into sarak reading-note pages
	out := candidates[:0]
	for _, c := range candidates {
		if c.SourceID == "" {
			continue
		}
		c.URL = "https://sarak.yes24.com/reading-note/book/" + c.SourceID
		out = append(out, c)
	}
	return out, nil
}

type sarakStatsResponse struct {
	StarPointAverageForBookInfo *float64 `json:"starPointAverageForBookInfo"`
	UserWhoDidVoteThisBookCount int      `json:"userWhoDidVoteThisBookCount"`
}

func (s *Sarak) FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error) {
	if c.SourceID == "" {
		return Detail{}, fmt.Errorf("sarak: no goods number in %s: %w", c.URL, ErrParse)
	}

	var stats sarakStatsResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetResult(&stats).
		Get("https://sarak-api.yes24.com/api24/v1/reading-note/book/" + c.SourceID + "/book-statistics-summary")
	if err != nil {
		return Detail{}, fmt.Errorf("sarak: statistics api: %w", err)
	}
	if res.StatusCode() != 200 {
		return Detail{}, statusErr("sarak", res.StatusCode())
	}

	d := Detail{ReviewCount: stats.UserWhoDidVoteThisBookCount}
	if avg := stats.StarPointAverageForBookInfo; avg != nil && *avg > 0 && *avg <= 10 {
		d.RawRating = avg
	}
	return d, nil
}
