package platform

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

const amazonBase = "https://www.amazon.com"

// Amazon book pages embed an ld+json Book record; when that is missing
// the "X out of 5 stars" / "N ratings" strings are the fallback. ISBN-10
// values double as ASINs, so those queries skip the search page.
type Amazon struct {
	client *resty.Client
}

func NewAmazon(cfg utils.CrawlConfig) *Amazon {
	c := newClient(cfg.UserAgent, cfg.AdapterTimeout())
	c.SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &Amazon{client: c}
}

func (a *Amazon) Descriptor() models.PlatformDescriptor {
	return models.PlatformDescriptor{
		ID:      "amazon",
		Group:   models.GroupNetwork,
		Scale:   5,
		Order:   6,
		Foreign: true,
	}
}

func (a *Amazon) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	if IsISBN(query) {
		if isbn := CleanISBN(query); len(isbn) == 10 {
			// ISBN-10 is a valid ASIN
			return []models.RawCandidate{{
				Title:    query,
				URL:      amazonBase + "/dp/" + isbn,
				SourceID: isbn,
			}}, nil
		}
	}

	searchURL := amazonBase + "/s?i=stripbooks&k=" + url.QueryEscape(query)
	res, err := a.client.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		return nil, fmt.Errorf("amazon: search: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, statusErr("amazon", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("amazon: parse search page: %w", ErrParse)
	}

	var candidates []models.RawCandidate
	doc.Find("div[data-asin]").Each(func(_ int, item *goquery.Selection) {
		asin, _ := item.Attr("data-asin")
		if asin == "" {
			return
		}
		link := item.Find("h2 a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		candidates = append(candidates, models.RawCandidate{
			Title:    title,
			URL:      amazonBase + "/dp/" + asin,
			SourceID: asin,
		})
	})
	return candidates, nil
}

var (
	amazonStarsRe   = regexp.MustCompile(`([\d.]+) out of 5 stars`)
	amazonRatingsRe = regexp.MustCompile(`([\d,]+) ratings`)
)

func (a *Amazon) FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error) {
	res, err := a.client.R().SetContext(ctx).Get(c.URL)
	if err != nil {
		return Detail{}, fmt.Errorf("amazon: detail: %w", err)
	}
	if res.StatusCode() != 200 {
		return Detail{}, statusErr("amazon", res.StatusCode())
	}

	body := res.String()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Detail{}, fmt.Errorf("amazon: parse detail page: %w", ErrParse)
	}

	if ld, ok := extractBookLD(doc); ok {
		return Detail{RawRating: ld.rating(), ReviewCount: ld.reviews()}, nil
	}

	var d Detail
	if m := amazonStarsRe.FindStringSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			d.RawRating = floatPtr(v)
		}
	}
	if m := amazonRatingsRe.FindStringSubmatch(body); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			d.ReviewCount = n
		}
	}
	return d, nil
}
