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

const libraryThingBase = "https://www.librarything.com"

// LibraryThing has no structured metadata on its work pages; the rating
// shows up as "(4.12)" next to the star widget and the review count in
// the reviews tab link.
type LibraryThing struct {
	client *resty.Client
}

func NewLibraryThing(cfg utils.CrawlConfig) *LibraryThing {
	c := newClient(cfg.UserAgent, cfg.AdapterTimeout())
	c.SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &LibraryThing{client: c}
}

func (l *LibraryThing) Descriptor() models.PlatformDescriptor {
	return models.PlatformDescriptor{
		ID:      "librarything",
		Group:   models.GroupNetwork,
		Scale:   5,
		Order:   7,
		Foreign: true,
	}
}

func (l *LibraryThing) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	searchURL := libraryThingBase + "/search.php?searchtype=work&search=" + url.QueryEscape(query)

	res, err := l.client.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		return nil, fmt.Errorf("librarything: search: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, statusErr("librarything", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("librarything: parse search page: %w", ErrParse)
	}

	var candidates []models.RawCandidate
	links := doc.Find("td.worktitle a")
	if links.Length() == 0 {
		links = doc.Find(`a[href*="/work/"]`)
	}
	seen := make(map[string]struct{})
	links.Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if title == "" || href == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = libraryThingBase + href
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		candidates = append(candidates, models.RawCandidate{Title: title, URL: href})
	})
	return candidates, nil
}

var (
	ltRatingRe  = regexp.MustCompile(`\((\d+\.\d+)\)`)
	ltReviewsRe = regexp.MustCompile(`>(\d[\d,]*)\s*Reviews</a>`)
)

func (l *LibraryThing) FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error) {
	res, err := l.client.R().SetContext(ctx).Get(c.URL)
	if err != nil {
		return Detail{}, fmt.Errorf("librarything: detail: %w", err)
	}
	if res.StatusCode() != 200 {
		return Detail{}, statusErr("librarything", res.StatusCode())
	}

	body := res.String()
	var d Detail
	if m := ltRatingRe.FindStringSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 && v <= 5 {
			d.RawRating = floatPtr(v)
		}
	}
	if m := ltReviewsRe.FindStringSubmatch(body); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			d.ReviewCount = n
		}
	}
	return d, nil
}
