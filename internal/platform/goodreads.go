package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

const goodreadsBase = "https://www.goodreads.com"

// Goodreads resolves ISBN queries in a single request through the
// /book/isbn/ redirect; keyword queries go through the classic search
// results page. Detail data comes from the embedded ld+json Book record.
type Goodreads struct {
	client *resty.Client
}

func NewGoodreads(cfg utils.CrawlConfig) *Goodreads {
	c := newClient(cfg.UserAgent, cfg.AdapterTimeout())
	c.SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &Goodreads{client: c}
}

func (g *Goodreads) Descriptor() models.PlatformDescriptor {
	return models.PlatformDescriptor{
		ID:      "goodreads",
		Group:   models.GroupNetwork,
		Scale:   5,
		Order:   5,
		Foreign: true,
	}
}

func (g *Goodreads) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	if IsISBN(query) {
		return g.searchByISBN(ctx, CleanISBN(query))
	}

	searchURL := goodreadsBase + "/search?q=" + url.QueryEscape(query)
	res, err := g.client.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		return nil, fmt.Errorf("goodreads: search: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, statusErr("goodreads", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("goodreads: parse search page: %w", ErrParse)
	}

	var candidates []models.RawCandidate
	doc.Find("a.bookTitle").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if title == "" || href == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = goodreadsBase + href
		}
		author := strings.TrimSpace(link.ParentsFiltered("tr").First().Find("a.authorName").First().Text())
		candidates = append(candidates, models.RawCandidate{
			Title:  title,
			Author: author,
			URL:    href,
		})
	})
	return candidates, nil
}

// searchByISBN hits the isbn redirect, which lands on the book page
// directly; the rating is folded into the single candidate.
func (g *Goodreads) searchByISBN(ctx context.Context, isbn string) ([]models.RawCandidate, error) {
	res, err := g.client.R().SetContext(ctx).Get(goodreadsBase + "/book/isbn/" + isbn)
	if err != nil {
		return nil, fmt.Errorf("goodreads: isbn lookup: %w", err)
	}
	if res.StatusCode() == 404 {
		return nil, nil
	}
	if res.StatusCode() != 200 {
		return nil, statusErr("goodreads", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("goodreads: parse book page: %w", ErrParse)
	}

	ld, ok := extractBookLD(doc)
	if !ok {
		title := strings.TrimSpace(doc.Find("h1").First().Text())
		if title == "" {
			return nil, nil
		}
		return []models.RawCandidate{{Title: title, URL: res.RawResponse.Request.URL.String()}}, nil
	}

	c := models.RawCandidate{
		Title:       ld.Name,
		URL:         res.RawResponse.Request.URL.String(),
		RawRating:   ld.rating(),
		ReviewCount: intPtr(ld.reviews()),
	}
	return []models.RawCandidate{c}, nil
}

func (g *Goodreads) FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error) {
	// folded in by the isbn path
	if c.RawRating != nil && c.ReviewCount != nil {
		return Detail{RawRating: c.RawRating, ReviewCount: *c.ReviewCount}, nil
	}

	res, err := g.client.R().SetContext(ctx).Get(c.URL)
	if err != nil {
		return Detail{}, fmt.Errorf("goodreads: detail: %w", err)
	}
	if res.StatusCode() != 200 {
		return Detail{}, statusErr("goodreads", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return Detail{}, fmt.Errorf("goodreads: parse book page: %w", ErrParse)
	}

	ld, ok := extractBookLD(doc)
	if !ok {
		return Detail{}, nil
	}
	return Detail{RawRating: ld.rating(), ReviewCount: ld.reviews()}, nil
}
