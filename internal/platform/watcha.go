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

const watchaBase = "https://pedia.watcha.com"

// Watcha (Watcha Pedia) serves SSR pages. Ratings are on a 5-point
// scale; review counts come as "(3.2만명)"-style participant counts.
// Deployed behind the browser pool, hence the browser group.
type Watcha struct {
	client *resty.Client
}

func NewWatcha(cfg utils.CrawlConfig) *Watcha {
	return &Watcha{client: newClient(cfg.UserAgent, cfg.AdapterTimeout())}
}

func (w *Watcha) Descriptor() models.PlatformDescriptor {
	return models.PlatformDescriptor{
		ID:    "watcha",
		Group: models.GroupBrowser,
		Scale: 5,
		Order: 4,
	}
}

var (
	watchaContentRe  = regexp.MustCompile(`/ko-KR/contents/[a-zA-Z0-9]+`)
	watchaTitleCutRe = regexp.MustCompile(`\s*\d{4}\s*・.*$`)
)

func (w *Watcha) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	searchURL := watchaBase + "/ko-KR/searches/books?query=" + url.QueryEscape(query)

	res, err := w.client.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		return nil, fmt.Errorf("watcha: search: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, statusErr("watcha", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("watcha: parse search page: %w", ErrParse)
	}

	var candidates []models.RawCandidate
	seen := make(map[string]struct{})
	doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !watchaContentRe.MatchString(href) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		// link text carries "제목 2021 ・ 저자"; keep the title part
		title := watchaTitleCutRe.ReplaceAllString(strings.TrimSpace(link.Text()), "")
		if title == "" {
			return
		}
		full := href
		if strings.HasPrefix(full, "/") {
			full = watchaBase + full
		}
		candidates = append(candidates, models.RawCandidate{Title: title, URL: full})
	})
	return candidates, nil
}

var (
	watchaRatingRe     = regexp.MustCompile(`평균\s+([\d.]+)`)
	watchaCount10kRe   = regexp.MustCompile(`\(([\d.]+)만명\)`)
	watchaCountPlainRe = regexp.MustCompile(`\(([\d,]+)명\)`)
)

func (w *Watcha) FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error) {
	res, err := w.client.R().SetContext(ctx).Get(c.URL)
	if err != nil {
		return Detail{}, fmt.Errorf("watcha: detail: %w", err)
	}
	if res.StatusCode() != 200 {
		return Detail{}, statusErr("watcha", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return Detail{}, fmt.Errorf("watcha: parse detail page: %w", ErrParse)
	}
	text := doc.Text()

	var d Detail
	if m := watchaRatingRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 && v <= 5 {
			d.RawRating = floatPtr(v)
		}
	}

	if m := watchaCount10kRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			d.ReviewCount = int(v * 10000)
		}
	} else if m := watchaCountPlainRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			d.ReviewCount = n
		}
	}
	return d, nil
}
