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

// Yes24 renders everything server-side, so plain HTML scraping covers
// both search and detail.
type Yes24 struct {
	client *resty.Client
}

func NewYes24(cfg utils.CrawlConfig) *Yes24 {
	return &Yes24{client: newClient(cfg.UserAgent, cfg.AdapterTimeout())}
}

func (y *Yes24) Descriptor() models.PlatformDescriptor {
	return models.PlatformDescriptor{
		ID:    "yes24",
		Group: models.GroupNetwork,
		Scale: 10,
		Order: 2,
	}
}

func (y *Yes24) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	return yes24Search(ctx, y.client, "yes24", query)
}

// yes24Search is shared with the sarak adapter, which locates books
// through the Yes24 catalog before hitting its own API.
func yes24Search(ctx context.Context, client *resty.Client, platform, query string) ([]models.RawCandidate, error) {
	searchURL := "https://www.yes24.com/Product/Search?domain=ALL&query=" + url.QueryEscape(query)

	res, err := client.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		return nil, fmt.Errorf("%s: search: %w", platform, err)
	}
	if res.StatusCode() != 200 {
		return nil, statusErr(platform, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("%s: parse search page: %w", platform, ErrParse)
	}

	var candidates []models.RawCandidate
	doc.Find("a.gd_name").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())

		// skip the secondhand shop
		if strings.Contains(href, "UsedShopHub") {
			return
		}
		if !strings.Contains(strings.ToLower(href), "/product/goods/") {
			return
		}
		if title == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = "https://www.yes24.com" + href
		}

		candidates = append(candidates, models.RawCandidate{
			Title:    title,
			URL:      href,
			SourceID: yes24GoodsNo(href),
		})
	})
	return candidates, nil
}

var yes24GoodsNoRe = regexp.MustCompile(`(?i)/(?:product/)?goods/(\d+)`)

func yes24GoodsNo(u string) string {
	if m := yes24GoodsNoRe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

var yes24ReviewCountRes = []*regexp.Regexp{
	regexp.MustCompile(`회원리뷰\s*\(\s*(\d[\d,]*)\s*건?\s*\)`),
	regexp.MustCompile(`구매평\s*\(\s*(\d[\d,]*)\s*\)`),
	regexp.MustCompile(`리뷰\s*(\d[\d,]*)\s*건`),
}

func (y *Yes24) FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error) {
	res, err := y.client.R().SetContext(ctx).Get(c.URL)
	if err != nil {
		return Detail{}, fmt.Errorf("yes24: detail: %w", err)
	}
	if res.StatusCode() != 200 {
		return Detail{}, statusErr("yes24", res.StatusCode())
	}

	body := res.String()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Detail{}, fmt.Errorf("yes24: parse detail page: %w", ErrParse)
	}

	var d Detail
	for _, selector := range []string{".gd_rating em", "span.gd_rating em", ".yes_b"} {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			d.RawRating = floatPtr(v)
			break
		}
	}

	text := doc.Text()
	for _, re := range yes24ReviewCountRes {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
				d.ReviewCount = n
			}
			break
		}
	}
	return d, nil
}
