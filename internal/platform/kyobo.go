package platform

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

// Kyobo scrapes the search page and reads rating data from the product
// review APIs. In deployment kyobo pages are fetched through the browser
// pool, hence the browser execution group.
type Kyobo struct {
	client *resty.Client
}

func NewKyobo(cfg utils.CrawlConfig) *Kyobo {
	return &Kyobo{client: newClient(cfg.UserAgent, cfg.AdapterTimeout())}
}

func (k *Kyobo) Descriptor() models.PlatformDescriptor {
	return models.PlatformDescriptor{
		ID:    "kyobo",
		Group: models.GroupBrowser,
		Scale: 10,
		Order: 1,
	}
}

func (k *Kyobo) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	searchURL := "https://search.kyobobook.co.kr/search?keyword=" +
		url.QueryEscape(query) + "&gbCode=TOT&target=total"

	res, err := k.client.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		return nil, fmt.Errorf("kyobo: search: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, statusErr("kyobo", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("kyobo: parse search page: %w", ErrParse)
	}

	var candidates []models.RawCandidate
	doc.Find(".prod_item").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a.prod_info").First()
		if link.Length() == 0 {
			return
		}

		name := strings.TrimSpace(link.Text())
		// strip "[국내도서]"-style prefixes
		if strings.HasPrefix(name, "[") {
			if idx := strings.Index(name, "]"); idx >= 0 {
				name = strings.TrimSpace(name[idx+1:])
			}
		}

		href, _ := link.Attr("href")
		if name == "" || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = "https://product.kyobobook.co.kr" + href
		}
		// paper books only
		if strings.Contains(strings.ToLower(href), "ebook") {
			return
		}

		candidates = append(candidates, models.RawCandidate{
			Title:    name,
			URL:      href,
			SourceID: kyoboProductID(href),
		})
	})
	return candidates, nil
}

var kyoboProductIDRe = regexp.MustCompile(`/detail/(\w+)`)

func kyoboProductID(u string) string {
	if m := kyoboProductIDRe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

type kyoboStatsResponse struct {
	ResultCode string `json:"resultCode"`
	Data       struct {
		RevwRvgrAvg *float64 `json:"revwRvgrAvg"`
	} `json:"data"`
}

type kyoboCountResponse struct {
	ResultCode string `json:"resultCode"`
	Data       []struct {
		RevwPatrCode string `json:"revwPatrCode"`
		Count        int    `json:"count"`
	} `json:"data"`
}

func (k *Kyobo) FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error) {
	if c.SourceID == "" {
		return Detail{}, fmt.Errorf("kyobo: no product id in %s: %w", c.URL, ErrParse)
	}

	var d Detail

	var stats kyoboStatsResponse
	res, err := k.client.R().
		SetContext(ctx).
		SetHeader("Referer", "https://product.kyobobook.co.kr/").
		SetQueryParam("saleCmdtid", c.SourceID).
		SetResult(&stats).
		Get("https://product.kyobobook.co.kr/api/review/statistics")
	if err != nil {
		return Detail{}, fmt.Errorf("kyobo: statistics api: %w", err)
	}
	if res.StatusCode() != 200 {
		return Detail{}, statusErr("kyobo", res.StatusCode())
	}
	if stats.ResultCode == "000000" && stats.Data.RevwRvgrAvg != nil {
		avg := *stats.Data.RevwRvgrAvg
		if avg > 0 && avg <= 10 {
			d.RawRating = floatPtr(avg)
		}
	}

	var counts kyoboCountResponse
	res, err = k.client.R().
		SetContext(ctx).
		SetHeader("Referer", "https://product.kyobobook.co.kr/").
		SetQueryParam("saleCmdtid", c.SourceID).
		SetResult(&counts).
		Get("https://product.kyobobook.co.kr/api/gw/pdt/review/status-count")
	if err != nil {
		return Detail{}, fmt.Errorf("kyobo: status-count api: %w", err)
	}
	if res.StatusCode() == 200 && counts.ResultCode == "000000" {
		for _, item := range counts.Data {
			// revwPatrCode 000 is the all-reviews bucket
			if item.RevwPatrCode == "000" {
				d.ReviewCount = item.Count
				break
			}
		}
	}

	return d, nil
}
