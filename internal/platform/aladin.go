package platform

import (
	"context"
	"fmt"
	"html"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/go-resty/resty/v2"

	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

const aladinAPIBase = "http://www.aladin.co.kr/ttb/api"

// Aladin uses the public TTB JSON API; no page scraping. The search
// response already carries customerReviewRank on the 10-point scale, so
// the rating is folded into the candidates and FetchDetail only adds the
// rating participant count.
type Aladin struct {
	client *resty.Client
	ttbKey string
}

func NewAladin(cfg utils.CrawlConfig) *Aladin {
	return &Aladin{
		client: newClient(cfg.UserAgent, cfg.AdapterTimeout()),
		ttbKey: cfg.AladinTTBKey,
	}
}

func (a *Aladin) Descriptor() models.PlatformDescriptor {
	return models.PlatformDescriptor{
		ID:    "aladin",
		Group: models.GroupNetwork,
		Scale: 10,
		Order: 0,
	}
}

type aladinItem struct {
	Title              string  `json:"title"`
	Link               string  `json:"link"`
	Author             string  `json:"author"`
	Publisher          string  `json:"publisher"`
	ISBN13             string  `json:"isbn13"`
	ItemID             int64   `json:"itemId"`
	SalesPoint         float64 `json:"salesPoint"`
	CustomerReviewRank float64 `json:"customerReviewRank"`
	SubInfo            struct {
		OriginalTitle string `json:"originalTitle"`
		RatingInfo    struct {
			RatingScore        *float64 `json:"ratingScore"`
			RatingCount        int      `json:"ratingCount"`
			CommentReviewCount int      `json:"commentReviewCount"`
		} `json:"ratingInfo"`
	} `json:"subInfo"`
}

type aladinResponse struct {
	Item []aladinItem `json:"item"`
}

func (a *Aladin) api(ctx context.Context, endpoint string, params map[string]string, out any) error {
	req := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("ttbkey", a.ttbKey).
		SetQueryParam("output", "js").
		SetQueryParam("Version", "20131101").
		SetResult(out)

	res, err := req.Get(aladinAPIBase + "/" + endpoint)
	if err != nil {
		return fmt.Errorf("aladin: %s: %w", endpoint, err)
	}
	if res.StatusCode() != 200 {
		return statusErr("aladin", res.StatusCode())
	}
	return nil
}

func (a *Aladin) Search(ctx context.Context, query string) ([]models.RawCandidate, error) {
	if a.ttbKey == "" {
		return nil, fmt.Errorf("aladin: TTB key not configured")
	}

	if IsISBN(query) {
		// the keyword endpoint resolves bare ISBNs too
		query = CleanISBN(query)
	}

	var body aladinResponse
	err := a.api(ctx, "ItemSearch.aspx", map[string]string{
		"Query":        query,
		"QueryType":    "Keyword",
		"MaxResults":   "10",
		"SearchTarget": "Book",
	}, &body)
	if err != nil {
		return nil, err
	}

	items := body.Item
	sort.SliceStable(items, func(i, j int) bool {
		return aladinScore(query, items[i]) > aladinScore(query, items[j])
	})

	candidates := make([]models.RawCandidate, 0, len(items))
	for _, it := range items {
		title := html.UnescapeString(it.Title)
		if title == "" {
			continue
		}
		c := models.RawCandidate{
			Title:    title,
			Author:   aladinAuthor(it.Author),
			URL:      it.Link,
			SourceID: strconv.FormatInt(it.ItemID, 10),
		}
		if it.CustomerReviewRank > 0 {
			c.RawRating = floatPtr(it.CustomerReviewRank)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// aladinScore reproduces the catalog's relevance heuristic: title
// similarity, exact/primary-title bonuses, a sales-point boost, and
// penalties for study guides and secondhand listings.
func aladinScore(query string, it aladinItem) float64 {
	qn := squashKey(query)
	tn := squashKey(html.UnescapeString(it.Title))

	score := matchr.JaroWinkler(qn, tn, false) * 100

	primary := squashKey(splitPrimaryTitle(html.UnescapeString(it.Title)))
	switch {
	case qn == tn, qn == primary:
		score += 50
	case strings.Contains(tn, qn):
		score += 20
	}

	if it.SalesPoint > 0 {
		score += math.Log10(it.SalesPoint) * 15
	}

	for _, p := range []string{"중학생", "초등", "어린이", "청소년", "워크북", "중고", "만화", "코믹스"} {
		if strings.Contains(it.Title, p) {
			score -= 30
		}
	}
	return score
}

var primaryTitleRe = regexp.MustCompile(`[:\-]`)

func splitPrimaryTitle(title string) string {
	return strings.TrimSpace(primaryTitleRe.Split(title, 2)[0])
}

func squashKey(s string) string {
	s = strings.ToLower(s)
	for _, cut := range []string{" ", "-", "_", ",", ".", "(", ")", "[", "]"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	return s
}

var aladinAuthorRe = regexp.MustCompile(`^(.+?)\s*\(지은이\)`)

// aladinAuthor extracts the author name from strings like
// "키코 야네라스 (지은이), 이소영 (옮긴이)".
func aladinAuthor(raw string) string {
	if m := aladinAuthorRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.SplitN(raw, ",", 2)[0])
}

// OriginalInfo is original-edition metadata for a catalog item, used to
// carry a Korean translation back to its source title.
type OriginalInfo struct {
	Title      string
	Author     string
	ISBN13     string
	Translated bool
}

var aladinYearRe = regexp.MustCompile(`\s*\(\d{4}년?\)$`)

// OriginalInfo looks up the item and returns its originalTitle field
// with any trailing "(2009년)" year marker stripped. Translated reports
// whether the author string names a translator.
func (a *Aladin) OriginalInfo(ctx context.Context, itemID string) (OriginalInfo, error) {
	var body aladinResponse
	err := a.api(ctx, "ItemLookUp.aspx", map[string]string{
		"itemIdType": "ItemId",
		"ItemId":     itemID,
	}, &body)
	if err != nil {
		return OriginalInfo{}, err
	}
	if len(body.Item) == 0 {
		return OriginalInfo{}, fmt.Errorf("aladin: item %s not found", itemID)
	}

	item := body.Item[0]
	info := OriginalInfo{
		Author:     aladinAuthor(item.Author),
		ISBN13:     item.ISBN13,
		Translated: strings.Contains(item.Author, "옮긴이"),
	}
	if t := html.UnescapeString(item.SubInfo.OriginalTitle); t != "" {
		info.Title = strings.TrimSpace(aladinYearRe.ReplaceAllString(t, ""))
	}
	return info, nil
}

func (a *Aladin) FetchDetail(ctx context.Context, c models.RawCandidate) (Detail, error) {
	var body aladinResponse
	err := a.api(ctx, "ItemLookUp.aspx", map[string]string{
		"itemIdType": "ItemId",
		"ItemId":     c.SourceID,
		"OptResult":  "ratingInfo",
	}, &body)
	if err != nil {
		return Detail{}, err
	}
	if len(body.Item) == 0 {
		// keep whatever the search response folded in
		return Detail{RawRating: c.RawRating}, nil
	}

	info := body.Item[0].SubInfo.RatingInfo
	d := Detail{RawRating: info.RatingScore, ReviewCount: info.RatingCount}
	if d.RawRating == nil && body.Item[0].CustomerReviewRank > 0 {
		d.RawRating = floatPtr(body.Item[0].CustomerReviewRank)
	}
	if d.RawRating == nil {
		d.RawRating = c.RawRating
	}
	return d, nil
}
