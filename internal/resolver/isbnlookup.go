package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/go-resty/resty/v2"
)

// Edition is one book edition as reported by a bibliographic provider.
type Edition struct {
	Title   string
	Authors []string
	ISBN    string
}

// Provider answers title/author and ISBN questions against one
// bibliographic catalog.
type Provider interface {
	Name() string
	Search(ctx context.Context, title, author string) (*Edition, error)
	FindOriginalByISBN(ctx context.Context, isbn string) (*Edition, error)
}

// ISBNLookup tries providers in order and takes the first answer.
// Google Books goes first when a key is configured; Open Library needs
// no key and is always last.
type ISBNLookup struct {
	providers []Provider
}

func NewISBNLookup(userAgent, googleKey string, timeout time.Duration) *ISBNLookup {
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout)

	var providers []Provider
	if googleKey != "" {
		providers = append(providers, &googleBooks{client: client, key: googleKey})
	}
	providers = append(providers, &openLibrary{client: client})
	return &ISBNLookup{providers: providers}
}

// ISBN resolves a title (and optional author) to an ISBN, or "".
func (l *ISBNLookup) ISBN(ctx context.Context, title, author string) string {
	for _, p := range l.providers {
		ed, err := p.Search(ctx, title, author)
		if err == nil && ed != nil && ed.ISBN != "" {
			return ed.ISBN
		}
	}
	return ""
}

// FindOriginal resolves a Korean edition's ISBN to the original work's
// title and, when the catalog knows one, an original-edition ISBN.
func (l *ISBNLookup) FindOriginal(ctx context.Context, isbn string) *Edition {
	if isbn == "" {
		return nil
	}
	for _, p := range l.providers {
		ed, err := p.FindOriginalByISBN(ctx, isbn)
		if err == nil && ed != nil {
			return ed
		}
	}
	return nil
}

// cleanTitle drops parentheses and colons that confuse catalog search.
func cleanTitle(title string) string {
	r := strings.NewReplacer("(", " ", ")", " ", ":", " ")
	return strings.Join(strings.Fields(r.Replace(title)), " ")
}

// titlesAlike accepts containment either way, else string similarity.
func titlesAlike(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == "" || lb == "" {
		return false
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	return matchr.JaroWinkler(la, lb, false) >= 0.8
}

// openLibrary queries openlibrary.org. The original-edition path walks
// ISBN to edition to work, then scans the work's editions for an
// English one, falling back to any non-Korean edition.
type openLibrary struct {
	client *resty.Client
}

func (o *openLibrary) Name() string { return "open_library" }

type olSearchResponse struct {
	Docs []struct {
		Title      string   `json:"title"`
		AuthorName []string `json:"author_name"`
		ISBN       []string `json:"isbn"`
	} `json:"docs"`
}

func (o *openLibrary) Search(ctx context.Context, title, author string) (*Edition, error) {
	q := cleanTitle(title)
	if author != "" {
		q += " " + author
	}

	var body olSearchResponse
	res, err := o.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": q, "limit": "5"}).
		SetResult(&body).
		Get("https://openlibrary.org/search.json")
	if err != nil {
		return nil, fmt.Errorf("open_library: search: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("open_library: search: status %d", res.StatusCode())
	}

	for _, doc := range body.Docs {
		if isbn := pickISBN(doc.ISBN); isbn != "" {
			return &Edition{Title: doc.Title, Authors: doc.AuthorName, ISBN: isbn}, nil
		}
	}
	return nil, nil
}

// pickISBN prefers a 13-digit ISBN over a 10-digit one.
func pickISBN(isbns []string) string {
	var ten string
	for _, i := range isbns {
		if len(i) == 13 {
			return i
		}
		if len(i) == 10 && ten == "" {
			ten = i
		}
	}
	return ten
}

type olEdition struct {
	Works []struct {
		Key string `json:"key"`
	} `json:"works"`
}

type olWork struct {
	Title string `json:"title"`
}

type olEditionEntry struct {
	ISBN13    []string `json:"isbn_13"`
	ISBN10    []string `json:"isbn_10"`
	Languages []struct {
		Key string `json:"key"`
	} `json:"languages"`
}

func (e olEditionEntry) hasLang(key string) bool {
	for _, l := range e.Languages {
		if l.Key == key {
			return true
		}
	}
	return false
}

type olEditionsPage struct {
	Entries []olEditionEntry `json:"entries"`
}

func (o *openLibrary) FindOriginalByISBN(ctx context.Context, isbn string) (*Edition, error) {
	var edition olEdition
	res, err := o.client.R().SetContext(ctx).SetResult(&edition).
		Get("https://openlibrary.org/isbn/" + isbn + ".json")
	if err != nil {
		return nil, fmt.Errorf("open_library: edition %s: %w", isbn, err)
	}
	if res.StatusCode() != 200 || len(edition.Works) == 0 {
		return nil, nil
	}
	workKey := edition.Works[0].Key
	if workKey == "" {
		return nil, nil
	}

	var work olWork
	res, err = o.client.R().SetContext(ctx).SetResult(&work).
		Get("https://openlibrary.org" + workKey + ".json")
	if err != nil {
		return nil, fmt.Errorf("open_library: work %s: %w", workKey, err)
	}
	if res.StatusCode() != 200 || work.Title == "" {
		return nil, nil
	}

	var page olEditionsPage
	res, err = o.client.R().SetContext(ctx).
		SetQueryParam("limit", "20").
		SetResult(&page).
		Get("https://openlibrary.org" + workKey + "/editions.json")
	if err != nil {
		return nil, fmt.Errorf("open_library: editions %s: %w", workKey, err)
	}

	original := &Edition{Title: work.Title}
	if res.StatusCode() == 200 {
		original.ISBN = pickOriginalEdition(page)
	}
	return original, nil
}

// pickOriginalEdition prefers an English edition's ISBN, then any
// non-Korean edition's.
func pickOriginalEdition(page olEditionsPage) string {
	for _, e := range page.Entries {
		if isbn := firstOf(e.ISBN13, e.ISBN10); isbn != "" && e.hasLang("/languages/eng") {
			return isbn
		}
	}
	for _, e := range page.Entries {
		if isbn := firstOf(e.ISBN13, e.ISBN10); isbn != "" && !e.hasLang("/languages/kor") {
			return isbn
		}
	}
	return ""
}

func firstOf(lists ...[]string) string {
	for _, l := range lists {
		if len(l) > 0 {
			return l[0]
		}
	}
	return ""
}

// googleBooks queries the Books API; requires a key.
type googleBooks struct {
	client *resty.Client
	key    string
}

func (g *googleBooks) Name() string { return "google_books" }

type gbVolumeInfo struct {
	Title               string   `json:"title"`
	Authors             []string `json:"authors"`
	Language            string   `json:"language"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
}

type gbResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo gbVolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

func (g *googleBooks) volumes(ctx context.Context, query string, extra map[string]string) (*gbResponse, error) {
	var body gbResponse
	req := g.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("key", g.key).
		SetResult(&body)
	for k, v := range extra {
		req.SetQueryParam(k, v)
	}
	res, err := req.Get("https://www.googleapis.com/books/v1/volumes")
	if err != nil {
		return nil, fmt.Errorf("google_books: volumes: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("google_books: volumes: status %d", res.StatusCode())
	}
	return &body, nil
}

func (info gbVolumeInfo) isbn() string {
	var ten string
	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			if ten == "" {
				ten = id.Identifier
			}
		}
	}
	return ten
}

func (g *googleBooks) Search(ctx context.Context, title, author string) (*Edition, error) {
	q := `intitle:"` + cleanTitle(title) + `"`
	if author != "" {
		q += ` inauthor:"` + strings.SplitN(author, ",", 2)[0] + `"`
	}

	body, err := g.volumes(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	for _, item := range body.Items {
		info := item.VolumeInfo
		if !titlesAlike(title, info.Title) {
			continue
		}
		if isbn := info.isbn(); isbn != "" {
			return &Edition{Title: info.Title, Authors: info.Authors, ISBN: isbn}, nil
		}
	}
	return nil, nil
}

func (g *googleBooks) FindOriginalByISBN(ctx context.Context, isbn string) (*Edition, error) {
	body, err := g.volumes(ctx, "isbn:"+isbn, nil)
	if err != nil || len(body.Items) == 0 {
		return nil, err
	}

	info := body.Items[0].VolumeInfo
	// a non-Asian-language record for this ISBN is the original itself
	if info.Language != "ko" && info.Language != "ja" && info.Language != "zh" {
		if info.Title == "" {
			return nil, nil
		}
		return &Edition{Title: info.Title, Authors: info.Authors, ISBN: info.isbn()}, nil
	}

	// otherwise hunt for an English edition by the same author
	for _, author := range info.Authors {
		ed, err := g.englishEditionByAuthor(ctx, author)
		if err == nil && ed != nil {
			return ed, nil
		}
	}
	return nil, nil
}

func (g *googleBooks) englishEditionByAuthor(ctx context.Context, author string) (*Edition, error) {
	body, err := g.volumes(ctx, `inauthor:"`+author+`"`, map[string]string{
		"langRestrict": "en",
		"maxResults":   "5",
	})
	if err != nil {
		return nil, err
	}
	for _, item := range body.Items {
		info := item.VolumeInfo
		if info.Title != "" {
			return &Edition{Title: info.Title, Authors: info.Authors, ISBN: info.isbn()}, nil
		}
	}
	return nil, nil
}
