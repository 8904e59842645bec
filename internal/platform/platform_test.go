package platform

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

func TestIsISBN(t *testing.T) {
	require.True(t, IsISBN("9788936434120"))
	require.True(t, IsISBN("978-89-364-3412-0"))
	require.True(t, IsISBN("8936434128"))

	require.False(t, IsISBN("밝은 밤"))
	require.False(t, IsISBN("12345"))
	require.False(t, IsISBN("97889364341201")) // 14 digits
	require.False(t, IsISBN("97889364341X0"))
}

func TestCleanISBN(t *testing.T) {
	require.Equal(t, "9788936434120", CleanISBN("978-89-3643 412-0"))
}

func TestAladinAuthor(t *testing.T) {
	require.Equal(t, "키코 야네라스", aladinAuthor("키코 야네라스 (지은이), 이소영 (옮긴이)"))
	require.Equal(t, "최은영", aladinAuthor("최은영 (지은이)"))
	require.Equal(t, "최은영", aladinAuthor("최은영, 김초엽"))
}

func TestSplitPrimaryTitle(t *testing.T) {
	require.Equal(t, "밝은 밤", splitPrimaryTitle("밝은 밤 : 최은영 장편소설"))
	require.Equal(t, "데미안", splitPrimaryTitle("데미안 - 헤르만 헤세"))
	require.Equal(t, "파친코", splitPrimaryTitle("파친코"))
}

func TestAladinScoreRanksExactTitleFirst(t *testing.T) {
	exact := aladinItem{Title: "밝은 밤", SalesPoint: 1000}
	workbook := aladinItem{Title: "밝은 밤 워크북", SalesPoint: 1000}
	require.Greater(t, aladinScore("밝은 밤", exact), aladinScore("밝은 밤", workbook))
}

func TestExtractBookLD(t *testing.T) {
	page := `<html><head>
		<script type="application/ld+json">{"not":"a book"}</script>
		<script type="application/ld+json">
		{"name":"Pachinko","aggregateRating":{"ratingValue":4.32,"ratingCount":412533}}
		</script>
	</head><body></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	ld, ok := extractBookLD(doc)
	require.True(t, ok)
	require.Equal(t, "Pachinko", ld.Name)
	require.NotNil(t, ld.rating())
	require.InDelta(t, 4.32, *ld.rating(), 1e-9)
	require.Equal(t, 412533, ld.reviews())
}

func TestExtractBookLDMissing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>no metadata</body></html>"))
	require.NoError(t, err)

	_, ok := extractBookLD(doc)
	require.False(t, ok)
}

func TestBookLDReviewsFallsBackToReviewCount(t *testing.T) {
	var ld bookLD
	ld.AggregateRating.ReviewCount = 17
	require.Equal(t, 17, ld.reviews())
}

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(badAdapter{models.PlatformDescriptor{ID: "", Group: models.GroupNetwork, Scale: 10}})
	require.Error(t, err)

	err = r.Register(badAdapter{models.PlatformDescriptor{ID: "x", Group: "carrier-pigeon", Scale: 10}})
	require.Error(t, err)

	err = r.Register(badAdapter{models.PlatformDescriptor{ID: "x", Group: models.GroupNetwork, Scale: 0}})
	require.Error(t, err)

	good := badAdapter{models.PlatformDescriptor{ID: "x", Group: models.GroupNetwork, Scale: 10}}
	require.NoError(t, r.Register(good))
	require.Error(t, r.Register(good), "duplicate id")
}

func TestDefaultRegistryHonorsDisabledPlatforms(t *testing.T) {
	cfg := utils.DefaultCrawlConfig()
	cfg.DisabledPlatforms = []string{"amazon", "librarything"}

	r, err := Default(cfg)
	require.NoError(t, err)

	ids := r.IDs()
	require.NotContains(t, ids, "amazon")
	require.NotContains(t, ids, "librarything")
	require.Contains(t, ids, "aladin")
	require.Contains(t, ids, "kyobo")
	require.Len(t, ids, 6)
}

func TestDescriptorsKeepDisplayOrder(t *testing.T) {
	r, err := Default(utils.DefaultCrawlConfig())
	require.NoError(t, err)

	descs := r.Descriptors()
	require.Len(t, descs, 8)
	require.Equal(t, "aladin", descs[0].ID)
	for i := 1; i < len(descs); i++ {
		require.Less(t, descs[i-1].Order, descs[i].Order)
	}
}

type badAdapter struct {
	desc models.PlatformDescriptor
}

func (b badAdapter) Descriptor() models.PlatformDescriptor { return b.desc }
func (b badAdapter) Search(_ context.Context, _ string) ([]models.RawCandidate, error) {
	return nil, nil
}
func (b badAdapter) FetchDetail(_ context.Context, _ models.RawCandidate) (Detail, error) {
	return Detail{}, nil
}
