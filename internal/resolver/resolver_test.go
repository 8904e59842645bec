package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainsHangul(t *testing.T) {
	require.True(t, ContainsHangul("밝은 밤"))
	require.True(t, ContainsHangul("Pachinko 파친코"))
	require.False(t, ContainsHangul("Pachinko"))
	require.False(t, ContainsHangul("9788936434120"))
	require.False(t, ContainsHangul(""))
}

func TestForeignQueryAvailable(t *testing.T) {
	require.False(t, ForeignQuery{}.Available())
	require.True(t, ForeignQuery{Query: "Pachinko"}.Available())
}

func TestPickISBNPrefersThirteenDigits(t *testing.T) {
	require.Equal(t, "9780802122926", pickISBN([]string{"0802122922", "9780802122926"}))
	require.Equal(t, "0802122922", pickISBN([]string{"0802122922"}))
	require.Equal(t, "", pickISBN(nil))
}

func TestTitlesAlike(t *testing.T) {
	require.True(t, titlesAlike("Siddhartha", "Siddhartha: A Novel"))
	require.True(t, titlesAlike("The Vegetarian", "the vegetarian"))
	require.False(t, titlesAlike("The Vegetarian", "Human Acts"))
	require.False(t, titlesAlike("", "Human Acts"))
}

func TestCleanTitle(t *testing.T) {
	require.Equal(t, "Demian The Story of Emil Sinclair", cleanTitle("Demian: (The Story of Emil Sinclair)"))
}

func TestPickOriginalEditionPrefersEnglish(t *testing.T) {
	page := olEditionsPage{Entries: []olEditionEntry{
		{ISBN13: []string{"9788936434120"}, Languages: []struct {
			Key string `json:"key"`
		}{{Key: "/languages/kor"}}},
		{ISBN13: []string{"9781846276603"}, Languages: []struct {
			Key string `json:"key"`
		}{{Key: "/languages/eng"}}},
	}}
	require.Equal(t, "9781846276603", pickOriginalEdition(page))
}

func TestPickOriginalEditionSkipsKoreanOnly(t *testing.T) {
	page := olEditionsPage{Entries: []olEditionEntry{
		{ISBN13: []string{"9788936434120"}, Languages: []struct {
			Key string `json:"key"`
		}{{Key: "/languages/kor"}}},
	}}
	require.Equal(t, "", pickOriginalEdition(page))
}

func TestResolvePassesEnglishThrough(t *testing.T) {
	r := New(nil, nil, NewISBNLookup("test", "", 0))

	fq := r.Resolve(context.Background(), "Pachinko Min Jin Lee")
	require.True(t, fq.Available())
	require.Equal(t, "Pachinko Min Jin Lee", fq.Query)
	require.Empty(t, fq.ISBN)
}

func TestResolveKoreanWithoutCatalogSkips(t *testing.T) {
	r := New(nil, nil, NewISBNLookup("test", "", 0))

	fq := r.Resolve(context.Background(), "밝은 밤")
	require.False(t, fq.Available())
}
