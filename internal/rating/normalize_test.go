package rating

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bookhub/pkg/models"
)

func ptr(v float64) *float64 { return &v }

func TestNormalizeScales(t *testing.T) {
	// 5-point scale doubles
	got := Normalize(ptr(4.5), 5)
	require.NotNil(t, got)
	require.InDelta(t, 9.0, *got, 1e-9)

	// 10-point scale is identity
	got = Normalize(ptr(7.3), 10)
	require.NotNil(t, got)
	require.InDelta(t, 7.3, *got, 1e-9)
}

func TestNormalizeNilPropagates(t *testing.T) {
	require.Nil(t, Normalize(nil, 5))
	require.Nil(t, Normalize(ptr(4), 0))
	require.Nil(t, Normalize(ptr(4), -1))
}

func TestNormalizeClamps(t *testing.T) {
	got := Normalize(ptr(5.4), 5) // out-of-range source value
	require.NotNil(t, got)
	require.Equal(t, 10.0, *got)

	got = Normalize(ptr(-1), 5)
	require.NotNil(t, got)
	require.Equal(t, 0.0, *got)
}

func TestNormalizeIdempotentOnReferenceScale(t *testing.T) {
	once := Normalize(ptr(8.6), 10)
	twice := Normalize(once, 10)
	require.NotNil(t, twice)
	require.InDelta(t, *once, *twice, 1e-9)
}

func TestAccumulatorAveragesOnlyRatedPlatforms(t *testing.T) {
	acc := NewAccumulator("exec-1", "밝은 밤")

	acc.Fold(models.PlatformRating{Platform: "aladin", NormalizedRating: ptr(8.0), ReviewCount: 10})
	acc.Fold(models.PlatformRating{Platform: "watcha", NormalizedRating: ptr(6.0), ReviewCount: 5})
	// platform found the book but has no score; counts toward reviews only
	acc.Fold(models.PlatformRating{Platform: "yes24", ReviewCount: 3})

	s := acc.Summary()
	require.Equal(t, "exec-1", s.ExecutionID)
	require.Equal(t, 3, s.PlatformCount)
	require.Equal(t, 18, s.TotalReviews)
	require.NotNil(t, s.AvgRating)
	require.InDelta(t, 7.0, *s.AvgRating, 1e-9)
}

func TestAccumulatorEmptyRun(t *testing.T) {
	s := NewAccumulator("exec-2", "q").Summary()
	require.Nil(t, s.AvgRating)
	require.Zero(t, s.PlatformCount)
	require.Zero(t, s.TotalReviews)
}
