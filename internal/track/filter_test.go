package track_test

import (
	"math/rand/v2"
	"testing"

	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/benmeehan/geotrack/internal/track"
	"github.com/stretchr/testify/assert"
)

func acc(v int32) *int32 { return &v }

func i16(v int16) *int16 { return &v }

// randomPoints builds n points with accuracies spread around the cutoff; roughly
// one in five has no accuracy at all.
func randomPoints(rng *rand.Rand, n int) []models.GpsPoint {
	points := make([]models.GpsPoint, n)
	for i := range points {
		points[i] = models.GpsPoint{
			X:         rng.Float64()*360 - 180,
			Y:         rng.Float64()*170 - 85,
			Timestamp: "2025-02-19 06:46:54+00",
		}
		if rng.IntN(5) > 0 {
			points[i].Accuracy = acc(rng.Int32N(400))
		}
		if rng.IntN(2) == 0 {
			points[i].Elevation = i16(int16(rng.IntN(3000)))
		}
	}
	return points
}

func TestFilter_Keep(t *testing.T) {
	f := track.NewFilter(constants.MaxAccuracy)

	assert.True(t, f.Keep(models.GpsPoint{}), "unknown accuracy is kept")
	assert.True(t, f.Keep(models.GpsPoint{Accuracy: acc(0)}))
	assert.True(t, f.Keep(models.GpsPoint{Accuracy: acc(199)}))
	assert.False(t, f.Keep(models.GpsPoint{Accuracy: acc(200)}))
	assert.False(t, f.Keep(models.GpsPoint{Accuracy: acc(5000)}))
}

func TestNewFilter_NonPositiveFallsBack(t *testing.T) {
	f := track.NewFilter(0)

	assert.True(t, f.Keep(models.GpsPoint{Accuracy: acc(199)}))
	assert.False(t, f.Keep(models.GpsPoint{Accuracy: acc(200)}))
}

func TestFilter_CustomCutoff(t *testing.T) {
	opts := track.DefaultOptions()
	opts.MaxAccuracy = 50

	f := opts.Filter()

	assert.True(t, f.Keep(models.GpsPoint{Accuracy: acc(49)}))
	assert.False(t, f.Keep(models.GpsPoint{Accuracy: acc(50)}))
}

func TestFilter_PointsKeepsOrder(t *testing.T) {
	// Setup
	points := []models.GpsPoint{
		{X: 1, Accuracy: acc(10)},
		{X: 2, Accuracy: acc(300)},
		{X: 3},
		{X: 4, Accuracy: acc(200)},
		{X: 5, Accuracy: acc(199)},
	}

	// Execute
	kept := track.NewFilter(constants.MaxAccuracy).Collect(points)

	// Assert
	var xs []float64
	for _, p := range kept {
		xs = append(xs, p.X)
	}
	assert.Equal(t, []float64{1, 3, 5}, xs)
}

func TestFilter_PointsStopsEarly(t *testing.T) {
	points := []models.GpsPoint{{X: 1}, {X: 2}, {X: 3}}

	var seen int
	for range track.NewFilter(constants.MaxAccuracy).Points(points) {
		seen++
		if seen == 2 {
			break
		}
	}

	assert.Equal(t, 2, seen)
}

func TestFilter_Any(t *testing.T) {
	f := track.NewFilter(constants.MaxAccuracy)

	assert.False(t, f.Any(nil))
	assert.False(t, f.Any([]models.GpsPoint{{Accuracy: acc(250)}, {Accuracy: acc(200)}}))
	assert.True(t, f.Any([]models.GpsPoint{{Accuracy: acc(250)}, {}}))
}

func TestFilter_NeverKeepsInaccuratePoints(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	f := track.NewFilter(constants.MaxAccuracy)

	for round := 0; round < 50; round++ {
		points := randomPoints(rng, rng.IntN(40))

		for _, p := range f.Collect(points) {
			if p.Accuracy != nil {
				assert.Less(t, *p.Accuracy, int32(constants.MaxAccuracy))
			}
		}

		stats := track.NewTrackStats(track.DefaultOptions())
		stats.AddAll(f.Points(points))
		expected := 0
		for _, p := range points {
			if p.Accuracy == nil || *p.Accuracy < constants.MaxAccuracy {
				expected++
			}
		}
		assert.Equal(t, expected, stats.Points())
	}
}
