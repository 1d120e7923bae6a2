package track_test

import (
	"math"
	"testing"

	"github.com/benmeehan/geotrack/internal/track"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVincentyDistance(t *testing.T) {
	tests := []struct {
		name     string
		p1, p2   orb.Point
		expected float64
	}{
		{"same point", orb.Point{8.5, 47.3}, orb.Point{8.5, 47.3}, 0},
		{"one degree along the equator", orb.Point{0, 0}, orb.Point{1, 0}, 111319.4908},
		{"Flinders Peak to Buninyong", orb.Point{144.42486788888888, -37.95103341666667}, orb.Point{143.92649552777777, -37.65282113888889}, 54972.2711},
		{"diagonal", orb.Point{0, 0}, orb.Point{1, 1}, 156899.5683},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := track.VincentyDistance(tt.p1, tt.p2)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, d, 1e-3)

			back, err := track.VincentyDistance(tt.p2, tt.p1)
			require.NoError(t, err)
			assert.InDelta(t, d, back, 1e-6)
		})
	}
}

func TestVincentyDistance_NoConvergence(t *testing.T) {
	_, err := track.VincentyDistance(orb.Point{0, 0}, orb.Point{179.7, 0.5})
	assert.ErrorIs(t, err, track.ErrNoConvergence)

	_, err = track.VincentyDistance(orb.Point{math.NaN(), 0}, orb.Point{1, 1})
	assert.ErrorIs(t, err, track.ErrNoConvergence)
}
