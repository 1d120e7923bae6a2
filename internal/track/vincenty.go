package track

import (
	"errors"
	"fmt"
	"math"

	"github.com/jftuga/geodist"
	"github.com/paulmach/orb"
)

// ErrNoConvergence is returned when the Vincenty iteration does not settle,
// which happens for nearly antipodal points and non-finite coordinates.
var ErrNoConvergence = errors.New("vincenty formula failed to converge")

// VincentyDistance returns the geodesic distance in meters between two
// (lon, lat) points on the WGS-84 ellipsoid using Vincenty's inverse formula.
func VincentyDistance(p1, p2 orb.Point) (float64, error) {
	if !finite(p1) || !finite(p2) {
		return 0, ErrNoConvergence
	}
	if p1.Equal(p2) {
		return 0, nil
	}

	_, km, err := geodist.VincentyDistance(
		geodist.Coord{Lat: p1.Lat(), Lon: p1.Lon()},
		geodist.Coord{Lat: p2.Lat(), Lon: p2.Lon()},
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoConvergence, err)
	}
	return km * 1000, nil
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
