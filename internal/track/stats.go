package track

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/benmeehan/geotrack/internal/models"
	"github.com/paulmach/orb"
)

// MinMax tracks the running minimum and maximum of the values added to it.
type MinMax[T cmp.Ordered] struct {
	min, max T
	seen     bool
}

// Add observes v.
func (m *MinMax[T]) Add(v T) {
	if !m.seen {
		m.min, m.max, m.seen = v, v, true
		return
	}
	if v < m.min {
		m.min = v
	}
	if v > m.max {
		m.max = v
	}
}

// Min returns the smallest value seen so far.
func (m *MinMax[T]) Min() (T, bool) { return m.min, m.seen }

// Max returns the largest value seen so far.
func (m *MinMax[T]) Max() (T, bool) { return m.max, m.seen }

// OnlineStats computes mean and variance in a single pass (Welford).
type OnlineStats struct {
	n    int
	mean float64
	m2   float64
}

// Add observes v.
func (s *OnlineStats) Add(v float64) {
	s.n++
	delta := v - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (v - s.mean)
}

// Len returns the number of observed values.
func (s *OnlineStats) Len() int { return s.n }

// Mean returns the arithmetic mean of the observed values.
func (s *OnlineStats) Mean() (float64, bool) {
	if s.n == 0 {
		return 0, false
	}
	return s.mean, true
}

// Variance returns the population variance of the observed values.
func (s *OnlineStats) Variance() (float64, bool) {
	if s.n == 0 {
		return 0, false
	}
	return s.m2 / float64(s.n), true
}

// BBoxStats tracks the bounding box of the points added to it.
type BBoxStats struct {
	bound orb.Bound
	seen  bool
}

// Add extends the box to include p.
func (b *BBoxStats) Add(p orb.Point) {
	if !b.seen {
		b.bound, b.seen = p.Bound(), true
		return
	}
	b.bound = b.bound.Extend(p)
}

// BBox returns [xmin, ymin, xmax, ymax], or nil before the first point.
func (b *BBoxStats) BBox() []float64 {
	if !b.seen {
		return nil
	}
	return []float64{b.bound.Min.X(), b.bound.Min.Y(), b.bound.Max.X(), b.bound.Max.Y()}
}

// DistanceStats sums the geodesic length of consecutive point pairs.
type DistanceStats struct {
	prev    orb.Point
	hasPrev bool
	meters  float64
	skipped int
}

// Add pairs p with the previously added point. A pair the geodesic solver
// cannot handle contributes nothing; the error is returned for logging and
// accumulation continues with p as the new pair start.
func (d *DistanceStats) Add(p orb.Point) error {
	prev, hasPrev := d.prev, d.hasPrev
	d.prev, d.hasPrev = p, true
	if !hasPrev {
		return nil
	}

	meters, err := VincentyDistance(prev, p)
	if err != nil {
		d.skipped++
		return fmt.Errorf("distance %v -> %v: %w", prev, p, err)
	}
	d.meters += meters
	return nil
}

// Meters returns the accumulated distance.
func (d *DistanceStats) Meters() float64 { return d.meters }

// Skipped returns the number of pairs left out because the solver failed.
func (d *DistanceStats) Skipped() int { return d.skipped }

// ElevationDiffStats accumulates climb and descent between consecutive
// fixes that report an elevation. Fixes without elevation are skipped and do
// not break the pairing.
type ElevationDiffStats struct {
	prev    int16
	hasPrev bool
	up      int64
	down    int64
}

// Add observes an optional elevation.
func (e *ElevationDiffStats) Add(elevation *int16) {
	if elevation == nil {
		return
	}
	v := *elevation
	if e.hasPrev {
		delta := int64(v) - int64(e.prev)
		if delta > 0 {
			e.up += delta
		} else {
			e.down -= delta
		}
	}
	e.prev, e.hasPrev = v, true
}

// Up returns the total climb in meters.
func (e *ElevationDiffStats) Up() int64 { return e.up }

// Down returns the total descent in meters as a positive number.
func (e *ElevationDiffStats) Down() int64 { return e.down }

// TimeSpanStats tracks the earliest and latest instant added to it.
type TimeSpanStats struct {
	ts MinMax[int64]
}

// Add observes t.
func (s *TimeSpanStats) Add(t time.Time) {
	s.ts.Add(t.UnixNano())
}

// Start returns the earliest instant.
func (s *TimeSpanStats) Start() (time.Time, bool) {
	v, ok := s.ts.Min()
	return time.Unix(0, v).UTC(), ok
}

// End returns the latest instant.
func (s *TimeSpanStats) End() (time.Time, bool) {
	v, ok := s.ts.Max()
	return time.Unix(0, v).UTC(), ok
}

// Duration returns End - Start.
func (s *TimeSpanStats) Duration() (time.Duration, bool) {
	start, ok := s.ts.Min()
	if !ok {
		return 0, false
	}
	end, _ := s.ts.Max()
	return time.Duration(end - start), true
}

// TrackStats feeds every accumulator from a single traversal of fixes.
// Pairwise accumulators (distance, elevation delta) are scoped to one track;
// call NextTrack between tracks so pairs never span two of them.
type TrackStats struct {
	opts Options

	speed          MinMax[int16]
	speedStats     OnlineStats
	elevation      MinMax[int16]
	elevationStats OnlineStats
	span           TimeSpanStats
	bbox           BBoxStats

	distance      DistanceStats
	elevationDiff ElevationDiffStats
	meters        float64
	up, down      int64

	points            int
	invalidTimestamps int
}

// NewTrackStats creates an empty TrackStats.
func NewTrackStats(opts Options) *TrackStats {
	return &TrackStats{opts: opts}
}

// NextTrack closes the current pairing window.
func (s *TrackStats) NextTrack() {
	s.meters += s.distance.Meters()
	s.up += s.elevationDiff.Up()
	s.down += s.elevationDiff.Down()
	s.distance = DistanceStats{}
	s.elevationDiff = ElevationDiffStats{}
}

// Add observes one fix.
func (s *TrackStats) Add(p models.GpsPoint) {
	s.points++

	if t, err := ParseTimestamp(p.Timestamp, s.opts.location()); err == nil {
		s.span.Add(t)
	} else {
		s.invalidTimestamps++
		s.opts.Logger.Info().Err(err).Msg("Ignoring invalid timestamp")
	}
	if p.Speed != nil {
		s.speed.Add(*p.Speed)
		s.speedStats.Add(float64(*p.Speed))
	}
	if p.Elevation != nil {
		s.elevation.Add(*p.Elevation)
		s.elevationStats.Add(float64(*p.Elevation))
	}

	pt := orb.Point{p.X, p.Y}
	s.bbox.Add(pt)
	if err := s.distance.Add(pt); err != nil {
		s.opts.Logger.Warn().Err(err).Msg("Skipping distance of point pair")
	}
	s.elevationDiff.Add(p.Elevation)
}

// AddAll observes every fix of seq as one track.
func (s *TrackStats) AddAll(seq iter.Seq[models.GpsPoint]) {
	s.NextTrack()
	for p := range seq {
		s.Add(p)
	}
}

// Points returns the number of observed fixes.
func (s *TrackStats) Points() int { return s.points }

// BBox returns the bounding box of the observed fixes, or nil if there were none.
func (s *TrackStats) BBox() []float64 { return s.bbox.BBox() }

// Distance returns the total geodesic length in meters.
func (s *TrackStats) Distance() float64 { return s.meters + s.distance.Meters() }

// ElevationUp returns the total climb in meters.
func (s *TrackStats) ElevationUp() int64 { return s.up + s.elevationDiff.Up() }

// ElevationDown returns the total descent in meters.
func (s *TrackStats) ElevationDown() int64 { return s.down + s.elevationDiff.Down() }

// Properties renders the statistics as GeoJSON foreign members.
// Values that are unknown are null.
func (s *TrackStats) Properties() map[string]interface{} {
	props := map[string]interface{}{
		"min_speed":      minOf(&s.speed),
		"max_speed":      maxOf(&s.speed),
		"mean_speed":     optionalFloat(s.speedStats.Mean()),
		"min_elevation":  minOf(&s.elevation),
		"max_elevation":  maxOf(&s.elevation),
		"mean_elevation": optionalFloat(s.elevationStats.Mean()),
		"ts_start":       nil,
		"ts_end":         nil,
		"duration":       nil,
		"distance":       s.Distance(),
		"elevation_up":   s.ElevationUp(),
		"elevation_down": s.ElevationDown(),
	}
	if start, ok := s.span.Start(); ok {
		props["ts_start"] = FormatTimestamp(start)
	}
	if end, ok := s.span.End(); ok {
		props["ts_end"] = FormatTimestamp(end)
	}
	if d, ok := s.span.Duration(); ok {
		props["duration"] = int64(d / time.Second)
	}
	return props
}

func minOf[T cmp.Ordered](m *MinMax[T]) interface{} {
	if v, ok := m.Min(); ok {
		return v
	}
	return nil
}

func maxOf[T cmp.Ordered](m *MinMax[T]) interface{} {
	if v, ok := m.Max(); ok {
		return v
	}
	return nil
}

func optionalFloat(v float64, ok bool) interface{} {
	if !ok || math.IsNaN(v) {
		return nil
	}
	return v
}
