package track

import (
	"iter"
	"time"

	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/rs/zerolog"
)

// Options carries the values the reconstruction and export code would otherwise
// read from ambient state.
type Options struct {
	// MaxAccuracy is the accuracy cutoff in meters; fixes at or above it are dropped.
	MaxAccuracy int32

	// Location is the zone timestamps without an explicit offset are read in,
	// and the zone calendar days are derived in.
	Location *time.Location

	Logger zerolog.Logger
}

// DefaultOptions returns the fixed accuracy cutoff, UTC and a no-op logger.
func DefaultOptions() Options {
	return Options{
		MaxAccuracy: constants.MaxAccuracy,
		Location:    time.UTC,
		Logger:      zerolog.Nop(),
	}
}

// Filter returns the point filter configured by o.
func (o Options) Filter() Filter {
	return NewFilter(o.MaxAccuracy)
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Filter decides which fixes are accurate enough to be used.
type Filter struct {
	maxAccuracy int32
}

// NewFilter creates a Filter. A non-positive cutoff falls back to constants.MaxAccuracy.
func NewFilter(maxAccuracy int32) Filter {
	if maxAccuracy <= 0 {
		maxAccuracy = constants.MaxAccuracy
	}
	return Filter{maxAccuracy: maxAccuracy}
}

// Keep reports whether p passes the accuracy cutoff. An unknown accuracy counts as 0.
func (f Filter) Keep(p models.GpsPoint) bool {
	var accuracy int32
	if p.Accuracy != nil {
		accuracy = *p.Accuracy
	}
	return accuracy < f.threshold()
}

// Points yields the kept fixes of points in order.
func (f Filter) Points(points []models.GpsPoint) iter.Seq[models.GpsPoint] {
	return func(yield func(models.GpsPoint) bool) {
		for _, p := range points {
			if !f.Keep(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Collect returns the kept fixes of points as a new slice.
func (f Filter) Collect(points []models.GpsPoint) []models.GpsPoint {
	kept := make([]models.GpsPoint, 0, len(points))
	for p := range f.Points(points) {
		kept = append(kept, p)
	}
	return kept
}

// Any reports whether at least one of points is kept.
func (f Filter) Any(points []models.GpsPoint) bool {
	for range f.Points(points) {
		return true
	}
	return false
}

func (f Filter) threshold() int32 {
	if f.maxAccuracy <= 0 {
		return constants.MaxAccuracy
	}
	return f.maxAccuracy
}
