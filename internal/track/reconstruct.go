package track

import (
	"cmp"
	"slices"
	"time"

	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/benmeehan/geotrack/internal/models"
)

// Reconstructor turns flat point rows into per-identity tracks.
type Reconstructor struct {
	opts   Options
	filter Filter
}

// NewReconstructor creates a Reconstructor.
func NewReconstructor(opts Options) *Reconstructor {
	return &Reconstructor{opts: opts, filter: opts.Filter()}
}

// Reconstruct groups rows by identity, keeping the first-seen order of the
// identities and the row order within each of them. Groups without a single
// point passing the filter are dropped. When date is empty each track's day
// is derived from its earliest timestamp.
func (r *Reconstructor) Reconstruct(date string, rows []models.PointRow) []models.Track {
	index := make(map[models.Identity]int)
	var groups []models.Track
	for _, row := range rows {
		i, ok := index[row.Identity]
		if !ok {
			i = len(groups)
			index[row.Identity] = i
			groups = append(groups, models.Track{Identity: row.Identity, Date: date})
		}
		groups[i].Points = append(groups[i].Points, row.GpsPoint)
	}

	tracks := groups[:0]
	for _, t := range groups {
		if !r.filter.Any(t.Points) {
			r.opts.Logger.Debug().
				Str("user", t.User).
				Str("device", t.Device).
				Int("points", len(t.Points)).
				Msg("Dropping track without accurate points")
			continue
		}
		if t.Date == "" {
			t.Date = r.deriveDate(t.Points)
		}
		tracks = append(tracks, t)
	}
	return tracks
}

// deriveDate returns the calendar day of the earliest parseable timestamp in
// the configured location, or the date prefix of the first timestamp.
func (r *Reconstructor) deriveDate(points []models.GpsPoint) string {
	var span TimeSpanStats
	for _, p := range points {
		if t, err := ParseTimestamp(p.Timestamp, r.opts.location()); err == nil {
			span.Add(t)
		}
	}
	if start, ok := span.Start(); ok {
		return start.In(r.opts.location()).Format(constants.DateLayout)
	}
	if len(points) > 0 && len(points[0].Timestamp) >= 10 {
		return points[0].Timestamp[:10]
	}
	return ""
}

// Summarize builds the listing row of t over all of its points, including
// those the filter rejects.
func (r *Reconstructor) Summarize(t models.Track) models.TrackInfo {
	info := models.TrackInfo{
		User:   t.User,
		Device: t.Device,
		Date:   t.Date,
		Points: len(t.Points),
	}

	var speed, elevation MinMax[int16]
	var start, end time.Time
	var seen bool
	for _, p := range t.Points {
		if r.filter.Keep(p) {
			info.PointsKept++
		}
		if p.Speed != nil {
			speed.Add(*p.Speed)
		}
		if p.Elevation != nil {
			elevation.Add(*p.Elevation)
		}

		ts, err := ParseTimestamp(p.Timestamp, r.opts.location())
		if err != nil {
			r.opts.Logger.Info().Err(err).Msg("Ignoring invalid timestamp")
			continue
		}
		if !seen || ts.Before(start) {
			start, info.TsStart = ts, p.Timestamp
		}
		if !seen || !ts.Before(end) {
			end, info.TsEnd = ts, p.Timestamp
		}
		seen = true
	}

	info.SpeedMin = ptr(speed.Min())
	info.SpeedMax = ptr(speed.Max())
	info.ElevationMin = ptr(elevation.Min())
	info.ElevationMax = ptr(elevation.Max())
	return info
}

// SummarizeAll summarizes every track, latest ending first.
func (r *Reconstructor) SummarizeAll(tracks []models.Track) []models.TrackInfo {
	infos := make([]models.TrackInfo, 0, len(tracks))
	for _, t := range tracks {
		infos = append(infos, r.Summarize(t))
	}
	r.SortByEnd(infos)
	return infos
}

// SortByEnd orders infos by descending end time. Rows whose end time cannot
// be parsed sort last; ties keep their order.
func (r *Reconstructor) SortByEnd(infos []models.TrackInfo) {
	loc := r.opts.location()
	slices.SortStableFunc(infos, func(a, b models.TrackInfo) int {
		ta, errA := ParseTimestamp(a.TsEnd, loc)
		tb, errB := ParseTimestamp(b.TsEnd, loc)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return cmp.Compare(tb.UnixNano(), ta.UnixNano())
	})
}

func ptr(v int16, ok bool) *int16 {
	if !ok {
		return nil
	}
	return &v
}
