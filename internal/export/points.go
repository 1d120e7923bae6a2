package export

import (
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/benmeehan/geotrack/internal/track"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Points renders one Point feature per kept fix. Feature ids count the kept
// fixes across all tracks. The collection carries the bounding box and the
// track statistics as foreign members.
func (e *Exporter) Points(tracks []models.Track) (Document, error) {
	fc := geojson.NewFeatureCollection()
	stats := track.NewTrackStats(e.opts)

	id := 0
	for _, t := range tracks {
		stats.NextTrack()
		for p := range e.filter.Points(t.Points) {
			stats.Add(p)

			f := geojson.NewFeature(orb.Point{p.X, p.Y})
			f.ID = id
			f.Properties = pointProperties(t.Identity, p)
			fc.Append(f)
			id++
		}
	}

	fc.BBox = stats.BBox()
	fc.ExtraMembers = stats.Properties()
	return geoJSON(fc)
}

// Positions renders the latest fix of each device with the point layout.
// States are not grouped by day; every state counts as a track of its own.
func (e *Exporter) Positions(states []models.DeviceState) (Document, error) {
	tracks := make([]models.Track, 0, len(states))
	for _, s := range states {
		tracks = append(tracks, models.Track{
			Identity: s.Identity,
			Points:   []models.GpsPoint{s.Point},
		})
	}
	return e.Points(tracks)
}
