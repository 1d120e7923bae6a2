package export

import (
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Lines renders one LineString feature per track, described by its last
// kept fix. A track with fewer than two kept fixes has no geometry.
func (e *Exporter) Lines(tracks []models.Track) (Document, error) {
	fc := geojson.NewFeatureCollection()

	for _, t := range tracks {
		kept := e.filter.Collect(t.Points)

		var f *geojson.Feature
		if len(kept) >= 2 {
			line := make(orb.LineString, 0, len(kept))
			for _, p := range kept {
				line = append(line, orb.Point{p.X, p.Y})
			}
			f = geojson.NewFeature(line)
			f.BBox = geojson.NewBBox(line.Bound())
		} else {
			f = geojson.NewFeature(nil)
		}

		if len(kept) > 0 {
			f.Properties = pointProperties(t.Identity, kept[len(kept)-1])
		} else {
			f.Properties["user"] = t.User
			f.Properties["device"] = t.Device
		}
		f.Properties["date"] = t.Date
		f.Properties["points"] = len(kept)
		fc.Append(f)
	}

	return geoJSON(fc)
}
