package export

import (
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Segments renders one two-point LineString per consecutive pair of kept
// fixes, described by the leading fix and the index of its track in tracks.
func (e *Exporter) Segments(tracks []models.Track) (Document, error) {
	fc := geojson.NewFeatureCollection()

	for no, t := range tracks {
		kept := e.filter.Collect(t.Points)
		for i := 0; i+1 < len(kept); i++ {
			from, to := kept[i], kept[i+1]

			f := geojson.NewFeature(orb.LineString{{from.X, from.Y}, {to.X, to.Y}})
			f.Properties = pointProperties(t.Identity, from)
			f.Properties["trackno"] = no
			fc.Append(f)
		}
	}

	return geoJSON(fc)
}
