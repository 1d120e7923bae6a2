package export

import (
	"encoding/json"
	"fmt"

	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/benmeehan/geotrack/internal/track"
	"github.com/paulmach/orb/geojson"
)

// Document is a rendered export together with the content type to serve it with.
type Document struct {
	ContentType string
	Body        []byte
}

// Exporter renders reconstructed tracks. Each export applies the accuracy
// filter itself; tracks are never modified.
type Exporter struct {
	opts   track.Options
	filter track.Filter
}

// NewExporter creates an Exporter.
func NewExporter(opts track.Options) *Exporter {
	return &Exporter{opts: opts, filter: opts.Filter()}
}

// pointProperties merges the device annotations, minus internal keys, with
// the scalar fields of p. Scalar fields win over annotations of the same name.
func pointProperties(id models.Identity, p models.GpsPoint) geojson.Properties {
	props := geojson.Properties(p.Annotations.Without(constants.SkippedAnnotations).Map())
	props["user"] = id.User
	props["device"] = id.Device
	props["tid"] = p.TrackerID
	props["time"] = p.Timestamp
	props["speed"] = optional(p.Speed)
	props["elevation"] = optional(p.Elevation)
	props["accuracy"] = optional(p.Accuracy)
	props["vertical_accuracy"] = optional(p.VerticalAccuracy)
	props["course"] = optional(p.CourseOverGround)
	return props
}

func optional[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func geoJSON(fc *geojson.FeatureCollection) (Document, error) {
	body, err := json.Marshal(fc)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return Document{ContentType: constants.ContentTypeGeoJSON, Body: body}, nil
}
