package export

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/benmeehan/geotrack/internal/track"
	"github.com/tkrajina/gpxgo/gpx"
)

const (
	trackPointPrefix    = "gpxtpx"
	trackPointExtension = "http://www.garmin.com/xmlschemas/TrackPointExtension/v2"
	gpxCreator          = "geotrack"
)

// GPX renders a GPX 1.1 document with one single-segment track per input
// track. Speeds are converted to m/s. Fixes whose timestamp cannot be parsed
// are left out; fixes without a timestamp are kept without a time.
func (e *Exporter) GPX(tracks []models.Track) (Document, error) {
	doc := gpx.GPX{
		Version: "1.1",
		Creator: gpxCreator,
		Tracks:  make([]gpx.GPXTrack, 0, len(tracks)),
	}
	doc.RegisterNamespace(trackPointPrefix, trackPointExtension)

	for _, t := range tracks {
		seg := gpx.GPXTrackSegment{}
		for p := range e.filter.Points(t.Points) {
			wpt, err := e.waypoint(p)
			if err != nil {
				e.opts.Logger.Info().
					Err(err).
					Str("user", t.User).
					Str("device", t.Device).
					Msg("Skipping GPX point")
				continue
			}
			seg.Points = append(seg.Points, wpt)
		}
		doc.Tracks = append(doc.Tracks, gpx.GPXTrack{
			Name:     fmt.Sprintf("Track %s-%s-%s", t.Date, t.User, t.Device),
			Segments: []gpx.GPXTrackSegment{seg},
		})
	}

	body, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode gpx: %w", err)
	}

	return Document{ContentType: constants.ContentTypeGPX, Body: body}, nil
}

func (e *Exporter) waypoint(p models.GpsPoint) (gpx.GPXPoint, error) {
	wpt := gpx.GPXPoint{
		Point: gpx.Point{Latitude: p.Y, Longitude: p.X},
	}
	if p.Elevation != nil {
		wpt.Elevation = *gpx.NewNullableFloat64(float64(*p.Elevation))
	}
	if p.Timestamp != "" {
		ts, err := track.ParseTimestamp(p.Timestamp, e.opts.Location)
		if err != nil {
			return gpx.GPXPoint{}, err
		}
		wpt.Timestamp = ts.UTC()
	}
	if p.Speed != nil {
		mps := float64(*p.Speed) / constants.KmhPerMps
		wpt.Extensions.Nodes = []gpx.ExtensionNode{{
			XMLName: xml.Name{Space: trackPointExtension, Local: "TrackPointExtension"},
			Nodes: []gpx.ExtensionNode{{
				XMLName: xml.Name{Space: trackPointExtension, Local: "speed"},
				Data:    strconv.FormatFloat(mps, 'f', -1, 64),
			}},
		}}
	}
	return wpt, nil
}
