package constants

const (
	// MaxAccuracy is the horizontal accuracy, in meters, at or above which a fix is discarded.
	MaxAccuracy = 200

	// KmhPerMps converts km/h to m/s by division.
	KmhPerMps = 3.6

	// DateLayout is the calendar date format used for track days.
	DateLayout = "2006-01-02"

	// StoredTimestampLayout is the textual form timestamps are written in.
	StoredTimestampLayout = "2006-01-02 15:04:05-07"
)

// Content types of exported documents.
const (
	ContentTypeGeoJSON = "application/geo+json"
	ContentTypeGPX     = "application/gpx+xml"
)

// SkippedAnnotations are device fields that never show up in exported feature properties:
// message id, monitoring mode, Wi-Fi BSSID/SSID and the message creation time.
var SkippedAnnotations = map[string]struct{}{
	"_id":        {},
	"m":          {},
	"BSSID":      {},
	"SSID":       {},
	"created_at": {},
}
