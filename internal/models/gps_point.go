package models

// Identity is the (user, device) pair a location stream belongs to.
type Identity struct {
	User   string `json:"user"`
	Device string `json:"device"`
}

// GpsPoint is a single stored location fix.
type GpsPoint struct {
	X                float64 // longitude
	Y                float64 // latitude
	Timestamp        string  // textual form as stored, e.g. 2025-02-19 06:46:54+00
	Speed            *int16  // km/h
	Elevation        *int16  // meters
	Accuracy         *int32  // meters, nil when unknown
	VerticalAccuracy *int16  // meters
	CourseOverGround *int16  // degrees
	TrackerID        string
	Annotations      Annotations
}

// PointRow is a stored fix tagged with the identity that reported it.
type PointRow struct {
	Identity
	GpsPoint
}

// ActiveIdentity is an identity with its earliest fix on a given day.
type ActiveIdentity struct {
	Identity
	TimestampStart string `json:"ts_start"`
}

// Track is the ordered set of fixes of one identity on one calendar day.
type Track struct {
	Identity
	Date   string // YYYY-MM-DD
	Points []GpsPoint
}

// TrackInfo summarizes a track for listings.
type TrackInfo struct {
	User         string `json:"user"`
	Device       string `json:"device"`
	Date         string `json:"date"`
	TsStart      string `json:"ts_start"`
	TsEnd        string `json:"ts_end"`
	SpeedMin     *int16 `json:"speed_min"`
	SpeedMax     *int16 `json:"speed_max"`
	ElevationMin *int16 `json:"elevation_min"`
	ElevationMax *int16 `json:"elevation_max"`
	Points       int    `json:"points"`
	PointsKept   int    `json:"points_kept"`
}

// DeviceState is the most recent fix of an identity.
type DeviceState struct {
	Identity
	Point GpsPoint
}
