package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Location is an OwnTracks location report together with any additional
// fields the device sent, which are kept as ordered annotations.
// https://owntracks.org/booklet/tech/json/
type Location struct {
	TrackerID        string // tid: initials shown for the device
	Timestamp        int64  // tst: UNIX epoch seconds of the fix
	Velocity         *int   // vel: km/h
	Latitude         float64
	Longitude        float64
	Altitude         *int // alt: meters above sea level
	Accuracy         *int // acc: meters
	VerticalAccuracy *int // vac: meters
	Course           *int // cog: degrees
	Annotations      Annotations
}

// ErrOutOfRange is returned when a numeric field does not fit its column.
var ErrOutOfRange = errors.New("value out of range")

var errMissingField = errors.New("missing required field")

// Time returns the fix timestamp in UTC.
func (l *Location) Time() time.Time {
	return time.Unix(l.Timestamp, 0).UTC()
}

// UnmarshalJSON decodes the known OwnTracks fields and keeps every other
// member, except the _type discriminator, as annotations.
func (l *Location) UnmarshalJSON(data []byte) error {
	var fields Annotations
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	loc := Location{}
	var hasTst, hasLat, hasLon bool
	for _, kv := range fields {
		var err error
		switch kv.Key {
		case "_type":
			continue
		case "tid":
			loc.TrackerID, err = optionalString(kv)
		case "tst":
			loc.Timestamp, err = requireInt(kv)
			hasTst = err == nil
		case "lat":
			loc.Latitude, err = requireFloat(kv)
			hasLat = err == nil
		case "lon":
			loc.Longitude, err = requireFloat(kv)
			hasLon = err == nil
		case "vel":
			loc.Velocity, err = optionalInt(kv)
		case "alt":
			loc.Altitude, err = optionalInt(kv)
		case "acc":
			loc.Accuracy, err = optionalInt(kv)
		case "vac":
			loc.VerticalAccuracy, err = optionalInt(kv)
		case "cog":
			loc.Course, err = optionalInt(kv)
		default:
			loc.Annotations = append(loc.Annotations, kv)
		}
		if err != nil {
			return err
		}
	}

	switch {
	case !hasTst:
		return fmt.Errorf("location: %w: tst", errMissingField)
	case !hasLat:
		return fmt.Errorf("location: %w: lat", errMissingField)
	case !hasLon:
		return fmt.Errorf("location: %w: lon", errMissingField)
	}
	if err := loc.Validate(); err != nil {
		return err
	}

	*l = loc
	return nil
}

// Validate checks that the optional integer fields fit their gpslog columns:
// smallint for vel, alt, vac and cog, integer for acc.
func (l *Location) Validate() error {
	fields := []struct {
		key    string
		value  *int
		lo, hi int
	}{
		{"vel", l.Velocity, math.MinInt16, math.MaxInt16},
		{"alt", l.Altitude, math.MinInt16, math.MaxInt16},
		{"acc", l.Accuracy, math.MinInt32, math.MaxInt32},
		{"vac", l.VerticalAccuracy, math.MinInt16, math.MaxInt16},
		{"cog", l.Course, math.MinInt16, math.MaxInt16},
	}
	for _, f := range fields {
		if f.value != nil && (*f.value < f.lo || *f.value > f.hi) {
			return fmt.Errorf("location: field %s: %w: %d", f.key, ErrOutOfRange, *f.value)
		}
	}
	return nil
}

// MarshalJSON encodes the location as a flat OwnTracks object.
func (l Location) MarshalJSON() ([]byte, error) {
	return l.fields().MarshalJSON()
}

func (l Location) fields() Annotations {
	out := Annotations{}
	if l.TrackerID != "" {
		out = append(out, Annotation{Key: "tid", Value: StringValue(l.TrackerID)})
	}
	out = append(out, Annotation{Key: "tst", Value: IntValue(l.Timestamp)})
	out = appendOptional(out, "vel", l.Velocity)
	out = append(out,
		Annotation{Key: "lat", Value: FloatValue(l.Latitude)},
		Annotation{Key: "lon", Value: FloatValue(l.Longitude)},
	)
	out = appendOptional(out, "alt", l.Altitude)
	out = appendOptional(out, "acc", l.Accuracy)
	out = appendOptional(out, "vac", l.VerticalAccuracy)
	out = appendOptional(out, "cog", l.Course)
	for _, kv := range l.Annotations {
		out = out.Set(kv.Key, kv.Value)
	}
	return out
}

func appendOptional(a Annotations, key string, v *int) Annotations {
	if v == nil {
		return a
	}
	return append(a, Annotation{Key: key, Value: IntValue(int64(*v))})
}

func requireInt(kv Annotation) (int64, error) {
	i, ok := kv.Value.Int64()
	if !ok {
		return 0, fmt.Errorf("location: field %s is not a number", kv.Key)
	}
	return i, nil
}

func requireFloat(kv Annotation) (float64, error) {
	f, ok := kv.Value.Float64()
	if !ok {
		return 0, fmt.Errorf("location: field %s is not a number", kv.Key)
	}
	return f, nil
}

func optionalInt(kv Annotation) (*int, error) {
	if kv.Value.Kind == KindNull {
		return nil, nil
	}
	i, err := requireInt(kv)
	if err != nil {
		return nil, err
	}
	v := int(i)
	return &v, nil
}

func optionalString(kv Annotation) (string, error) {
	switch kv.Value.Kind {
	case KindNull:
		return "", nil
	case KindString:
		return kv.Value.String, nil
	}
	return "", fmt.Errorf("location: field %s is not a string", kv.Key)
}
