package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/benmeehan/geotrack/internal/models"
)

var errMalformedRow = errors.New("malformed row")

// rawPoint holds the columns of a stored fix before they are validated.
type rawPoint struct {
	lat, lon    float64
	ts          string
	velocity    sql.NullInt64
	alt         sql.NullInt64
	accuracy    sql.NullInt64
	vAccuracy   sql.NullInt64
	cog         sql.NullInt64
	tid         sql.NullString
	annotations sql.NullString
}

func (r *rawPoint) dest() []interface{} {
	return []interface{}{
		&r.lat, &r.lon, &r.ts, &r.velocity, &r.alt, &r.accuracy,
		&r.vAccuracy, &r.cog, &r.tid, &r.annotations,
	}
}

func (r *rawPoint) gpsPoint() (models.GpsPoint, error) {
	p := models.GpsPoint{
		X:         r.lon,
		Y:         r.lat,
		Timestamp: r.ts,
		TrackerID: r.tid.String,
	}

	var err error
	if p.Speed, err = int16Column("velocity", r.velocity); err != nil {
		return p, err
	}
	if p.Elevation, err = int16Column("alt", r.alt); err != nil {
		return p, err
	}
	if p.VerticalAccuracy, err = int16Column("v_accuracy", r.vAccuracy); err != nil {
		return p, err
	}
	if p.CourseOverGround, err = int16Column("cog", r.cog); err != nil {
		return p, err
	}
	if r.accuracy.Valid {
		if r.accuracy.Int64 < math.MinInt32 || r.accuracy.Int64 > math.MaxInt32 {
			return p, fmt.Errorf("%w: accuracy %d out of range", errMalformedRow, r.accuracy.Int64)
		}
		v := int32(r.accuracy.Int64)
		p.Accuracy = &v
	}
	if r.annotations.Valid && r.annotations.String != "" {
		var a models.Annotations
		if err := json.Unmarshal([]byte(r.annotations.String), &a); err != nil {
			return p, fmt.Errorf("%w: annotations: %v", errMalformedRow, err)
		}
		if len(a) > 0 {
			p.Annotations = a
		}
	}
	return p, nil
}

func int16Column(name string, v sql.NullInt64) (*int16, error) {
	if !v.Valid {
		return nil, nil
	}
	if v.Int64 < math.MinInt16 || v.Int64 > math.MaxInt16 {
		return nil, fmt.Errorf("%w: %s %d out of range", errMalformedRow, name, v.Int64)
	}
	i := int16(v.Int64)
	return &i, nil
}

// FetchRawPoints returns the fixes of id on date (YYYY-MM-DD, UTC) in
// insertion order. Rows that cannot be decoded are logged and skipped.
func (s *Store) FetchRawPoints(ctx context.Context, id models.Identity, date string) ([]models.PointRow, error) {
	rows, err := s.db.QueryContext(ctx, s.queries.rawPoints, date, id.User, id.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var points []models.PointRow
	for rows.Next() {
		var raw rawPoint
		if err := rows.Scan(raw.dest()...); err != nil {
			s.Logger.Warn().Err(err).Str("user", id.User).Str("device", id.Device).Msg("Skipping unreadable point")
			continue
		}
		p, err := raw.gpsPoint()
		if err != nil {
			s.Logger.Warn().Err(err).Str("user", id.User).Str("device", id.Device).Str("ts", raw.ts).Msg("Skipping malformed point")
			continue
		}
		points = append(points, models.PointRow{Identity: id, GpsPoint: p})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read points: %w", err)
	}
	return points, nil
}

// FetchIdentitiesActive returns every identity with at least one fix on
// date, with its earliest timestamp that day, earliest first.
func (s *Store) FetchIdentitiesActive(ctx context.Context, date string) ([]models.ActiveIdentity, error) {
	rows, err := s.db.QueryContext(ctx, s.queries.activeIdentities, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer rows.Close()

	var identities []models.ActiveIdentity
	for rows.Next() {
		var a models.ActiveIdentity
		if err := rows.Scan(&a.User, &a.Device, &a.TimestampStart); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read identities: %w", err)
	}
	return identities, nil
}

// FetchRawPointsOfDay returns the fixes of every identity active on date,
// grouped by identity in order of their first fix.
func (s *Store) FetchRawPointsOfDay(ctx context.Context, date string) ([]models.PointRow, error) {
	identities, err := s.FetchIdentitiesActive(ctx, date)
	if err != nil {
		return nil, err
	}

	var rows []models.PointRow
	for _, a := range identities {
		points, err := s.FetchRawPoints(ctx, a.Identity, date)
		if err != nil {
			return nil, err
		}
		rows = append(rows, points...)
	}
	return rows, nil
}

// FetchCurrentPositions returns the latest fix of every device. A non-empty
// date limits the result to devices whose latest fix is on that day.
func (s *Store) FetchCurrentPositions(ctx context.Context, date string) ([]models.DeviceState, error) {
	query, args := s.queries.positions, []interface{}{}
	if date != "" {
		query, args = s.queries.positionsOnDay, []interface{}{date}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var states []models.DeviceState
	for rows.Next() {
		var (
			state models.DeviceState
			raw   rawPoint
		)
		dest := append([]interface{}{&state.User, &state.Device}, raw.dest()...)
		if err := rows.Scan(dest...); err != nil {
			s.Logger.Warn().Err(err).Msg("Skipping unreadable position")
			continue
		}
		p, err := raw.gpsPoint()
		if err != nil {
			s.Logger.Warn().Err(err).Str("user", state.User).Str("device", state.Device).Msg("Skipping malformed position")
			continue
		}
		state.Point = p
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}
	return states, nil
}

// InsertLocation appends loc to the history of id and advances the device
// state when loc is not older than it, in one transaction.
func (s *Store) InsertLocation(ctx context.Context, id models.Identity, loc *models.Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	annotations, err := json.Marshal(loc.Annotations)
	if err != nil {
		return fmt.Errorf("failed to encode annotations: %w", err)
	}
	var tid interface{}
	if loc.TrackerID != "" {
		tid = loc.TrackerID
	}
	args := []interface{}{
		id.User, id.Device, tid, s.timestampArg(loc.Time()),
		nullableInt(loc.Velocity), loc.Latitude, loc.Longitude,
		nullableInt(loc.Altitude), nullableInt(loc.Accuracy),
		nullableInt(loc.VerticalAccuracy), nullableInt(loc.Course),
		string(annotations),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.queries.insertLocation, args...); err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.queries.upsertState, args...); err != nil {
		return fmt.Errorf("failed to update device state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit location: %w", err)
	}

	s.Logger.Debug().
		Str("user", id.User).
		Str("device", id.Device).
		Time("ts", loc.Time()).
		Msg("Location stored")
	return nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return int64(*v)
}
