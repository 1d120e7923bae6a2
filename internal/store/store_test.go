package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/geotrack/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = models.Identity{User: "alice", Device: "phone"}
	bob   = models.Identity{User: "bob", Device: "watch"}
)

func intPtr(v int) *int { return &v }

func i16(v int16) *int16 { return &v }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "geotrack.db")
	s, err := Open(context.Background(), dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.MigrateUp())
	t.Cleanup(func() { s.Close() })
	return s
}

func location(ts time.Time, lat, lon float64) *models.Location {
	return &models.Location{
		TrackerID: "al",
		Timestamp: ts.Unix(),
		Latitude:  lat,
		Longitude: lon,
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn        string
		dialect    Dialect
		driverName string
		source     string
	}{
		{"sqlite://geotrack.db", DialectSQLite, "sqlite", "geotrack.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		{"sqlite:///var/lib/geotrack.db", DialectSQLite, "sqlite", "/var/lib/geotrack.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		{"sqlite://:memory:", DialectSQLite, "sqlite", ":memory:"},
		{"postgres://user:pw@localhost/geotrack", DialectPostgres, "pgx", "postgres://user:pw@localhost/geotrack"},
		{"postgresql://localhost/geotrack?sslmode=disable", DialectPostgres, "pgx", "postgresql://localhost/geotrack?sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			dialect, driverName, source, err := parseDSN(tt.dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, dialect)
			assert.Equal(t, tt.driverName, driverName)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestParseDSN_Unsupported(t *testing.T) {
	for _, dsn := range []string{"mysql://localhost/db", "geotrack.db", ""} {
		_, _, _, err := parseDSN(dsn)
		assert.True(t, errors.Is(err, ErrUnsupportedDriver), dsn)
	}
}

func TestRebind(t *testing.T) {
	query := `SELECT a FROM t WHERE b = ? AND c = ?::date`

	assert.Equal(t, query, rebind(DialectSQLite, query))
	assert.Equal(t, `SELECT a FROM t WHERE b = $1 AND c = $2::date`, rebind(DialectPostgres, query))
}

func TestMigrate(t *testing.T) {
	s := newTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Running again is a no-op
	require.NoError(t, s.MigrateUp())

	require.NoError(t, s.MigrateDown())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestInsertAndFetchRawPoints(t *testing.T) {
	// Setup
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 19, 6, 46, 54, 0, time.UTC)

	first := location(base, 47.37, 8.54)
	first.Velocity = intPtr(12)
	first.Altitude = intPtr(410)
	first.Accuracy = intPtr(5)
	first.VerticalAccuracy = intPtr(3)
	first.Course = intPtr(270)
	first.Annotations = models.Annotations{
		{Key: "batt", Value: models.IntValue(87)},
		{Key: "conn", Value: models.StringValue("w")},
	}
	second := location(base.Add(-time.Minute), 47.38, 8.55)

	// Execute
	require.NoError(t, s.InsertLocation(ctx, alice, first))
	require.NoError(t, s.InsertLocation(ctx, alice, second))
	require.NoError(t, s.InsertLocation(ctx, bob, location(base, 1, 2)))
	require.NoError(t, s.InsertLocation(ctx, alice, location(base.Add(24*time.Hour), 0, 0)))
	rows, err := s.FetchRawPoints(ctx, alice, "2025-02-19")

	// Assert
	require.NoError(t, err)
	want := []models.PointRow{
		{Identity: alice, GpsPoint: models.GpsPoint{
			X: 8.54, Y: 47.37, Timestamp: "2025-02-19 06:46:54+00",
			Speed: i16(12), Elevation: i16(410), Accuracy: func() *int32 { v := int32(5); return &v }(),
			VerticalAccuracy: i16(3), CourseOverGround: i16(270), TrackerID: "al",
			Annotations: first.Annotations,
		}},
		{Identity: alice, GpsPoint: models.GpsPoint{
			X: 8.55, Y: 47.38, Timestamp: "2025-02-19 06:45:54+00", TrackerID: "al",
		}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("FetchRawPoints() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchIdentitiesActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 19, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertLocation(ctx, alice, location(base, 1, 1)))
	require.NoError(t, s.InsertLocation(ctx, bob, location(base.Add(-time.Hour), 1, 1)))
	require.NoError(t, s.InsertLocation(ctx, alice, location(base.Add(-30*time.Minute), 1, 1)))
	require.NoError(t, s.InsertLocation(ctx, bob, location(base.Add(-24*time.Hour), 1, 1)))

	identities, err := s.FetchIdentitiesActive(ctx, "2025-02-19")

	require.NoError(t, err)
	assert.Equal(t, []models.ActiveIdentity{
		{Identity: bob, TimestampStart: "2025-02-19 07:00:00+00"},
		{Identity: alice, TimestampStart: "2025-02-19 07:30:00+00"},
	}, identities)

	rows, err := s.FetchRawPointsOfDay(ctx, "2025-02-19")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, bob, rows[0].Identity)
	assert.Equal(t, alice, rows[1].Identity)
	assert.Equal(t, "2025-02-19 08:00:00+00", rows[1].Timestamp)

	none, err := s.FetchIdentitiesActive(ctx, "2020-01-01")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeviceStateIsMonotonic(t *testing.T) {
	// Setup
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 19, 8, 0, 0, 0, time.UTC)

	// Execute
	require.NoError(t, s.InsertLocation(ctx, alice, location(base, 10, 10)))
	require.NoError(t, s.InsertLocation(ctx, alice, location(base.Add(-time.Hour), 20, 20)))
	require.NoError(t, s.InsertLocation(ctx, bob, location(base.Add(-48*time.Hour), 30, 30)))

	// Assert
	states, err := s.FetchCurrentPositions(ctx, "")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, alice, states[0].Identity)
	assert.Equal(t, "2025-02-19 08:00:00+00", states[0].Point.Timestamp)
	assert.Equal(t, 10.0, states[0].Point.Y)
	assert.Equal(t, bob, states[1].Identity)

	require.NoError(t, s.InsertLocation(ctx, alice, location(base.Add(time.Minute), 40, 40)))
	states, err = s.FetchCurrentPositions(ctx, "2025-02-19")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, 40.0, states[0].Point.Y)
	assert.Equal(t, "2025-02-19 08:01:00+00", states[0].Point.Timestamp)
}

func TestInsertLocation_RejectsOutOfRangeFields(t *testing.T) {
	// Setup
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 19, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertLocation(ctx, alice, location(base, 10, 10)))

	fast := location(base.Add(time.Minute), 20, 20)
	fast.Velocity = intPtr(40000)

	// Execute
	err := s.InsertLocation(ctx, alice, fast)

	// Assert
	assert.True(t, errors.Is(err, models.ErrOutOfRange))
	rows, err := s.FetchRawPoints(ctx, alice, "2025-02-19")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	states, err := s.FetchCurrentPositions(ctx, "")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, 10.0, states[0].Point.Y)
}

func TestFetchRawPoints_SkipsMalformedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO gpslog ("user", device, ts, lat, lon, annotations) VALUES
		('alice', 'phone', '2025-02-19 06:00:00+00', 1, 1, '{"batt":'),
		('alice', 'phone', '2025-02-19 06:01:00+00', 2, 2, NULL),
		('alice', 'phone', '2025-02-19 06:02:00+00', 3, 3, '[1,2]')`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO gpslog ("user", device, ts, lat, lon, velocity) VALUES
		('alice', 'phone', '2025-02-19 06:03:00+00', 4, 4, 70000)`)
	require.NoError(t, err)

	rows, err := s.FetchRawPoints(ctx, alice, "2025-02-19")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2.0, rows[0].Y)
	assert.Nil(t, rows[0].Annotations)
}
