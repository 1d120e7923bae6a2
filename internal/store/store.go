package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benmeehan/geotrack/internal/constants"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL database behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ErrUnsupportedDriver is returned for connection strings with an unknown scheme.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Store persists location history and the latest position of every device.
type Store struct {
	db      *sql.DB
	dialect Dialect
	queries queries
	Logger  zerolog.Logger
}

// Open connects to the database named by dsn. Supported forms are
// sqlite://path/to/file.db, sqlite://:memory: and postgres:// or
// postgresql:// URLs.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	dialect, driverName, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	s := &Store{
		db:      db,
		dialect: dialect,
		queries: queriesFor(dialect),
		Logger:  logger,
	}
	s.Logger.Info().Str("dialect", string(dialect)).Msg("Database connected")
	return s, nil
}

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func parseDSN(dsn string) (Dialect, string, string, error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "", "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, dsn)
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		if rest == "" {
			return "", "", "", fmt.Errorf("sqlite connection string without a path: %q", dsn)
		}
		return DialectSQLite, "sqlite", withSQLitePragmas(rest), nil
	case "postgres", "postgresql":
		return DialectPostgres, "pgx", dsn, nil
	}
	return "", "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, scheme)
}

func withSQLitePragmas(path string) string {
	if path == ":memory:" || strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// timestampArg converts t to the value the dialect stores timestamps as.
func (s *Store) timestampArg(t time.Time) interface{} {
	if s.dialect == DialectPostgres {
		return t.UTC()
	}
	return t.UTC().Format(constants.StoredTimestampLayout)
}

// rebind rewrites ? placeholders into the $n form PostgreSQL expects.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
