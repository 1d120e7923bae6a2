package store

const pointColumnsSQLite = `lat, lon, ts, velocity, alt, accuracy, v_accuracy, cog, tid, annotations`

const pointColumnsPostgres = `lat, lon, to_char(ts AT TIME ZONE 'UTC', 'YYYY-MM-DD HH24:MI:SS') || '+00', ` +
	`velocity, alt, accuracy, v_accuracy, cog, tid, annotations::text`

const stateColumns = `"user", device, tid, ts, velocity, lat, lon, alt, accuracy, v_accuracy, cog, annotations`

// queries holds the dialect specific statements, written with ? placeholders.
type queries struct {
	rawPoints        string
	activeIdentities string
	positions        string
	positionsOnDay   string
	insertLocation   string
	upsertState      string
}

var sqliteQueries = queries{
	rawPoints: `SELECT ` + pointColumnsSQLite + `
		FROM gpslog
		WHERE substr(ts, 1, 10) = ? AND "user" = ? AND device = ?
		ORDER BY id`,
	activeIdentities: `SELECT "user", device, MIN(ts) AS ts_start
		FROM gpslog
		WHERE substr(ts, 1, 10) = ?
		GROUP BY "user", device
		ORDER BY ts_start, "user", device`,
	positions: `SELECT "user", device, ` + pointColumnsSQLite + `
		FROM device_state
		ORDER BY "user", device`,
	positionsOnDay: `SELECT "user", device, ` + pointColumnsSQLite + `
		FROM device_state
		WHERE substr(ts, 1, 10) = ?
		ORDER BY "user", device`,
	insertLocation: `INSERT INTO gpslog (` + stateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	upsertState: `INSERT INTO device_state (` + stateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT ("user", device) DO UPDATE SET
			tid = excluded.tid, ts = excluded.ts, velocity = excluded.velocity,
			lat = excluded.lat, lon = excluded.lon, alt = excluded.alt,
			accuracy = excluded.accuracy, v_accuracy = excluded.v_accuracy,
			cog = excluded.cog, annotations = excluded.annotations
		WHERE excluded.ts >= device_state.ts`,
}

var postgresQueries = queries{
	rawPoints: `SELECT ` + pointColumnsPostgres + `
		FROM gpslog
		WHERE (ts AT TIME ZONE 'UTC')::date = ?::date AND "user" = ? AND device = ?
		ORDER BY id`,
	activeIdentities: `SELECT "user", device, to_char(MIN(ts) AT TIME ZONE 'UTC', 'YYYY-MM-DD HH24:MI:SS') || '+00' AS ts_start
		FROM gpslog
		WHERE (ts AT TIME ZONE 'UTC')::date = ?::date
		GROUP BY "user", device
		ORDER BY MIN(ts), "user", device`,
	positions: `SELECT "user", device, ` + pointColumnsPostgres + `
		FROM device_state
		ORDER BY "user", device`,
	positionsOnDay: `SELECT "user", device, ` + pointColumnsPostgres + `
		FROM device_state
		WHERE (ts AT TIME ZONE 'UTC')::date = ?::date
		ORDER BY "user", device`,
	insertLocation: `INSERT INTO gpslog (` + stateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?::json)`,
	upsertState: `INSERT INTO device_state (` + stateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?::json)
		ON CONFLICT ("user", device) DO UPDATE SET
			tid = excluded.tid, ts = excluded.ts, velocity = excluded.velocity,
			lat = excluded.lat, lon = excluded.lon, alt = excluded.alt,
			accuracy = excluded.accuracy, v_accuracy = excluded.v_accuracy,
			cog = excluded.cog, annotations = excluded.annotations
		WHERE excluded.ts >= device_state.ts`,
}

func queriesFor(dialect Dialect) queries {
	q := sqliteQueries
	if dialect == DialectPostgres {
		q = postgresQueries
	}
	return queries{
		rawPoints:        rebind(dialect, q.rawPoints),
		activeIdentities: rebind(dialect, q.activeIdentities),
		positions:        rebind(dialect, q.positions),
		positionsOnDay:   rebind(dialect, q.positionsOnDay),
		insertLocation:   rebind(dialect, q.insertLocation),
		upsertState:      rebind(dialect, q.upsertState),
	}
}
