package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DefaultTable is the MusicBrainz mapping table holding one row per
// (recording, artist credit) pair.
const DefaultTable = "mapping.recording_artist_credit_pairs"

// Driver names registered with database/sql.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// listenBatch bounds the number of placeholders per FetchListens query.
const listenBatch = 1000

var reTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

//
// ========================================================================
// Store Wrapper
// ========================================================================
//

// Store reads catalog rows from a MusicBrainz mapping table and listens from
// a MessyBrainz database. Both Postgres (pgx) and SQLite are supported.
type Store struct {
	DB     *sql.DB
	Table  string
	driver string
	log    *slog.Logger
}

// Open connects to dsn with the given driver and pings it. An empty table
// selects DefaultTable.
func Open(driver, dsn, table string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = DefaultTable
	}
	if !reTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	logger.Debug("[DB] opening", "driver", driver)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	err = withTimeout(func(ctx context.Context) error {
		return db.PingContext(ctx)
	}, 5*time.Second)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	logger.Debug("[DB] ping ok", "driver", driver, "table", table)

	return &Store{DB: db, Table: table, driver: driver, log: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

//
// ========================================================================
// Catalog cursors
// ========================================================================
//

// ArtistCredits streams distinct (artist_credit_id, artist_credit_name) pairs
// ordered by id. NULL names come through as empty strings.
func (s *Store) ArtistCredits(ctx context.Context, limit int) (Cursor[ArtistCredit], error) {
	q := `SELECT DISTINCT artist_credit_id, artist_credit_name
	        FROM ` + s.Table + `
	    ORDER BY artist_credit_id` + limitClause(limit)

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query artist credits: %w", err)
	}
	return &rowsCursor[ArtistCredit]{rows: rows, scan: func(r *sql.Rows) (ArtistCredit, error) {
		var (
			id   string
			name sql.NullString
		)
		if err := r.Scan(&id, &name); err != nil {
			return ArtistCredit{}, err
		}
		return ArtistCredit{Name: name.String, ID: id}, nil
	}}, nil
}

// Recordings streams (recording_name, recording_id, artist_credit_id) rows
// ordered by recording id.
func (s *Store) Recordings(ctx context.Context, limit int) (Cursor[Recording], error) {
	q := `SELECT recording_name, recording_id, artist_credit_id
	        FROM ` + s.Table + `
	    ORDER BY recording_id, artist_credit_id` + limitClause(limit)

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	return &rowsCursor[Recording]{rows: rows, scan: func(r *sql.Rows) (Recording, error) {
		var (
			name   sql.NullString
			id, ac string
		)
		if err := r.Scan(&name, &id, &ac); err != nil {
			return Recording{}, err
		}
		return Recording{Name: name.String, ID: id, ArtistCreditID: ac}, nil
	}}, nil
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}

// rowsCursor adapts *sql.Rows to Cursor. A scan failure ends iteration and
// is reported by Err.
type rowsCursor[R any] struct {
	rows *sql.Rows
	scan func(*sql.Rows) (R, error)
	cur  R
	err  error
}

func (c *rowsCursor[R]) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	row, err := c.scan(c.rows)
	if err != nil {
		c.err = fmt.Errorf("scan row: %w", err)
		return false
	}
	c.cur = row
	return true
}

func (c *rowsCursor[R]) Row() R { return c.cur }

func (c *rowsCursor[R]) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowsCursor[R]) Close() error { return c.rows.Close() }

//
// ========================================================================
// Listens (MessyBrainz)
// ========================================================================
//

// FetchListens looks up the submitted artist and title for each recording
// MSID. MSIDs that are not in the database are simply absent from the result.
func (s *Store) FetchListens(ctx context.Context, msids []uuid.UUID) (map[uuid.UUID]Listen, error) {
	out := make(map[uuid.UUID]Listen, len(msids))

	for start := 0; start < len(msids); start += listenBatch {
		end := min(start+listenBatch, len(msids))
		batch := msids[start:end]

		marks := make([]string, len(batch))
		args := make([]any, len(batch))
		for i, id := range batch {
			marks[i] = s.placeholder(i + 1)
			args[i] = id.String()
		}

		q := `SELECT r.gid, rj.data->>'artist', rj.data->>'title'
		        FROM recording r
		        JOIN recording_json rj ON r.data = rj.id
		       WHERE r.gid IN (` + strings.Join(marks, ", ") + `)`

		if err := s.scanListens(ctx, q, args, out); err != nil {
			return nil, err
		}
	}

	s.log.Debug("[DB] fetched listens", "requested", len(msids), "found", len(out))
	return out, nil
}

func (s *Store) scanListens(ctx context.Context, q string, args []any, out map[uuid.UUID]Listen) error {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("query listens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			gid           string
			artist, title sql.NullString
		)
		if err := rows.Scan(&gid, &artist, &title); err != nil {
			return fmt.Errorf("scan listen: %w", err)
		}
		id, err := uuid.Parse(gid)
		if err != nil {
			return fmt.Errorf("listen gid %q: %w", gid, err)
		}
		out[id] = Listen{ArtistName: artist.String, RecordingName: title.String}
	}
	return rows.Err()
}

func (s *Store) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

//
// ========================================================================
// Utility: context timeout
// ========================================================================
//

func withTimeout(fn func(ctx context.Context) error, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return fn(ctx)
}
