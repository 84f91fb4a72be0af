package catalog_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
)

// ----------------------------------------------------
// SETUP: file-backed SQLite with the mapping table shape
// ----------------------------------------------------
func setupSQLite(t *testing.T) (*catalog.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := sql.Open(catalog.DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE recording_artist_credit_pairs (
			recording_name     TEXT,
			recording_id       INTEGER NOT NULL,
			artist_credit_name TEXT,
			artist_credit_id   INTEGER NOT NULL
		)`,
		`INSERT INTO recording_artist_credit_pairs VALUES
			('Let It Be', 100, 'The Beatles', 10),
			('Yesterday', 101, 'The Beatles', 10),
			('Creep',     200, 'Radiohead',   20),
			(NULL,        201, 'Radiohead',   20),
			('Let It Be', 300, NULL,          30)`,
		`CREATE TABLE recording_json (id INTEGER PRIMARY KEY, data TEXT)`,
		`CREATE TABLE recording (gid TEXT PRIMARY KEY, data INTEGER REFERENCES recording_json(id))`,
	}
	for _, q := range stmts {
		_, err := db.Exec(q)
		require.NoError(t, err, q)
	}

	s, err := catalog.Open(catalog.DriverSQLite, path, "recording_artist_credit_pairs", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func drain[R any](t *testing.T, c catalog.Cursor[R]) []R {
	t.Helper()
	defer c.Close()
	var out []R
	for c.Next() {
		out = append(out, c.Row())
	}
	require.NoError(t, c.Err())
	return out
}

func TestStore_ArtistCredits(t *testing.T) {
	s, _ := setupSQLite(t)

	cur, err := s.ArtistCredits(context.Background(), 0)
	require.NoError(t, err)

	require.Equal(t, []catalog.ArtistCredit{
		{Name: "The Beatles", ID: "10"},
		{Name: "Radiohead", ID: "20"},
		{Name: "", ID: "30"},
	}, drain(t, cur))
}

func TestStore_Recordings(t *testing.T) {
	s, _ := setupSQLite(t)

	cur, err := s.Recordings(context.Background(), 0)
	require.NoError(t, err)
	got := drain(t, cur)
	require.Len(t, got, 5)
	require.Equal(t, catalog.Recording{Name: "Let It Be", ID: "100", ArtistCreditID: "10"}, got[0])
	require.Equal(t, catalog.Recording{Name: "", ID: "201", ArtistCreditID: "20"}, got[3])

	cur, err = s.Recordings(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, drain(t, cur), 2)
}

func TestStore_FetchListens(t *testing.T) {
	s, path := setupSQLite(t)

	known := uuid.MustParse("6a0f3a12-9a4c-4b0e-9d35-0d0c5e0b2f11")
	other := uuid.MustParse("0b4c4f4e-1111-4a1a-8b8b-123456789abc")
	missing := uuid.New()

	db, err := sql.Open(catalog.DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO recording_json VALUES
		(1, '{"artist": "Beatels", "title": "Let it be"}'),
		(2, '{"artist": "Radiohead", "title": "Creep"}')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO recording VALUES (?, 1), (?, 2)`, known.String(), other.String())
	require.NoError(t, err)

	got, err := s.FetchListens(context.Background(), []uuid.UUID{known, other, missing})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, catalog.Listen{ArtistName: "Beatels", RecordingName: "Let it be"}, got[known])
	require.Equal(t, catalog.Listen{ArtistName: "Radiohead", RecordingName: "Creep"}, got[other])
	_, ok := got[missing]
	require.False(t, ok)
}

func TestOpen_Validation(t *testing.T) {
	_, err := catalog.Open(catalog.DriverSQLite, filepath.Join(t.TempDir(), "x.db"), "pairs; DROP TABLE x", nil)
	require.ErrorContains(t, err, "invalid table name")

	_, err = catalog.Open("mysql", "dsn", "", nil)
	require.ErrorContains(t, err, "unsupported driver")
}

func TestMemory_Limit(t *testing.T) {
	m := &catalog.Memory{ArtistRows: []catalog.ArtistCredit{{Name: "a", ID: "1"}, {Name: "b", ID: "2"}}}

	cur, err := m.ArtistCredits(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []catalog.ArtistCredit{{Name: "a", ID: "1"}}, drain(t, cur))

	rc, err := m.Recordings(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, drain(t, rc))
}
