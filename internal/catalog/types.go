package catalog

import "context"

// ArtistCredit is one canonical artist-credit name.
type ArtistCredit struct {
	Name string `json:"artist_credit_name"`
	ID   string `json:"artist_credit_id"`
}

// Recording is one canonical recording name and the artist credit it
// belongs to.
type Recording struct {
	Name           string `json:"recording_name"`
	ID             string `json:"recording_id"`
	ArtistCreditID string `json:"artist_credit_id"`
}

// Listen is the raw, user-submitted artist and title for a listened
// recording.
type Listen struct {
	ArtistName    string
	RecordingName string
}

// Cursor is a one-pass, ordered row source. It follows the *sql.Rows
// protocol: call Next until it returns false, then check Err. Close may be
// called at any time and more than once.
type Cursor[R any] interface {
	Next() bool
	Row() R
	Err() error
	Close() error
}

// Supplier opens cursors over the two canonical catalogs. A limit of 0 means
// no limit.
type Supplier interface {
	ArtistCredits(ctx context.Context, limit int) (Cursor[ArtistCredit], error)
	Recordings(ctx context.Context, limit int) (Cursor[Recording], error)
}

// ------------------------------------
// In-memory
// ------------------------------------

// SliceCursor iterates over an in-memory slice.
type SliceCursor[R any] struct {
	rows []R
	pos  int
}

// NewSliceCursor returns a cursor over rows.
func NewSliceCursor[R any](rows []R) *SliceCursor[R] {
	return &SliceCursor[R]{rows: rows, pos: -1}
}

func (c *SliceCursor[R]) Next() bool {
	if c.pos+1 >= len(c.rows) {
		c.pos = len(c.rows)
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor[R]) Row() R {
	return c.rows[c.pos]
}

func (c *SliceCursor[R]) Err() error   { return nil }
func (c *SliceCursor[R]) Close() error { return nil }

// Memory is a Supplier over fixed slices, for tests and small catalogs.
type Memory struct {
	ArtistRows    []ArtistCredit
	RecordingRows []Recording
}

func (m *Memory) ArtistCredits(_ context.Context, limit int) (Cursor[ArtistCredit], error) {
	return NewSliceCursor(truncate(m.ArtistRows, limit)), nil
}

func (m *Memory) Recordings(_ context.Context, limit int) (Cursor[Recording], error) {
	return NewSliceCursor(truncate(m.RecordingRows, limit)), nil
}

func truncate[R any](rows []R, limit int) []R {
	if limit > 0 && limit < len(rows) {
		return rows[:limit]
	}
	return rows
}
