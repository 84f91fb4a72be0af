package catalog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// TSV reads catalogs from tab-separated dump files:
//
//	artist credits: name<TAB>artist_credit_id
//	recordings:     name<TAB>recording_id<TAB>artist_credit_id
//
// Such files are what `\copy ... TO ... WITH (FORMAT text)` produces from
// the mapping table.
type TSV struct {
	ArtistPath    string
	RecordingPath string
}

func (t *TSV) ArtistCredits(_ context.Context, limit int) (Cursor[ArtistCredit], error) {
	return openTSV(t.ArtistPath, 2, limit, func(rec []string) ArtistCredit {
		return ArtistCredit{Name: rec[0], ID: rec[1]}
	})
}

func (t *TSV) Recordings(_ context.Context, limit int) (Cursor[Recording], error) {
	return openTSV(t.RecordingPath, 3, limit, func(rec []string) Recording {
		return Recording{Name: rec[0], ID: rec[1], ArtistCreditID: rec[2]}
	})
}

func openTSV[R any](path string, fields, limit int, conv func([]string) R) (Cursor[R], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog dump: %w", err)
	}
	return NewTSVCursor(f, fields, limit, conv), nil
}

// maxTSVLine bounds a single dump line.
const maxTSVLine = 1 << 20

// TSVCursor decodes one row per line of r. Fields are split on tabs and
// unescaped per PostgreSQL's text COPY format; a field of exactly \N (NULL)
// becomes "". Lines with the wrong number of fields end iteration with an
// error.
type TSVCursor[R any] struct {
	sc     *bufio.Scanner
	closer io.Closer
	conv   func([]string) R
	fields int
	limit  int
	line   int
	n      int
	cur    R
	err    error
}

// NewTSVCursor wraps r. If r is an io.Closer it is closed by Close.
func NewTSVCursor[R any](r io.Reader, fields, limit int, conv func([]string) R) *TSVCursor[R] {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTSVLine)

	c := &TSVCursor[R]{sc: sc, conv: conv, fields: fields, limit: limit}
	if cl, ok := r.(io.Closer); ok {
		c.closer = cl
	}
	return c
}

func (c *TSVCursor[R]) Next() bool {
	if c.err != nil || (c.limit > 0 && c.n >= c.limit) {
		return false
	}
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			c.err = fmt.Errorf("read catalog dump line %d: %w", c.line+1, err)
		}
		return false
	}
	c.line++

	rec := strings.Split(strings.TrimSuffix(c.sc.Text(), "\r"), "\t")
	if len(rec) != c.fields {
		c.err = fmt.Errorf("catalog dump line %d: want %d fields, got %d", c.line, c.fields, len(rec))
		return false
	}
	for i, f := range rec {
		rec[i] = unescapeCopyText(f)
	}
	c.cur = c.conv(rec)
	c.n++
	return true
}

func (c *TSVCursor[R]) Row() R     { return c.cur }
func (c *TSVCursor[R]) Err() error { return c.err }

func (c *TSVCursor[R]) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

// unescapeCopyText decodes one field of COPY ... (FORMAT text) output.
// Backslash escapes other than the control characters stand for the
// escaped character, so `\\` is a single backslash.
func unescapeCopyText(f string) string {
	if f == `\N` {
		return ""
	}
	if !strings.Contains(f, `\`) {
		return f
	}

	var b strings.Builder
	b.Grow(len(f))
	for i := 0; i < len(f); i++ {
		if f[i] != '\\' || i+1 == len(f) {
			b.WriteByte(f[i])
			continue
		}
		i++
		switch f[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		default:
			b.WriteByte(f[i])
		}
	}
	return b.String()
}
