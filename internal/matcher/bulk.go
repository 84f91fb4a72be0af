package matcher

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
)

// ListenSource resolves recording MSIDs to the artist and title that were
// submitted with them. catalog.Store implements it.
type ListenSource interface {
	FetchListens(ctx context.Context, msids []uuid.UUID) (map[uuid.UUID]catalog.Listen, error)
}

// Identifier is one line of a bulk input file.
type Identifier struct {
	Line int
	Raw  string
	MSID uuid.UUID
	Err  error
}

// ReadIdentifiers reads one MSID per line. Blank lines are skipped.
// Malformed lines are returned with Err set to an ErrParse error; only a
// read failure on r is returned as an error.
func ReadIdentifiers(r io.Reader) ([]Identifier, error) {
	var out []Identifier
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		id := Identifier{Line: line, Raw: raw}
		msid, err := uuid.Parse(raw)
		if err != nil {
			id.Err = fmt.Errorf("%w: line %d: %q: %v", ErrParse, line, raw, err)
		} else {
			id.MSID = msid
		}
		out = append(out, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifiers: %w", err)
	}
	return out, nil
}

// BulkResult is the outcome for one bulk input line.
type BulkResult struct {
	Identifier
	Listen  catalog.Listen
	Matches []Match
}

// BulkOptions are the radii, limit and concurrency applied to every entry.
type BulkOptions struct {
	ArtistRadius    int
	RecordingRadius int
	Limit           int
	Workers         int
	Logger          *slog.Logger
}

// ResolveBulk looks up every well-formed identifier in src and matches the
// listens it finds. Parse and lookup failures stay on their entries. A
// failure of src itself is returned.
func (m *Matcher) ResolveBulk(ctx context.Context, src ListenSource, ids []Identifier, opts BulkOptions) ([]BulkResult, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	results := make([]BulkResult, len(ids))
	var msids []uuid.UUID
	for i, id := range ids {
		results[i].Identifier = id
		if id.Err == nil {
			msids = append(msids, id.MSID)
		}
	}

	listens := map[uuid.UUID]catalog.Listen{}
	if len(msids) > 0 {
		var err error
		listens, err = src.FetchListens(ctx, msids)
		if err != nil {
			return nil, fmt.Errorf("fetch listens: %w", err)
		}
	}

	// pending maps each batch request back to its entry.
	var (
		reqs    []Request
		pending []int
	)
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			continue
		}
		listen, ok := listens[res.MSID]
		if !ok {
			res.Err = fmt.Errorf("%w: msid %s", ErrNotFound, res.MSID)
			continue
		}
		res.Listen = listen
		reqs = append(reqs, Request{
			ArtistName:      listen.ArtistName,
			RecordingName:   listen.RecordingName,
			ArtistRadius:    opts.ArtistRadius,
			RecordingRadius: opts.RecordingRadius,
			Limit:           opts.Limit,
		})
		pending = append(pending, i)
	}

	for k, r := range m.MatchBatch(ctx, reqs, opts.Workers) {
		res := &results[pending[k]]
		res.Matches, res.Err = r.Matches, r.Err
	}

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			log.Warn("[bulk] entry failed", "line", res.Line, "input", res.Raw, "err", res.Err)
		}
	}
	log.Info("[bulk] resolved", "entries", len(results), "failed", failed)

	return results, nil
}

// BulkHeader is the header row written by WriteBulkCSV.
var BulkHeader = []string{
	"msid", "artist_name", "recording_name", "status",
	"recording_distance", "matched_recording", "recording_id",
	"matched_artist_credit", "artist_credit_id",
}

// Status values of the bulk CSV.
const (
	StatusMatched    = "matched"
	StatusNoMatch    = "no_match"
	StatusParseError = "parse_error"
	StatusNotFound   = "not_found"
	StatusError      = "error"
)

func status(err error) string {
	switch {
	case errors.Is(err, ErrParse):
		return StatusParseError
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	default:
		return StatusError
	}
}

// WriteBulkCSV writes one row per match, or a single row for an entry with
// no matches. Failed entries carry the error text in the
// matched_recording column.
func WriteBulkCSV(w io.Writer, results []BulkResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BulkHeader); err != nil {
		return err
	}

	for _, res := range results {
		msid := res.Raw
		if res.Err == nil {
			msid = res.MSID.String()
		}
		prefix := []string{msid, res.Listen.ArtistName, res.Listen.RecordingName}

		switch {
		case res.Err != nil:
			if err := cw.Write(append(prefix, status(res.Err), "-1", res.Err.Error(), "", "", "")); err != nil {
				return err
			}
		case len(res.Matches) == 0:
			if err := cw.Write(append(prefix, StatusNoMatch, "-1", "", "", "", "")); err != nil {
				return err
			}
		default:
			for _, m := range res.Matches {
				row := append(prefix[:3:3],
					StatusMatched,
					strconv.Itoa(m.RecordingDistance),
					m.RecordingName,
					m.RecordingID,
					m.ArtistCreditName,
					m.ArtistCreditID,
				)
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
