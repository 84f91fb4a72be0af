// Package matcher resolves a free-text (artist, recording) pair to canonical
// recordings by searching the artist-credit index and the recording index
// and keeping only recordings whose artist credit was itself matched.
package matcher

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Jonnymurillo288/MelodyMatch/bktree"
	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
	"github.com/Jonnymurillo288/MelodyMatch/internal/index"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrParse           = errors.New("unparseable identifier")
	ErrNotFound        = errors.New("not found")
)

// Default radii used when a caller has no better idea.
const (
	DefaultArtistRadius    = 3
	DefaultRecordingRadius = 5
)

type Request struct {
	ArtistName      string `json:"artist_name"`
	RecordingName   string `json:"recording_name"`
	ArtistRadius    int    `json:"artist_radius"`
	RecordingRadius int    `json:"recording_radius"`
	Limit           int    `json:"limit,omitempty"`
}

// Match is one recording that survived cross-filtering, together with the
// artist credit that let it through.
type Match struct {
	RecordingName     string `json:"recording_name"`
	RecordingID       string `json:"recording_id"`
	ArtistCreditName  string `json:"artist_credit_name"`
	ArtistCreditID    string `json:"artist_credit_id"`
	RecordingDistance int    `json:"recording_distance"`
	ArtistDistance    int    `json:"artist_distance"`
}

type Matcher struct {
	set *index.Set
}

func New(set *index.Set) *Matcher {
	return &Matcher{set: set}
}

func (r Request) validate() error {
	if r.ArtistRadius < 0 {
		return fmt.Errorf("%w: artist radius %d: %w", ErrInvalidArgument, r.ArtistRadius, bktree.ErrInvalidRadius)
	}
	if r.RecordingRadius < 0 {
		return fmt.Errorf("%w: recording radius %d: %w", ErrInvalidArgument, r.RecordingRadius, bktree.ErrInvalidRadius)
	}
	if r.Limit < 0 {
		return fmt.Errorf("%w: limit %d", ErrInvalidArgument, r.Limit)
	}
	return nil
}

// Match returns the recordings within req.RecordingRadius of the recording
// name whose artist credit is within req.ArtistRadius of the artist name.
// No candidates is not an error; the result is empty.
func (m *Matcher) Match(req Request) ([]Match, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	artist := m.set.Normalize(req.ArtistName)
	recording := m.set.Normalize(req.RecordingName)
	if artist == "" || recording == "" {
		return nil, nil
	}

	artists, err := m.set.Artists.Search(catalog.ArtistCredit{Name: artist}, req.ArtistRadius)
	if err != nil {
		return nil, err
	}
	if len(artists) == 0 {
		return nil, nil
	}

	// Closest variant wins when a credit id appears under several names.
	credits := make(map[string]bktree.Match[catalog.ArtistCredit], len(artists))
	for _, a := range artists {
		if prev, ok := credits[a.Value.ID]; !ok || a.Distance < prev.Distance {
			credits[a.Value.ID] = a
		}
	}

	recordings, err := m.set.Recordings.Search(catalog.Recording{Name: recording}, req.RecordingRadius)
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, rec := range recordings {
		credit, ok := credits[rec.Value.ArtistCreditID]
		if !ok {
			continue
		}
		out = append(out, Match{
			RecordingName:     rec.Value.Name,
			RecordingID:       rec.Value.ID,
			ArtistCreditName:  credit.Value.Name,
			ArtistCreditID:    credit.Value.ID,
			RecordingDistance: rec.Distance,
			ArtistDistance:    credit.Distance,
		})
	}

	sortMatches(out)
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func sortMatches(ms []Match) {
	sort.Slice(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.RecordingDistance != b.RecordingDistance {
			return a.RecordingDistance < b.RecordingDistance
		}
		if a.ArtistDistance != b.ArtistDistance {
			return a.ArtistDistance < b.ArtistDistance
		}
		if a.RecordingName != b.RecordingName {
			return a.RecordingName < b.RecordingName
		}
		return a.RecordingID < b.RecordingID
	})
}
