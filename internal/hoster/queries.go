package hoster

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Jonnymurillo288/MelodyMatch/bktree"
	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
	"github.com/Jonnymurillo288/MelodyMatch/internal/index"
	"github.com/Jonnymurillo288/MelodyMatch/internal/matcher"
)

// Indexes builds an index.Set on first use and shares it between queries.
// A failed build is retried by the next Load.
type Indexes struct {
	mu    sync.Mutex
	build func(ctx context.Context) (*index.Set, error)
	set   *index.Set
}

func NewIndexes(build func(ctx context.Context) (*index.Set, error)) *Indexes {
	return &Indexes{build: build}
}

// Prebuilt wraps an already built set.
func Prebuilt(set *index.Set) *Indexes {
	return &Indexes{set: set}
}

func (ix *Indexes) Load(ctx context.Context) (*index.Set, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.set != nil {
		return ix.set, nil
	}
	set, err := ix.build(ctx)
	if err != nil {
		return nil, err
	}
	ix.set = set
	return set, nil
}

// indexed is the Setup half shared by every index-backed query.
type indexed struct {
	ix  *Indexes
	set atomic.Pointer[index.Set]
}

func (q *indexed) Setup(ctx context.Context) error {
	set, err := q.ix.Load(ctx)
	if err != nil {
		return err
	}
	q.set.Store(set)
	return nil
}

func (q *indexed) loaded(slug string) (*index.Set, error) {
	set := q.set.Load()
	if set == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, slug)
	}
	return set, nil
}

// ------------------------------------
// Parameter helpers
// ------------------------------------

// intParam only parses. Range checks belong to the tree and the matcher,
// whose errors reach the caller wrapped in ErrBadRequest.
func intParam(p Params, key string) (int, error) {
	var (
		n   int
		err error
	)
	switch v := p[key].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrBadRequest, key, v)
		}
		n = int(v)
	case json.Number:
		var i int64
		i, err = v.Int64()
		n = int(i)
	case string:
		n, err = strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrBadRequest, key, v)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer: %w", ErrBadRequest, key, err)
	}
	return n, nil
}

func stringParam(p Params, key string) (string, error) {
	s, ok := p[key].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrBadRequest, key)
	}
	return s, nil
}

// ------------------------------------
// mb-artist-credit-fuzzy
// ------------------------------------

// ArtistCreditFuzzy looks up artist credits by name within a distance.
type ArtistCreditFuzzy struct {
	indexed
}

func NewArtistCreditFuzzy(ix *Indexes) *ArtistCreditFuzzy {
	return &ArtistCreditFuzzy{indexed: indexed{ix: ix}}
}

func (q *ArtistCreditFuzzy) Names() (string, string) {
	return "mb-artist-credit-fuzzy", "MusicBrainz artist credit fuzzy lookup query"
}

func (q *ArtistCreditFuzzy) Introduction() string {
	return "Find MusicBrainz artist credits whose name is within an edit distance of the given name."
}

func (q *ArtistCreditFuzzy) Inputs() []string {
	return []string{"distance", "artist_credit_name"}
}

func (q *ArtistCreditFuzzy) Outputs() []string {
	return []string{"distance", "artist_credit_name", "artist_credit_id"}
}

func (q *ArtistCreditFuzzy) Fetch(_ context.Context, params []Params, offset, limit int) ([]Row, error) {
	slug, _ := q.Names()
	set, err := q.loaded(slug)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, p := range params {
		dist, err := intParam(p, "distance")
		if err != nil {
			return nil, err
		}
		name, err := stringParam(p, "artist_credit_name")
		if err != nil {
			return nil, err
		}
		norm := set.Normalize(name)
		if norm == "" {
			continue
		}

		found, err := set.Artists.Search(catalog.ArtistCredit{Name: norm}, dist)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		sortByDistance(found, func(a catalog.ArtistCredit) (string, string) { return a.Name, a.ID })

		for _, m := range page(found, offset, limit) {
			rows = append(rows, Row{
				"distance":           m.Distance,
				"artist_credit_name": m.Value.Name,
				"artist_credit_id":   m.Value.ID,
			})
		}
	}
	return rows, nil
}

// ------------------------------------
// mb-recording-fuzzy
// ------------------------------------

// RecordingFuzzy looks up recordings by name within a distance.
type RecordingFuzzy struct {
	indexed
}

func NewRecordingFuzzy(ix *Indexes) *RecordingFuzzy {
	return &RecordingFuzzy{indexed: indexed{ix: ix}}
}

func (q *RecordingFuzzy) Names() (string, string) {
	return "mb-recording-fuzzy", "MusicBrainz recording fuzzy lookup query"
}

func (q *RecordingFuzzy) Introduction() string {
	return "Find MusicBrainz recordings whose name is within an edit distance of the given name."
}

func (q *RecordingFuzzy) Inputs() []string {
	return []string{"distance", "recording_name"}
}

func (q *RecordingFuzzy) Outputs() []string {
	return []string{"distance", "recording_name", "recording_id", "artist_credit_id"}
}

func (q *RecordingFuzzy) Fetch(_ context.Context, params []Params, offset, limit int) ([]Row, error) {
	slug, _ := q.Names()
	set, err := q.loaded(slug)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, p := range params {
		dist, err := intParam(p, "distance")
		if err != nil {
			return nil, err
		}
		name, err := stringParam(p, "recording_name")
		if err != nil {
			return nil, err
		}
		norm := set.Normalize(name)
		if norm == "" {
			continue
		}

		found, err := set.Recordings.Search(catalog.Recording{Name: norm}, dist)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		sortByDistance(found, func(r catalog.Recording) (string, string) { return r.Name, r.ID })

		for _, m := range page(found, offset, limit) {
			rows = append(rows, Row{
				"distance":         m.Distance,
				"recording_name":   m.Value.Name,
				"recording_id":     m.Value.ID,
				"artist_credit_id": m.Value.ArtistCreditID,
			})
		}
	}
	return rows, nil
}

// ------------------------------------
// mb-fuzzy-match
// ------------------------------------

// FuzzyMatch resolves an (artist, recording) pair with cross-filtering.
type FuzzyMatch struct {
	indexed
}

func NewFuzzyMatch(ix *Indexes) *FuzzyMatch {
	return &FuzzyMatch{indexed: indexed{ix: ix}}
}

func (q *FuzzyMatch) Names() (string, string) {
	return "mb-fuzzy-match", "MusicBrainz artist and recording fuzzy match query"
}

func (q *FuzzyMatch) Introduction() string {
	return "Match a free-text artist and recording name to MusicBrainz recordings by that artist credit."
}

func (q *FuzzyMatch) Inputs() []string {
	return []string{"artist_credit_name", "recording_name", "artist_distance", "recording_distance"}
}

func (q *FuzzyMatch) Outputs() []string {
	return []string{
		"recording_name", "recording_id",
		"artist_credit_name", "artist_credit_id",
		"recording_distance", "artist_distance",
	}
}

func (q *FuzzyMatch) Fetch(_ context.Context, params []Params, offset, limit int) ([]Row, error) {
	slug, _ := q.Names()
	set, err := q.loaded(slug)
	if err != nil {
		return nil, err
	}
	m := matcher.New(set)

	var rows []Row
	for _, p := range params {
		req, err := matchRequest(p)
		if err != nil {
			return nil, err
		}
		found, err := m.Match(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		for _, mt := range page(found, offset, limit) {
			rows = append(rows, Row{
				"recording_name":     mt.RecordingName,
				"recording_id":       mt.RecordingID,
				"artist_credit_name": mt.ArtistCreditName,
				"artist_credit_id":   mt.ArtistCreditID,
				"recording_distance": mt.RecordingDistance,
				"artist_distance":    mt.ArtistDistance,
			})
		}
	}
	return rows, nil
}

func matchRequest(p Params) (matcher.Request, error) {
	var (
		req matcher.Request
		err error
	)
	if req.ArtistName, err = stringParam(p, "artist_credit_name"); err != nil {
		return req, err
	}
	if req.RecordingName, err = stringParam(p, "recording_name"); err != nil {
		return req, err
	}
	if req.ArtistRadius, err = intParam(p, "artist_distance"); err != nil {
		return req, err
	}
	if req.RecordingRadius, err = intParam(p, "recording_distance"); err != nil {
		return req, err
	}
	return req, nil
}

func sortByDistance[T any](ms []bktree.Match[T], key func(T) (name, id string)) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Distance != ms[j].Distance {
			return ms[i].Distance < ms[j].Distance
		}
		ni, ii := key(ms[i].Value)
		nj, ij := key(ms[j].Value)
		if ni != nj {
			return ni < nj
		}
		return ii < ij
	})
}

// RegisterIndexQueries adds the three index-backed queries, all sharing ix.
func RegisterIndexQueries(r *Registry, ix *Indexes) error {
	for _, q := range []Query{
		NewArtistCreditFuzzy(ix),
		NewRecordingFuzzy(ix),
		NewFuzzyMatch(ix),
	} {
		if err := r.Register(q); err != nil {
			return err
		}
	}
	return nil
}
