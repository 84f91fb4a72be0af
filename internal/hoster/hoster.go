// Package hoster exposes lookups as named queries with declared inputs and
// outputs, the shape a dataset-hosting front end serves. It carries no
// transport of its own; the CLI drives it directly.
package hoster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Jonnymurillo288/MelodyMatch/internal/jobs"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotReady     = errors.New("query is not ready")
	ErrUnknownQuery = errors.New("unknown query")
)

// DefaultLimit applies when a caller asks for limit < 1.
const DefaultLimit = 50

type (
	Params map[string]any
	Row    map[string]any
)

// Query is one hosted lookup. Setup is called once before any Fetch.
type Query interface {
	Setup(ctx context.Context) error
	Names() (slug, description string)
	Introduction() string
	Inputs() []string
	Outputs() []string
	Fetch(ctx context.Context, params []Params, offset, limit int) ([]Row, error)
}

// IsListInput reports whether an input name is written as "[name]", meaning
// it takes a comma separated list.
func IsListInput(name string) bool {
	return len(name) >= 2 && name[0] == '[' && name[len(name)-1] == ']'
}

// NormalizeParams checks that every input of q is present and non-blank in
// each params entry, and splits list inputs into []string. The input
// entries are not modified.
func NormalizeParams(q Query, params []Params) ([]Params, error) {
	inputs := q.Inputs()
	out := make([]Params, 0, len(params))

	for i, p := range params {
		np := make(Params, len(inputs))
		for _, in := range inputs {
			v, ok := p[in]
			if !ok || v == nil {
				return nil, fmt.Errorf("%w: entry %d: required argument %s missing", ErrBadRequest, i, in)
			}
			if s, isString := v.(string); isString {
				if strings.TrimSpace(s) == "" {
					return nil, fmt.Errorf("%w: entry %d: required argument %s cannot be blank", ErrBadRequest, i, in)
				}
				if IsListInput(in) {
					parts := strings.Split(s, ",")
					for k := range parts {
						parts[k] = strings.TrimSpace(parts[k])
					}
					np[in] = parts
					continue
				}
			}
			np[in] = v
		}
		out = append(out, np)
	}
	return out, nil
}

// Registry holds queries by slug and tracks their setup as jobs.
type Registry struct {
	mu      sync.RWMutex
	queries map[string]Query
	jobs    *jobs.Manager
	log     *slog.Logger
}

// NewRegistry returns an empty registry. tracker and logger may be nil.
func NewRegistry(tracker *jobs.Manager, logger *slog.Logger) *Registry {
	if tracker == nil {
		tracker = jobs.NewManager()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		queries: make(map[string]Query),
		jobs:    tracker,
		log:     logger,
	}
}

// Register adds q under its slug. Slugs must be unique.
func (r *Registry) Register(q Query) error {
	slug, _ := q.Names()
	if slug == "" {
		return fmt.Errorf("register query: empty slug")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.queries[slug]; dup {
		return fmt.Errorf("register query %s: already registered", slug)
	}
	r.queries[slug] = q
	return nil
}

// Get returns the query registered under slug.
func (r *Registry) Get(slug string) (Query, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queries[slug]
	return q, ok
}

// Slugs lists registered slugs in sorted order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.queries))
	for slug := range r.queries {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// SetupAll runs Setup for every registered query in slug order, recording
// each as a job named after the slug. It stops at the first failure.
func (r *Registry) SetupAll(ctx context.Context) error {
	for _, slug := range r.Slugs() {
		if err := r.Setup(ctx, slug); err != nil {
			return err
		}
	}
	return nil
}

// Setup runs Setup for one query.
func (r *Registry) Setup(ctx context.Context, slug string) error {
	q, ok := r.Get(slug)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuery, slug)
	}

	job := r.jobs.Create(slug)
	r.jobs.Start(job.ID)
	r.log.Info("[hoster] setting up query", "query", slug)

	err := q.Setup(ctx)
	r.jobs.Finish(job.ID, err)
	if err != nil {
		return fmt.Errorf("setup %s: %w", slug, err)
	}
	r.log.Info("[hoster] query ready", "query", slug)
	return nil
}

// Ready reports whether slug's latest setup finished successfully.
func (r *Registry) Ready(slug string) bool {
	return r.jobs.Ready(slug)
}

// Run validates params against the query's inputs and fetches its rows.
func (r *Registry) Run(ctx context.Context, slug string, params []Params, offset, limit int) ([]Row, error) {
	q, ok := r.Get(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, slug)
	}
	if !r.Ready(slug) {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, slug)
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: no arguments", ErrBadRequest)
	}

	norm, err := NormalizeParams(q, params)
	if err != nil {
		return nil, err
	}
	return q.Fetch(ctx, norm, offset, limit)
}

// page applies offset and limit to rows already in their final order.
func page[T any](rows []T, offset, limit int) []T {
	if limit < 1 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
