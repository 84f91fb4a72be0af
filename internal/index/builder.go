// Package index builds the artist-credit and recording BK-trees from a
// catalog supplier.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jonnymurillo288/MelodyMatch/bktree"
	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
	"github.com/Jonnymurillo288/MelodyMatch/internal/normalize"
)

// DefaultProgressEvery is how many rows pass between progress log lines.
const DefaultProgressEvery = 500000

// axiomSample is how many leading rows are checked against the metric
// axioms when a non-default metric is configured.
const axiomSample = 64

// Options configure a build. The zero value builds with Levenshtein and the
// Basic normalizer.
type Options struct {
	Metric         bktree.Metric[string]
	Normalize      normalize.Func
	ProgressEvery  int
	ArtistLimit    int
	RecordingLimit int
	// CheckMetric runs bktree.CheckAxioms over the first rows of each build.
	CheckMetric bool
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Metric == nil {
		o.Metric = bktree.Levenshtein
	}
	if o.Normalize == nil {
		o.Normalize = normalize.Basic
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Stats summarizes one build.
type Stats struct {
	Rows       int
	Inserted   int
	Skipped    int
	Duplicates int
	Depth      int
	Elapsed    time.Duration
}

// ------------------------------------
// Generic build
// ------------------------------------

// named is the constraint shared by the two catalog entry types.
type named interface {
	catalog.ArtistCredit | catalog.Recording
}

func nameOf[T named](v T) string {
	switch e := any(v).(type) {
	case catalog.ArtistCredit:
		return e.Name
	case catalog.Recording:
		return e.Name
	}
	return ""
}

func withName[T named](v T, name string) T {
	switch e := any(v).(type) {
	case catalog.ArtistCredit:
		e.Name = name
		return any(e).(T)
	case catalog.Recording:
		e.Name = name
		return any(e).(T)
	}
	return v
}

// build consumes cur once, normalizing each row's name and inserting it.
// Rows whose normalized name is empty are skipped. Any cursor error aborts
// the build and no tree is returned.
func build[T named](ctx context.Context, label string, cur catalog.Cursor[T], opts Options) (*bktree.Tree[T], Stats, error) {
	defer cur.Close()

	log := opts.Logger.With("index", label)
	tree := bktree.New(bktree.Keyed(opts.Metric, nameOf[T]))
	start := time.Now()

	var (
		stats   Stats
		sample  []string
		checked = !opts.CheckMetric
	)
	for cur.Next() {
		stats.Rows++
		if stats.Rows%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, fmt.Errorf("build %s index: %w", label, err)
			}
		}

		row := cur.Row()
		name := opts.Normalize(nameOf(row))
		if name == "" {
			stats.Skipped++
			continue
		}

		if !checked {
			sample = append(sample, name)
			if len(sample) == axiomSample {
				if err := checkMetric(label, opts.Metric, sample); err != nil {
					return nil, stats, err
				}
				checked = true
			}
		}
		if tree.Insert(withName(row, name)) {
			stats.Duplicates++
		}

		if stats.Rows%opts.ProgressEvery == 0 {
			log.Info("[index] progress", "rows", stats.Rows)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, stats, fmt.Errorf("build %s index after %d rows: %w", label, stats.Rows, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, fmt.Errorf("build %s index: %w", label, err)
	}

	if !checked {
		if err := checkMetric(label, opts.Metric, sample); err != nil {
			return nil, stats, err
		}
	}

	stats.Inserted = tree.Len()
	stats.Depth = tree.Depth()
	stats.Elapsed = time.Since(start)

	log.Info("[index] built",
		"rows", stats.Rows,
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates,
		"depth", stats.Depth,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
	)
	return tree, stats, nil
}

func checkMetric(label string, m bktree.Metric[string], sample []string) error {
	if err := bktree.CheckAxioms(m, sample); err != nil {
		return fmt.Errorf("build %s index: configured distance is not a metric: %w", label, err)
	}
	return nil
}

// BuildArtistCredits builds the artist-credit index from cur.
func BuildArtistCredits(ctx context.Context, cur catalog.Cursor[catalog.ArtistCredit], opts Options) (*bktree.Tree[catalog.ArtistCredit], Stats, error) {
	return build(ctx, ArtistCreditIndex, cur, opts.withDefaults())
}

// BuildRecordings builds the recording index from cur.
func BuildRecordings(ctx context.Context, cur catalog.Cursor[catalog.Recording], opts Options) (*bktree.Tree[catalog.Recording], Stats, error) {
	return build(ctx, RecordingIndex, cur, opts.withDefaults())
}
