package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Jonnymurillo288/MelodyMatch/bktree"
	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
	"github.com/Jonnymurillo288/MelodyMatch/internal/config"
	"github.com/Jonnymurillo288/MelodyMatch/internal/index"
	"github.com/Jonnymurillo288/MelodyMatch/internal/jobs"
	"github.com/Jonnymurillo288/MelodyMatch/internal/matcher"
	"github.com/Jonnymurillo288/MelodyMatch/internal/normalize"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openSupplier opens the configured canonical catalog.
func (a *app) openSupplier() (catalog.Supplier, io.Closer, error) {
	c := a.cfg.Catalog
	switch c.Source {
	case config.SourcePostgres:
		s, err := catalog.Open(catalog.DriverPostgres, c.DSN, c.Table, a.log)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.SourceSQLite:
		s, err := catalog.Open(catalog.DriverSQLite, c.SQLitePath, c.Table, a.log)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.SourceTSV:
		return &catalog.TSV{ArtistPath: c.ArtistsTSV, RecordingPath: c.RecordingsTSV}, nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown catalog source %q", c.Source)
}

// openListens opens the MessyBrainz database for bulk mode. A sqlite
// catalog file may carry the listen tables itself.
func (a *app) openListens() (matcher.ListenSource, io.Closer, error) {
	c := a.cfg.Catalog
	switch {
	case c.MSBDSN != "":
		s, err := catalog.Open(catalog.DriverPostgres, c.MSBDSN, c.Table, a.log)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case c.Source == config.SourceSQLite:
		s, err := catalog.Open(catalog.DriverSQLite, c.SQLitePath, c.Table, a.log)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, errors.New("bulk mode needs catalog.msb_dsn (MSB_DSN) or a sqlite catalog")
}

func (a *app) indexOptions() (index.Options, error) {
	metric, err := bktree.MetricByName(a.cfg.Index.Metric)
	if err != nil {
		return index.Options{}, err
	}
	norm, err := normalize.ByName(a.cfg.Index.Normalizer)
	if err != nil {
		return index.Options{}, err
	}
	return index.Options{
		Metric:         metric,
		Normalize:      norm,
		ProgressEvery:  a.cfg.Index.ProgressEvery,
		ArtistLimit:    a.cfg.Catalog.ArtistLimit,
		RecordingLimit: a.cfg.Catalog.RecordingLimit,
		CheckMetric:    a.cfg.Index.Metric != "" && a.cfg.Index.Metric != "levenshtein",
		Logger:         a.log,
	}, nil
}

// buildSet builds both indexes from the configured catalog.
func (a *app) buildSet(ctx context.Context, tracker *jobs.Manager) (*index.Set, error) {
	opts, err := a.indexOptions()
	if err != nil {
		return nil, err
	}
	sup, closer, err := a.openSupplier()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return index.BuildSet(ctx, sup, opts, tracker)
}
