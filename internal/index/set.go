package index

import (
	"context"
	"fmt"

	"github.com/Jonnymurillo288/MelodyMatch/bktree"
	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
	"github.com/Jonnymurillo288/MelodyMatch/internal/jobs"
	"github.com/Jonnymurillo288/MelodyMatch/internal/normalize"
)

// Job names used with jobs.Manager.
const (
	ArtistCreditIndex = "artist-credit-index"
	RecordingIndex    = "recording-index"
)

// Set is a matched pair of indexes together with the normalizer that
// produced their keys. Queries against a Set must normalize with
// Set.Normalize.
type Set struct {
	Artists    *bktree.Tree[catalog.ArtistCredit]
	Recordings *bktree.Tree[catalog.Recording]
	Normalize  normalize.Func

	ArtistStats    Stats
	RecordingStats Stats
}

// BuildSet builds the artist-credit index and then the recording index from
// sup. Each build is registered with tracker when it is non-nil. A failure
// in either build fails the whole set.
func BuildSet(ctx context.Context, sup catalog.Supplier, opts Options, tracker *jobs.Manager) (*Set, error) {
	opts = opts.withDefaults()
	set := &Set{Normalize: opts.Normalize}

	err := track(tracker, ArtistCreditIndex, func() (Stats, error) {
		cur, err := sup.ArtistCredits(ctx, opts.ArtistLimit)
		if err != nil {
			return Stats{}, fmt.Errorf("open artist credits: %w", err)
		}
		tree, stats, err := BuildArtistCredits(ctx, cur, opts)
		set.Artists, set.ArtistStats = tree, stats
		return stats, err
	})
	if err != nil {
		return nil, err
	}

	err = track(tracker, RecordingIndex, func() (Stats, error) {
		cur, err := sup.Recordings(ctx, opts.RecordingLimit)
		if err != nil {
			return Stats{}, fmt.Errorf("open recordings: %w", err)
		}
		tree, stats, err := BuildRecordings(ctx, cur, opts)
		set.Recordings, set.RecordingStats = tree, stats
		return stats, err
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

func track(tracker *jobs.Manager, name string, fn func() (Stats, error)) error {
	if tracker == nil {
		_, err := fn()
		return err
	}

	job := tracker.Create(name)
	tracker.Start(job.ID)
	stats, err := fn()
	tracker.Update(job.ID, func(j *jobs.Job) {
		j.Rows = stats.Rows
		j.Inserted = stats.Inserted
		j.Skipped = stats.Skipped
	})
	tracker.Finish(job.ID, err)
	return err
}
