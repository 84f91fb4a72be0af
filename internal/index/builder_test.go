package index_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jonnymurillo288/MelodyMatch/bktree"
	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
	"github.com/Jonnymurillo288/MelodyMatch/internal/index"
	"github.com/Jonnymurillo288/MelodyMatch/internal/jobs"
	"github.com/Jonnymurillo288/MelodyMatch/internal/normalize"
)

func beatlesCatalog() *catalog.Memory {
	return &catalog.Memory{
		ArtistRows: []catalog.ArtistCredit{
			{Name: "The Beatles", ID: "10"},
			{Name: "Beatles", ID: "11"},
			{Name: "Björk", ID: "12"},
			{Name: "", ID: "13"},
			{Name: "   ", ID: "14"},
			{Name: "Beatles", ID: "15"},
		},
		RecordingRows: []catalog.Recording{
			{Name: "Let It Be", ID: "100", ArtistCreditID: "10"},
			{Name: "Yesterday", ID: "101", ArtistCreditID: "10"},
			{Name: "Jóga", ID: "102", ArtistCreditID: "12"},
			{Name: "", ID: "103", ArtistCreditID: "12"},
		},
	}
}

// failingCursor yields n rows and then reports a broken connection.
type failingCursor struct {
	n, i int
}

func (c *failingCursor) Next() bool {
	if c.i >= c.n {
		return false
	}
	c.i++
	return true
}

func (c *failingCursor) Row() catalog.Recording {
	return catalog.Recording{Name: "song", ID: "1", ArtistCreditID: "1"}
}

func (c *failingCursor) Err() error {
	if c.i >= c.n {
		return errors.New("connection reset by peer")
	}
	return nil
}

func (c *failingCursor) Close() error { return nil }

func artistIDs(ms []bktree.Match[catalog.ArtistCredit]) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Value.ID)
	}
	sort.Strings(out)
	return out
}

func TestBuildArtistCredits_SkipsAndDuplicates(t *testing.T) {
	cur, err := beatlesCatalog().ArtistCredits(context.Background(), 0)
	require.NoError(t, err)

	tree, stats, err := index.BuildArtistCredits(context.Background(), cur, index.Options{})
	require.NoError(t, err)
	require.Equal(t, 6, stats.Rows)
	require.Equal(t, 2, stats.Skipped)
	require.Equal(t, 4, stats.Inserted)
	require.Equal(t, 1, stats.Duplicates)
	require.Equal(t, 4, tree.Len())

	// Stored names are normalized, and both "beatles" credits survive.
	got, err := tree.Search(catalog.ArtistCredit{Name: "beatles"}, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"11", "15"}, artistIDs(got))
	for _, m := range got {
		require.Equal(t, "beatles", m.Value.Name)
	}

	got, err = tree.Search(catalog.ArtistCredit{Name: "bjork"}, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"12"}, artistIDs(got))
}

func TestBuild_AllRowsSkipped(t *testing.T) {
	cur := catalog.NewSliceCursor([]catalog.ArtistCredit{{Name: "", ID: "1"}, {Name: " ", ID: "2"}})

	tree, stats, err := index.BuildArtistCredits(context.Background(), cur, index.Options{})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Skipped)
	require.Equal(t, 0, tree.Len())

	got, err := tree.Search(catalog.ArtistCredit{Name: "anything"}, 3)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBuild_DumpNullsAreSkipped(t *testing.T) {
	dump := "\"Weird Al\" Yankovic\t5\n\\N\t8\nQueen\t6\n"
	cur := catalog.NewTSVCursor(strings.NewReader(dump), 2, 0,
		func(rec []string) catalog.ArtistCredit { return catalog.ArtistCredit{Name: rec[0], ID: rec[1]} })

	tree, stats, err := index.BuildArtistCredits(context.Background(), cur, index.Options{})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Rows)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 2, tree.Len())

	got, err := tree.Search(catalog.ArtistCredit{Name: `"weird al" yankovic`}, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"5"}, artistIDs(got))
}

func TestBuild_SupplierFailureIsFatal(t *testing.T) {
	tree, stats, err := index.BuildRecordings(context.Background(), &failingCursor{n: 3}, index.Options{})
	require.Error(t, err)
	require.Nil(t, tree)
	require.Equal(t, 3, stats.Rows)
	require.Contains(t, err.Error(), "connection reset by peer")
	require.Contains(t, err.Error(), index.RecordingIndex)
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := index.BuildRecordings(ctx, catalog.NewSliceCursor([]catalog.Recording{}), index.Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuild_RejectsBrokenMetric(t *testing.T) {
	cur := catalog.NewSliceCursor([]catalog.ArtistCredit{
		{Name: "a", ID: "1"}, {Name: "aa", ID: "2"}, {Name: "aaa", ID: "3"},
	})
	squared := func(a, b string) int {
		d := len(a) - len(b)
		return d * d
	}

	_, _, err := index.BuildArtistCredits(context.Background(), cur, index.Options{
		Metric:      squared,
		CheckMetric: true,
	})
	require.ErrorContains(t, err, "not a metric")
}

func TestBuildSet_TracksJobs(t *testing.T) {
	tracker := jobs.NewManager()

	set, err := index.BuildSet(context.Background(), beatlesCatalog(), index.Options{
		Normalize:   normalize.Basic,
		Metric:      bktree.Damerau,
		CheckMetric: true,
	}, tracker)
	require.NoError(t, err)
	require.Equal(t, 4, set.Artists.Len())
	require.Equal(t, 3, set.Recordings.Len())
	require.Equal(t, 1, set.RecordingStats.Skipped)
	require.Equal(t, "joga", set.Normalize("Jóga"))

	require.True(t, tracker.Ready(index.ArtistCreditIndex))
	require.True(t, tracker.Ready(index.RecordingIndex))
	j, _ := tracker.Latest(index.ArtistCreditIndex)
	require.Equal(t, 6, j.Rows)
	require.Equal(t, 2, j.Skipped)
}

type brokenSupplier struct{ catalog.Memory }

func (b *brokenSupplier) Recordings(context.Context, int) (catalog.Cursor[catalog.Recording], error) {
	return &failingCursor{n: 2}, nil
}

func TestBuildSet_RecordingFailureFailsSet(t *testing.T) {
	tracker := jobs.NewManager()
	sup := &brokenSupplier{Memory: *beatlesCatalog()}

	set, err := index.BuildSet(context.Background(), sup, index.Options{}, tracker)
	require.Error(t, err)
	require.Nil(t, set)

	require.True(t, tracker.Ready(index.ArtistCreditIndex))
	j, ok := tracker.Latest(index.RecordingIndex)
	require.True(t, ok)
	require.Equal(t, jobs.StatusError, j.Status)
	require.Contains(t, j.Error, "connection reset")
}

func TestBuildSet_Limits(t *testing.T) {
	set, err := index.BuildSet(context.Background(), beatlesCatalog(), index.Options{
		ArtistLimit:    2,
		RecordingLimit: 1,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, set.Artists.Len())
	require.Equal(t, 1, set.Recordings.Len())
}

func TestBuild_IdempotentRebuild(t *testing.T) {
	rows := beatlesCatalog().RecordingRows
	reversed := make([]catalog.Recording, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}

	a, _, err := index.BuildRecordings(context.Background(), catalog.NewSliceCursor(rows), index.Options{})
	require.NoError(t, err)
	b, _, err := index.BuildRecordings(context.Background(), catalog.NewSliceCursor(reversed), index.Options{})
	require.NoError(t, err)

	for _, q := range []string{"let it be", "yesterdya", "joga", "x"} {
		for r := 0; r <= 4; r++ {
			ra, err := a.Search(catalog.Recording{Name: q}, r)
			require.NoError(t, err)
			rb, err := b.Search(catalog.Recording{Name: q}, r)
			require.NoError(t, err)
			require.ElementsMatch(t, ra, rb, "query %q radius %d", q, r)
		}
	}
}
