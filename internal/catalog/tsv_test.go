package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
)

func TestTSV_Suppliers(t *testing.T) {
	dir := t.TempDir()
	artists := filepath.Join(dir, "artists.tsv")
	recordings := filepath.Join(dir, "recordings.tsv")
	require.NoError(t, os.WriteFile(artists, []byte("The Beatles\t10\nRadiohead\t20\n"), 0o644))
	require.NoError(t, os.WriteFile(recordings, []byte("Let It Be\t100\t10\nCreep\t200\t20\nIt's \"Live\"\t201\t20\n"), 0o644))

	src := &catalog.TSV{ArtistPath: artists, RecordingPath: recordings}

	ac, err := src.ArtistCredits(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []catalog.ArtistCredit{
		{Name: "The Beatles", ID: "10"},
		{Name: "Radiohead", ID: "20"},
	}, drain(t, ac))

	rc, err := src.Recordings(context.Background(), 0)
	require.NoError(t, err)
	got := drain(t, rc)
	require.Len(t, got, 3)
	require.Equal(t, catalog.Recording{Name: "Creep", ID: "200", ArtistCreditID: "20"}, got[1])
	require.Equal(t, `It's "Live"`, got[2].Name)
}

func TestTSVCursor_Limit(t *testing.T) {
	c := catalog.NewTSVCursor(strings.NewReader("a\t1\nb\t2\nc\t3\n"), 2, 2,
		func(rec []string) catalog.ArtistCredit { return catalog.ArtistCredit{Name: rec[0], ID: rec[1]} })

	require.Len(t, drain[catalog.ArtistCredit](t, c), 2)
}

func TestTSVCursor_BadLine(t *testing.T) {
	c := catalog.NewTSVCursor(strings.NewReader("a\t1\nbroken\n"), 2, 0,
		func(rec []string) catalog.ArtistCredit { return catalog.ArtistCredit{Name: rec[0], ID: rec[1]} })

	require.True(t, c.Next())
	require.False(t, c.Next())
	require.ErrorContains(t, c.Err(), "line 2")
}

func TestTSVCursor_CopyTextFormat(t *testing.T) {
	dump := "\"Weird Al\" Yankovic\t5\n" +
		"Queen\t6\n" +
		"AC\\\\DC\t7\n" +
		"\\N\t8\n" +
		"Tab\\tName\t9\r\n"
	c := catalog.NewTSVCursor(strings.NewReader(dump), 2, 0,
		func(rec []string) catalog.ArtistCredit { return catalog.ArtistCredit{Name: rec[0], ID: rec[1]} })

	require.Equal(t, []catalog.ArtistCredit{
		{Name: `"Weird Al" Yankovic`, ID: "5"},
		{Name: "Queen", ID: "6"},
		{Name: `AC\DC`, ID: "7"},
		{Name: "", ID: "8"},
		{Name: "Tab\tName", ID: "9"},
	}, drain[catalog.ArtistCredit](t, c))
}

func TestTSV_MissingFile(t *testing.T) {
	src := &catalog.TSV{ArtistPath: filepath.Join(t.TempDir(), "nope.tsv")}
	_, err := src.ArtistCredits(context.Background(), 0)
	require.Error(t, err)
}
