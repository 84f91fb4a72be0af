package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jonnymurillo288/MelodyMatch/bktree"
	"github.com/Jonnymurillo288/MelodyMatch/internal/catalog"
	"github.com/Jonnymurillo288/MelodyMatch/internal/index"
	"github.com/Jonnymurillo288/MelodyMatch/internal/normalize"
)

// interactiveTop is how many hits each prompt prints.
const interactiveTop = 25

func cmdArtists(a *app) *cobra.Command {
	var radius int
	cmd := &cobra.Command{
		Use:   "artists",
		Short: "Build the artist-credit index and search it interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := a.indexOptions()
			if err != nil {
				return err
			}
			sup, closer, err := a.openSupplier()
			if err != nil {
				return err
			}
			defer closer.Close()

			cur, err := sup.ArtistCredits(cmd.Context(), opts.ArtistLimit)
			if err != nil {
				return err
			}
			tree, _, err := index.BuildArtistCredits(cmd.Context(), cur, opts)
			if err != nil {
				return err
			}

			return searchLoop(cmd.InOrStdin(), cmd.OutOrStdout(), opts.Normalize, func(q string) error {
				hits, err := tree.Search(catalog.ArtistCredit{Name: q}, radius)
				if err != nil {
					return err
				}
				bktree.SortMatches(hits)
				for _, h := range top(hits) {
					fmt.Fprintf(cmd.OutOrStdout(), "%d %-30s\n", h.Distance, clip(h.Value.Name, 29))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&radius, "radius", "r", 3, "Maximum edit distance")
	return cmd
}

func cmdRecordings(a *app) *cobra.Command {
	var radius int
	cmd := &cobra.Command{
		Use:   "recordings",
		Short: "Build the recording index and search it interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := a.indexOptions()
			if err != nil {
				return err
			}
			sup, closer, err := a.openSupplier()
			if err != nil {
				return err
			}
			defer closer.Close()

			cur, err := sup.Recordings(cmd.Context(), opts.RecordingLimit)
			if err != nil {
				return err
			}
			tree, _, err := index.BuildRecordings(cmd.Context(), cur, opts)
			if err != nil {
				return err
			}

			return searchLoop(cmd.InOrStdin(), cmd.OutOrStdout(), opts.Normalize, func(q string) error {
				hits, err := tree.Search(catalog.Recording{Name: q}, radius)
				if err != nil {
					return err
				}
				bktree.SortMatches(hits)
				for _, h := range top(hits) {
					fmt.Fprintf(cmd.OutOrStdout(), "%d %-30s %s\n", h.Distance, clip(h.Value.Name, 29), h.Value.ArtistCreditID)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&radius, "radius", "r", 5, "Maximum edit distance")
	return cmd
}

// searchLoop prompts until an empty line or EOF, running each normalized
// query through fn.
func searchLoop(in io.Reader, out io.Writer, norm normalize.Func, fn func(q string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "search> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			return nil
		}
		if err := fn(norm(line)); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
}

func top[T any](ms []bktree.Match[T]) []bktree.Match[T] {
	if len(ms) > interactiveTop {
		return ms[:interactiveTop]
	}
	return ms
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
