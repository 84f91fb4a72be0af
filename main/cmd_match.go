package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jonnymurillo288/MelodyMatch/internal/matcher"
)

func cmdMatch(a *app) *cobra.Command {
	var (
		req     matcher.Request
		aRadius int
		rRadius int
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Resolve one artist and recording name to MusicBrainz recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.ArtistName == "" || req.RecordingName == "" {
				return errors.New("--artist and --recording are required")
			}
			req.ArtistRadius = a.cfg.Match.ArtistRadius
			req.RecordingRadius = a.cfg.Match.RecordingRadius
			req.Limit = a.cfg.Match.Limit
			if cmd.Flags().Changed("artist-radius") {
				req.ArtistRadius = aRadius
			}
			if cmd.Flags().Changed("recording-radius") {
				req.RecordingRadius = rRadius
			}
			if cmd.Flags().Changed("limit") {
				req.Limit = limit
			}

			set, err := a.buildSet(cmd.Context(), nil)
			if err != nil {
				return err
			}
			matches, err := matcher.New(set).Match(req)
			if err != nil {
				return err
			}
			if matches == nil {
				matches = []matcher.Match{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		},
	}
	cmd.Flags().StringVarP(&req.ArtistName, "artist", "a", "", "Artist name as submitted")
	cmd.Flags().StringVarP(&req.RecordingName, "recording", "r", "", "Recording name as submitted")
	cmd.Flags().IntVar(&aRadius, "artist-radius", matcher.DefaultArtistRadius, "Maximum artist edit distance")
	cmd.Flags().IntVar(&rRadius, "recording-radius", matcher.DefaultRecordingRadius, "Maximum recording edit distance")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of matches (0 = config default)")
	return cmd
}

func cmdBulk(a *app) *cobra.Command {
	var (
		out     string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "bulk <msid-file>",
		Short: "Match every recording MSID listed in a file and write a CSV report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			ids, err := matcher.ReadIdentifiers(f)
			f.Close()
			if err != nil {
				return err
			}
			a.log.Info("[bulk] read identifiers", "file", args[0], "count", len(ids))

			listens, closer, err := a.openListens()
			if err != nil {
				return err
			}
			defer closer.Close()

			set, err := a.buildSet(ctx, nil)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Match.Workers
			}
			results, err := matcher.New(set).ResolveBulk(ctx, listens, ids, matcher.BulkOptions{
				ArtistRadius:    a.cfg.Match.ArtistRadius,
				RecordingRadius: a.cfg.Match.RecordingRadius,
				Limit:           a.cfg.Match.Limit,
				Workers:         workers,
				Logger:          a.log,
			})
			if err != nil {
				return err
			}

			w, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := matcher.WriteBulkCSV(w, results); err != nil {
				w.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := w.Close(); err != nil {
				return err
			}
			a.log.Info("[bulk] wrote report", "file", out, "entries", len(results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "results.csv", "CSV report path")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent matchers (0 = GOMAXPROCS)")
	return cmd
}
