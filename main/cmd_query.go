package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jonnymurillo288/MelodyMatch/internal/hoster"
	"github.com/Jonnymurillo288/MelodyMatch/internal/index"
	"github.com/Jonnymurillo288/MelodyMatch/internal/jobs"
)

func cmdQuery(a *app) *cobra.Command {
	var (
		offset int
		limit  int
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "query <slug> [key=value ...]",
		Short: "Run a hosted query and print its rows as JSON",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker := jobs.NewManager()
			reg := hoster.NewRegistry(tracker, a.log)
			ix := hoster.NewIndexes(func(ctx context.Context) (*index.Set, error) {
				return a.buildSet(ctx, tracker)
			})
			if err := hoster.RegisterIndexQueries(reg, ix); err != nil {
				return err
			}

			if list {
				for _, slug := range reg.Slugs() {
					q, _ := reg.Get(slug)
					_, desc := q.Names()
					fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n    inputs: %s\n", slug, desc, strings.Join(q.Inputs(), ", "))
				}
				return nil
			}

			slug := args[0]
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			if err := reg.Setup(cmd.Context(), slug); err != nil {
				return err
			}

			rows, err := reg.Run(cmd.Context(), slug, []hoster.Params{params}, offset, limit)
			if err != nil {
				return err
			}
			if rows == nil {
				rows = []hoster.Row{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (0 = 50)")
	cmd.Flags().BoolVar(&list, "list", false, "List the available queries")
	return cmd
}

func parseParams(args []string) (hoster.Params, error) {
	p := hoster.Params{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", arg)
		}
		p[k] = v
	}
	return p, nil
}
