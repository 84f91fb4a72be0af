package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Jonnymurillo288/MelodyMatch/internal/config"
	"github.com/Jonnymurillo288/MelodyMatch/internal/logging"
)

// app is the state every subcommand shares once the root command has
// loaded configuration.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	var (
		configPath string
		source     string
	)

	root := &cobra.Command{
		Use:          "melodymatch",
		Short:        "Fuzzy-match artist and recording names against the MusicBrainz catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if source != "" {
				cfg.Catalog.Source = source
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("validating config: %w", err)
				}
			}

			a.cfg = cfg
			a.log, a.logCloser = logging.New(cfg.Logging)
			slog.SetDefault(a.log)
			a.log.Debug("[config] loaded", "source", cfg.Catalog.Source, "logging", cfg.Logging.String())
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "melodymatch.yaml", "YAML configuration file")
	root.PersistentFlags().StringVar(&source, "source", "", "Catalog source: postgres, sqlite or tsv (overrides config)")

	root.AddCommand(
		cmdArtists(a),
		cmdRecordings(a),
		cmdMatch(a),
		cmdBulk(a),
		cmdQuery(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
