package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/source"
)

var (
	fetchSeasons []int
	fetchKeepDir string
	fetchURL     string
)

// fetchCmd downloads season play-by-play files and ingests them.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and ingest public play-by-play seasons",
	Long: `Download one play-by-play CSV per season from the nflverse data releases (or
the mirror set in the config file) and ingest it like 'playcall ingest' would.

Examples:
  playcall fetch --season 2023
  playcall fetch --season 2021 --season 2022 --keep-dir ./pbp`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().IntSliceVar(&fetchSeasons, "season", nil, "season to download (repeatable, required)")
	fetchCmd.Flags().StringVar(&fetchKeepDir, "keep-dir", "", "keep the downloaded files in this directory")
	fetchCmd.Flags().StringVar(&fetchURL, "url-template", "", "download URL with %d for the season (overrides config)")
	fetchCmd.Flags().BoolVar(&ingestKeepOther, "keep-other", false, "keep non pass/run plays as OTHER")
	fetchCmd.Flags().BoolVar(&ingestTeamRate, "team-rate", true, "fill missing team pass rates from a rolling window")
	_ = fetchCmd.MarkFlagRequired("season")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	tmpl := cfg.Source.URLTemplate
	if fetchURL != "" {
		tmpl = fetchURL
	}
	client := source.NewClient(tmpl)

	dir := fetchKeepDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "playcall-pbp-*")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var paths []string
	for _, season := range fetchSeasons {
		fmt.Fprintf(os.Stderr, "  downloading season %d...\n", season)
		path, err := client.Download(cmd.Context(), season, dir)
		if err != nil {
			return fmt.Errorf("season %d: %w", season, err)
		}
		log.Debug().Int("season", season).Str("file", path).Msg("downloaded")
		paths = append(paths, path)
	}
	return storeFiles(db, paths)
}
