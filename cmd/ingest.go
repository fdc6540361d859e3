package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/aggregator"
	"github.com/pable/go-playcall/internal/ingest"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/storage"
)

var (
	ingestKeepOther bool
	ingestTeamRate  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.csv> [file.csv...]",
	Short: "Load play-by-play CSV files into the database",
	Long: `Read play-by-play CSV exports (plain, .gz or .zst) and store the pass and run
plays. Rows without down, distance or field position are dropped.

Plays without a team pass rate get the offense's rolling rate over its most
recent games, computed across every file of this invocation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestKeepOther, "keep-other", false, "keep non pass/run plays as OTHER")
	ingestCmd.Flags().BoolVar(&ingestTeamRate, "team-rate", true, "fill missing team pass rates from a rolling window")
}

func runIngest(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	return storeFiles(db, args)
}

// storeFiles reads every path, fills missing team pass rates and inserts the
// plays in one transaction.
func storeFiles(db *storage.DB, paths []string) error {
	var all []model.Play
	for _, path := range paths {
		plays, sum, err := ingest.ReadFile(path, ingest.Options{KeepOther: ingestKeepOther})
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		log.Info().
			Str("file", path).
			Int("rows", sum.Rows).
			Int("kept", sum.Kept).
			Int("skipped_type", sum.SkippedType).
			Int("skipped_state", sum.SkippedState).
			Int("skipped_no_game", sum.SkippedNoGame).
			Msg("file read")
		all = append(all, plays...)
	}
	if len(all) == 0 {
		fmt.Fprintln(os.Stdout, "No usable plays found.")
		return nil
	}

	if ingestTeamRate {
		n := aggregator.FillPassRates(all, cfg.RateOptions())
		log.Info().Int("plays", n).Int("window", cfg.TeamIdentity.WindowGames).Msg("team pass rates filled")
	}

	if err := db.InsertPlays(all); err != nil {
		return fmt.Errorf("store plays: %w", err)
	}
	total, err := db.PlayCount()
	if err != nil {
		return fmt.Errorf("count plays: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Stored %d plays (%d in database).\n", len(all), total)
	return nil
}
