package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/aggregator"
	"github.com/pable/go-playcall/internal/report"
)

var summarySeasons []int

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about the stored plays: game and play counts,
season range, the pass/run split per down-and-distance situation, and each
offense's recent tendency.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().IntSliceVar(&summarySeasons, "season", nil, "restrict the breakdowns to these seasons (repeatable)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.Overview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Plays == 0 {
		fmt.Fprintln(os.Stdout, "No plays stored yet. Run 'playcall ingest <pbp.csv>' to add some.")
		return nil
	}

	passShare := 0.0
	if ov.Passes+ov.Runs > 0 {
		passShare = 100 * float64(ov.Passes) / float64(ov.Passes+ov.Runs)
	}
	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Games stored  : %d\n", ov.Games)
	fmt.Fprintf(os.Stdout, "  Seasons       : %d → %d\n", ov.FirstSeason, ov.LastSeason)
	fmt.Fprintf(os.Stdout, "  Offenses seen : %d\n", ov.Teams)
	fmt.Fprintf(os.Stdout, "  Drives        : %d\n", ov.Drives)
	fmt.Fprintf(os.Stdout, "  Plays         : %d (pass %d, run %d, %.1f%% pass)\n", ov.Plays, ov.Passes, ov.Runs, passShare)

	ids, err := db.GameIDs(summarySeasons...)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	plays, err := db.LoadPlays(ids)
	if err != nil {
		return fmt.Errorf("load plays: %w", err)
	}

	fmt.Fprintf(os.Stdout, "\n--- Situations ---\n\n")
	report.PrintSituationMix(os.Stdout, aggregator.Mix(plays))

	fmt.Fprintf(os.Stdout, "\n--- Offenses (last %d games) ---\n\n", cfg.TeamIdentity.WindowGames)
	report.PrintTeamProfiles(os.Stdout, aggregator.TeamProfiles(plays, cfg.RateOptions()))
	return nil
}
