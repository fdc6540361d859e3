package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/aggregator"
	"github.com/pable/go-playcall/internal/report"
)

var trendSeasons []int

var trendCmd = &cobra.Command{
	Use:   "trend <team>",
	Short: "Chronological per-game pass rate trend for an offense",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().IntSliceVar(&trendSeasons, "season", nil, "restrict to these seasons (repeatable)")
}

func runTrend(cmd *cobra.Command, args []string) error {
	team := strings.ToUpper(args[0])

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ids, err := db.GameIDs(trendSeasons...)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	plays, err := db.LoadPlays(ids)
	if err != nil {
		return fmt.Errorf("load plays: %w", err)
	}

	var games []aggregator.TeamGame
	for _, g := range aggregator.TeamGames(plays) {
		if g.Team == team {
			games = append(games, g)
		}
	}
	if len(games) == 0 {
		fmt.Printf("no games found for %s\n", team)
		return nil
	}

	rates := aggregator.RollingPassRates(plays, cfg.RateOptions())
	report.PrintTeamTrend(os.Stdout, games, rates)
	return nil
}
