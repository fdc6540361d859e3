package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the play database",
	Long: `Run an arbitrary SQL query against the play database and print results as a table.

Schema overview:
  plays(game_id, play_id, season, drive, posteam, defteam, play_type,
    down, ydstogo, yardline_100, score_differential, team_pass_rate,
    game_seconds_remaining, posteam_type, epa)
  eval_runs(id, created_at, model_path, features, max_depth, fallback, min_examples,
    min_context, train_games, test_games, total, correct, accuracy,
    pass_precision, pass_recall, run_precision, run_recall, result_json)

Note: play_type is stored as P, R or OTHER. Example:
  playcall sql "SELECT down, AVG(play_type = 'P') FROM plays GROUP BY down"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	report.PrintRaw(os.Stdout, cols, rows)
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
