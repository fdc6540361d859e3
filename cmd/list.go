package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/report"
)

var listSeason int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored games",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listSeason, "season", 0, "only list games of this season")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	games, err := db.ListGames(listSeason)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	if len(games) == 0 {
		fmt.Fprintln(os.Stdout, "No games stored yet. Run 'playcall ingest <pbp.csv>' to add some.")
		return nil
	}
	report.PrintGames(os.Stdout, games)
	fmt.Fprintf(os.Stdout, "\n(%d games)\n", len(games))
	return nil
}
