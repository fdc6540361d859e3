package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	dropForce bool
	dropGames []string
)

// dropCmd deletes the play database file, or only some games from it.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the play database or individual games",
	Long: `Permanently delete the SQLite play database, including stored evaluation runs.
Saved model files are kept. Re-ingest your CSV files afterwards to rebuild.

With --game, only the plays of the matching games are removed.

Examples:
  playcall drop --force
  playcall drop --game 2023_01_DET --game 2023_02_KC --force`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().StringSliceVar(&dropGames, "game", nil, "only delete the game with this id prefix (repeatable)")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if len(dropGames) > 0 {
		return dropGameRows()
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	// WAL mode leaves side files next to the database.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", dbPath+suffix, err)
		}
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropGameRows() error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var ids []string
	for _, prefix := range dropGames {
		id, err := db.FindGame(prefix)
		if err != nil {
			return fmt.Errorf("query game: %w", err)
		}
		if id == "" {
			fmt.Fprintf(os.Stderr, "No game found with id prefix %q\n", prefix)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete the plays of: %s\n", strings.Join(ids, ", "))
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	n, err := db.DeleteGames(ids)
	if err != nil {
		return fmt.Errorf("delete games: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted %d plays from %d games.\n", n, len(ids))
	return nil
}
