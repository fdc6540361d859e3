package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/evaluate"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id-prefix]",
	Short: "List stored evaluation runs, or show one in full",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 1 {
		run, err := findRun(db, args[0])
		if err != nil {
			return err
		}
		res, err := decodeResult(run)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Run %s  |  %s  |  model %s\n", run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04"), run.ModelPath)
		fmt.Fprintf(os.Stdout, "Features: %s  |  Depth: %d  |  Fallback: %v  |  Threshold: %d  |  Min context: %d\n",
			run.Features, run.MaxDepth, run.Fallback, run.MinExamples, run.MinContext)
		report.PrintResult(os.Stdout, res)
		return nil
	}

	runs, err := db.ListEvalRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No evaluation runs stored yet. Run 'playcall evaluate' first.")
		return nil
	}
	report.PrintRuns(os.Stdout, runs)
	return nil
}

func findRun(db *storage.DB, prefix string) (*storage.EvalRun, error) {
	run, err := db.GetEvalRunByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("no run found with prefix %q", prefix)
	}
	return run, nil
}

func decodeResult(run *storage.EvalRun) (*evaluate.Result, error) {
	var res evaluate.Result
	if err := json.Unmarshal([]byte(run.ResultJSON), &res); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", run.ID, err)
	}
	return &res, nil
}
