package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/report"
)

var statsModel string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a saved model's configuration and buckets",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsModel, "model", "m", "", "model file (default ~/.playcall/model.zst)")
}

func runStats(cmd *cobra.Command, args []string) error {
	p, _, err := loadModel(statsModel)
	if err != nil {
		return err
	}
	report.PrintStats(os.Stdout, p.Stats())
	return nil
}
