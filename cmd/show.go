package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/evaluate"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/report"
)

var (
	showModel string
	showDrive int
)

var showCmd = &cobra.Command{
	Use:   "show <game-id-prefix>",
	Short: "Replay a stored game through a model, play by play",
	Long: `Replay every drive of a stored game and print, for each play, the call the
model would have made from the earlier plays of the drive next to the call the
offense actually made.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showModel, "model", "m", "", "model file (default ~/.playcall/model.zst)")
	showCmd.Flags().IntVar(&showDrive, "drive", 0, "only show this drive number")
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	gameID, err := db.FindGame(prefix)
	if err != nil {
		return fmt.Errorf("query game: %w", err)
	}
	if gameID == "" {
		fmt.Fprintf(os.Stderr, "No game found with id prefix %q\n", prefix)
		return nil
	}
	p, _, err := loadModel(showModel)
	if err != nil {
		return err
	}
	drives, err := db.LoadDrives([]string{gameID})
	if err != nil {
		return fmt.Errorf("load drives: %w", err)
	}

	fmt.Fprintf(os.Stdout, "\nGame: %s  |  Model features: %s  |  Depth: %d\n", gameID, p.Config().Features, p.Config().MaxDepth)
	overall := evaluate.NewMetrics()
	for _, d := range drives {
		if showDrive != 0 && d.Number != showDrive {
			continue
		}
		preds, err := replayDrive(p, d)
		if err != nil {
			return fmt.Errorf("drive %d: %w", d.Number, err)
		}
		dm := evaluate.NewMetrics()
		for i, pl := range d.Plays {
			if called, prob, ok := preds[i].Dist.ArgMax(); ok && pl.Type != model.PlayOther {
				dm.Add(pl.Type, called, prob)
			}
		}
		report.PrintDriveReplay(os.Stdout, d, preds)
		if dm.Total > 0 {
			fmt.Fprintf(os.Stdout, "%d of %d calls matched\n", dm.Correct, dm.Total)
		}
		overall.Merge(dm)
	}
	if overall.Total > 0 {
		fmt.Fprintf(os.Stdout, "\n%d of %d calls matched (%.1f%%)\n", overall.Correct, overall.Total, 100*overall.Accuracy())
	}
	return nil
}

// replayDrive predicts every play of d from the plays before it.
func replayDrive(p *predictor.Predictor, d model.Drive) ([]predictor.Prediction, error) {
	symbols := d.Symbols()
	preds := make([]predictor.Prediction, len(d.Plays))
	for i, pl := range d.Plays {
		pred, err := p.Predict(predictor.Query{
			Situation: pl.Situation(),
			Recent:    symbols[:i],
			Aux:       pl.Aux(),
		})
		if err != nil {
			return nil, err
		}
		preds[i] = pred
	}
	return preds, nil
}
