package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/evaluate"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/storage"
	"github.com/pable/go-playcall/internal/telemetry"
)

var (
	evalModel        string
	evalSeasons      []int
	evalAll          bool
	evalTestFraction float64
	evalSeed         uint64
	evalMinContext   int
	evalNoSave       bool
	evalMetricsFile  string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a saved model on the held-out games",
	Long: `Replay the held-out games drive by drive, predict every play that has enough
prior context, and compare the most likely call with what the offense did.

The split must match the one used by 'playcall train' (same seasons, seed and
fraction). Results are stored and can be listed with 'playcall history'.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVarP(&evalModel, "model", "m", "", "model file (default ~/.playcall/model.zst)")
	f.IntSliceVar(&evalSeasons, "season", nil, "restrict to these seasons (repeatable)")
	f.BoolVar(&evalAll, "all", false, "score every stored game (in-sample if the model saw them)")
	f.Float64Var(&evalTestFraction, "test-fraction", 0, "fraction of games held out (default from config, 0.2)")
	f.Uint64Var(&evalSeed, "seed", 0, "split seed (default from config, 42)")
	f.IntVar(&evalMinContext, "min-context", -1, "prior plays required before a play is scored (default from config, 3)")
	f.BoolVar(&evalNoSave, "no-save", false, "do not store the run in the database")
	f.StringVar(&evalMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	p, modelPath, err := loadModel(evalModel)
	if err != nil {
		return err
	}
	p.ResetUsage()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	split, err := splitStoredGames(db, evalSeasons, evalAll, evalTestFraction, evalSeed)
	if err != nil {
		return err
	}
	if evalAll {
		split.Test, split.Train = split.Train, nil
	}
	drives, err := db.LoadDrives(split.Test)
	if err != nil {
		return fmt.Errorf("load drives: %w", err)
	}
	if len(drives) == 0 {
		return fmt.Errorf("no test drives; store more games or use --all")
	}

	ecfg := cfg.EvalConfig()
	if evalMinContext >= 0 {
		ecfg.MinContext = evalMinContext
	}
	start := time.Now()
	res, err := evaluate.New(p, ecfg).Evaluate(drives)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	log.Info().
		Int("test_games", len(split.Test)).
		Int("plays", res.Overall.Total).
		Float64("accuracy", res.Overall.Accuracy()).
		Dur("took", time.Since(start)).
		Msg("evaluation done")

	report.PrintResult(os.Stdout, res)

	if !evalNoSave {
		run, err := newEvalRun(res, modelPath, ecfg, len(split.Train), len(split.Test))
		if err != nil {
			return err
		}
		run.Features = p.Config().Features.String()
		run.MaxDepth = p.Config().MaxDepth
		run.Fallback = p.Config().Fallback
		run.MinExamples = p.Config().MinExamples
		if err := db.InsertEvalRun(run); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		fmt.Fprintf(os.Stdout, "\nRun stored as %s\n", run.ID[:8])
	}

	reg := telemetry.New()
	reg.RecordResult(res)
	reg.RecordUsage(p.Usage())
	reg.RecordModel(p.Stats())
	writeMetrics(reg, evalMetricsFile)
	return nil
}

func newEvalRun(res *evaluate.Result, modelPath string, ecfg evaluate.Config, trainGames, testGames int) (storage.EvalRun, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return storage.EvalRun{}, fmt.Errorf("encode result: %w", err)
	}
	m := res.Overall
	return storage.EvalRun{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		ModelPath:     modelPath,
		MinContext:    ecfg.MinContext,
		TrainGames:    trainGames,
		TestGames:     testGames,
		Total:         m.Total,
		Correct:       m.Correct,
		Accuracy:      m.Accuracy(),
		PassPrecision: m.Precision(model.PlayPass),
		PassRecall:    m.Recall(model.PlayPass),
		RunPrecision:  m.Precision(model.PlayRun),
		RunRecall:     m.Recall(model.PlayRun),
		ResultJSON:    string(b),
	}, nil
}
