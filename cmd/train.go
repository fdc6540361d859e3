package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/dataset"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/situation"
	"github.com/pable/go-playcall/internal/storage"
	"github.com/pable/go-playcall/internal/telemetry"
)

var (
	trainOut          string
	trainSeasons      []int
	trainAll          bool
	trainTestFraction float64
	trainSeed         uint64
	trainMaxDepth     int
	trainFeatures     []string
	trainNoFallback   bool
	trainMinExamples  int
	trainMetricsFile  string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on the stored games and save it",
	Long: `Split the stored games into training and test sets by game (deterministic for
a given seed), train the partitioned predictor on the training drives and save
it as a compressed model file. Use 'playcall evaluate' with the same seed and
fraction to score the held-out games.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.StringVarP(&trainOut, "out", "o", "", "model file to write (default ~/.playcall/model.zst)")
	f.IntSliceVar(&trainSeasons, "season", nil, "restrict to these seasons (repeatable)")
	f.BoolVar(&trainAll, "all", false, "train on every game, holding none out")
	f.Float64Var(&trainTestFraction, "test-fraction", 0, "fraction of games held out (default from config, 0.2)")
	f.Uint64Var(&trainSeed, "seed", 0, "split seed (default from config, 42)")
	f.IntVar(&trainMaxDepth, "max-depth", 0, "longest context window (default from config, 8)")
	f.StringSliceVar(&trainFeatures, "features", nil, "auxiliary features: score, team_identity, time_remaining, home_away")
	f.BoolVar(&trainNoFallback, "no-fallback", false, "disable the fallback ladder")
	f.IntVar(&trainMinExamples, "min-examples", -1, "insertions a bucket needs before it is trusted (default from config, 50)")
	f.StringVar(&trainMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
}

func runTrain(cmd *cobra.Command, args []string) error {
	pcfg, err := cfg.PredictorConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if trainMaxDepth > 0 {
		pcfg.MaxDepth = trainMaxDepth
	}
	if cmd.Flags().Changed("features") {
		fs, err := situation.ParseFeatureSet(trainFeatures)
		if err != nil {
			return err
		}
		pcfg.Features = fs
	}
	if trainNoFallback {
		pcfg.Fallback = false
	}
	if trainMinExamples >= 0 {
		pcfg.MinExamples = trainMinExamples
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	split, err := splitStoredGames(db, trainSeasons, trainAll, trainTestFraction, trainSeed)
	if err != nil {
		return err
	}
	drives, err := db.LoadDrives(split.Train)
	if err != nil {
		return fmt.Errorf("load drives: %w", err)
	}
	log.Info().
		Int("train_games", len(split.Train)).
		Int("test_games", len(split.Test)).
		Int("drives", len(drives)).
		Int("plays", dataset.PlayCount(drives)).
		Msg("training set loaded")

	p, err := predictor.New(pcfg)
	if err != nil {
		return err
	}
	n, err := p.Train(drives)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	log.Info().Int("plays", n).Int("buckets", len(p.Keys())).Str("features", pcfg.Features.String()).Msg("model trained")

	out := resolveModelPath(trainOut)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	if err := p.Save(out); err != nil {
		return err
	}

	stats := p.Stats()
	report.PrintStats(os.Stdout, stats)
	fmt.Fprintf(os.Stdout, "\nModel saved to %s\n", out)

	reg := telemetry.New()
	reg.RecordModel(stats)
	writeMetrics(reg, trainMetricsFile)
	return nil
}

// splitStoredGames reads the stored game ids and splits them. With all set,
// every game is a training game and the test set is empty. Zero fraction and
// seed fall back to the config file.
func splitStoredGames(db *storage.DB, seasons []int, all bool, fraction float64, seed uint64) (dataset.Split, error) {
	ids, err := db.GameIDs(seasons...)
	if err != nil {
		return dataset.Split{}, fmt.Errorf("list games: %w", err)
	}
	if len(ids) == 0 {
		return dataset.Split{}, fmt.Errorf("no games stored; run 'playcall ingest' first")
	}
	if all {
		return dataset.Split{Train: ids, Test: []string{}}, nil
	}
	if fraction == 0 {
		fraction = cfg.Evaluation.TestFraction
	}
	if seed == 0 {
		seed = cfg.Evaluation.Seed
	}
	return dataset.SplitGames(ids, fraction, seed)
}
