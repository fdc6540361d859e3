package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/report"
)

var (
	predictModel    string
	predictRecent   string
	predictScore    float64
	predictTeamRate float64
	predictSeconds  float64
	predictLocation string
)

var predictCmd = &cobra.Command{
	Use:   "predict <down> <togo> <yardline>",
	Short: "Predict the next call for one situation",
	Long: `Predict pass vs. run for a single pre-snap situation. The yard line is the
distance from the opponent's goal line (1-99). Earlier plays of the drive are
given oldest first with --recent, e.g. --recent P,R,R.

Auxiliary values are only used when the model was trained with the matching
features; otherwise they are ignored.`,
	Args: cobra.ExactArgs(3),
	RunE: runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.StringVarP(&predictModel, "model", "m", "", "model file (default ~/.playcall/model.zst)")
	f.StringVar(&predictRecent, "recent", "", "earlier plays of the drive, oldest first (P,R,OTHER)")
	f.Float64Var(&predictScore, "score", 0, "score differential from the offense's view")
	f.Float64Var(&predictTeamRate, "team-rate", 0, "offense's recent pass rate (0-1)")
	f.Float64Var(&predictSeconds, "seconds", 0, "game seconds remaining")
	f.StringVar(&predictLocation, "location", "", "home or away")
}

func runPredict(cmd *cobra.Command, args []string) error {
	sit, err := parseSituation(args)
	if err != nil {
		return err
	}
	p, _, err := loadModel(predictModel)
	if err != nil {
		return err
	}

	q := predictor.Query{Situation: sit, Recent: parseRecent(predictRecent)}
	fl := cmd.Flags()
	if fl.Changed("score") {
		q.Aux.ScoreDiff = &predictScore
	}
	if fl.Changed("team-rate") {
		q.Aux.TeamPassRate = &predictTeamRate
	}
	if fl.Changed("seconds") {
		q.Aux.SecondsRemaining = &predictSeconds
	}
	if fl.Changed("location") {
		q.Aux.Location = &predictLocation
	}

	pred, err := p.Predict(q)
	if err != nil {
		return err
	}
	report.PrintPrediction(os.Stdout, pred)
	return nil
}

// parseSituation reads down, distance and yard line from three arguments.
func parseSituation(args []string) (model.Situation, error) {
	var s model.Situation
	if len(args) != 3 {
		return s, fmt.Errorf("need <down> <togo> <yardline>")
	}
	dst := []*int{&s.Down, &s.ToGo, &s.YardLine}
	names := []string{"down", "togo", "yardline"}
	for i, a := range args {
		if _, err := fmt.Sscanf(a, "%d", dst[i]); err != nil {
			return s, fmt.Errorf("invalid %s %q", names[i], a)
		}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	if s.YardLine < 0 || s.YardLine > 100 {
		return s, &model.ValidationError{Field: "yardline", Msg: fmt.Sprintf("must be 0-100, got %d", s.YardLine)}
	}
	return s, nil
}

// parseRecent splits "P,R,pass" style lists. Unknown tokens become OTHER.
func parseRecent(s string) []model.PlayType {
	var out []model.PlayType
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		out = append(out, model.ParsePlayType(tok))
	}
	return out
}
