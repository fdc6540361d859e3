// Package evaluate replays held-out drives through a predictor and scores
// the arg-max call against what the offense actually did.
package evaluate

import (
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/situation"
)

// Predictor is the part of the partitioned predictor the evaluator needs.
type Predictor interface {
	Predict(q predictor.Query) (predictor.Prediction, error)
}

// Config controls which plays are scored.
type Config struct {
	// MinContext is the number of prior plays required before a play is
	// predicted. Drives no longer than this are skipped entirely.
	MinContext int
}

// DefaultConfig scores every play that has at least three plays before it.
func DefaultConfig() Config {
	return Config{MinContext: 3}
}

// Evaluator scores drives against a Predictor.
type Evaluator struct {
	p   Predictor
	cfg Config
}

// New returns an Evaluator. A negative MinContext is treated as 0.
func New(p Predictor, cfg Config) *Evaluator {
	if cfg.MinContext < 0 {
		cfg.MinContext = 0
	}
	return &Evaluator{p: p, cfg: cfg}
}

// Result collects the scores of one evaluation.
type Result struct {
	Overall     Metrics                       `json:"overall"`
	BySituation map[situation.Bucket]*Metrics `json:"by_situation"`
	Levels      map[predictor.Level]int       `json:"levels"`

	Drives        int `json:"drives"`
	SkippedDrives int `json:"skipped_drives"`
	SkippedOther  int `json:"skipped_other"`
	SkippedEmpty  int `json:"skipped_empty"`
}

// LiftPoints returns accuracy above a coin flip, in percentage points.
func (r *Result) LiftPoints() float64 {
	return (r.Overall.Accuracy() - 0.5) * 100
}

// LiftRatio returns accuracy over a coin flip's 0.5, so 1.0 is no better
// than random.
func (r *Result) LiftRatio() float64 {
	return r.Overall.Accuracy() / 0.5
}

// Evaluate scores every eligible play of drives. Validation errors from the
// predictor are returned as-is.
func (e *Evaluator) Evaluate(drives []model.Drive) (*Result, error) {
	res := &Result{
		Overall:     NewMetrics(),
		BySituation: make(map[situation.Bucket]*Metrics),
		Levels:      make(map[predictor.Level]int),
	}
	for _, d := range drives {
		if len(d.Plays) <= e.cfg.MinContext {
			res.SkippedDrives++
			continue
		}
		res.Drives++
		symbols := d.Symbols()
		for i := e.cfg.MinContext; i < len(d.Plays); i++ {
			play := d.Plays[i]
			if play.Type == model.PlayOther {
				res.SkippedOther++
				continue
			}
			pred, err := e.p.Predict(predictor.Query{
				Situation: play.Situation(),
				Recent:    symbols[:i],
				Aux:       play.Aux(),
			})
			if err != nil {
				return nil, err
			}
			guess, conf, ok := pred.Dist.ArgMax()
			if !ok {
				res.SkippedEmpty++
				continue
			}
			res.Overall.Add(play.Type, guess, conf)
			b := situation.ClassifySituation(play.Situation())
			m, ok := res.BySituation[b]
			if !ok {
				nm := NewMetrics()
				m = &nm
				res.BySituation[b] = m
			}
			m.Add(play.Type, guess, conf)
			res.Levels[pred.Level]++
		}
	}
	return res, nil
}
