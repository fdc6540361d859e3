package evaluate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/situation"
)

const (
	P = model.PlayPass
	R = model.PlayRun
	O = model.PlayOther
)

// scripted answers every query with the next canned distribution and
// remembers what it was asked.
type scripted struct {
	answers []model.Distribution
	queries []predictor.Query
	err     error
}

func (s *scripted) Predict(q predictor.Query) (predictor.Prediction, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return predictor.Prediction{}, s.err
	}
	d := s.answers[0]
	s.answers = s.answers[1:]
	level := predictor.LevelSpecific
	if len(d) == 0 {
		level = predictor.LevelNone
	}
	return predictor.Prediction{Dist: d, Level: level}, nil
}

func drive(types ...model.PlayType) model.Drive {
	d := model.Drive{GameID: "g", Number: 1}
	for i, pt := range types {
		d.Plays = append(d.Plays, model.Play{GameID: "g", Drive: 1, PlayID: i + 1, Type: pt, Down: 1, ToGo: 10, YardLine: 75})
	}
	return d
}

func TestEvaluateSkipsShortDrivesAndContext(t *testing.T) {
	sp := &scripted{answers: []model.Distribution{{P: 0.7, R: 0.3}, {R: 0.6, P: 0.4}}}
	ev := New(sp, Config{MinContext: 3})

	res, err := ev.Evaluate([]model.Drive{
		drive(P, R, P),       // len == MinContext, skipped
		drive(P, R, P, P, R), // plays 3 and 4 scored
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.SkippedDrives)
	require.Equal(t, 1, res.Drives)
	require.Len(t, sp.queries, 2)
	require.Equal(t, []model.PlayType{P, R, P}, sp.queries[0].Recent)
	require.Equal(t, []model.PlayType{P, R, P, P}, sp.queries[1].Recent)

	require.Equal(t, 2, res.Overall.Total)
	require.Equal(t, 2, res.Overall.Correct)
	require.Equal(t, 1.0, res.Overall.Accuracy())
	require.InDelta(t, 50.0, res.LiftPoints(), 1e-9)
	require.InDelta(t, 2.0, res.LiftRatio(), 1e-9)
	require.Equal(t, 2, res.Levels[predictor.LevelSpecific])
}

func TestEvaluateSkipsOtherAndEmpty(t *testing.T) {
	sp := &scripted{answers: []model.Distribution{{}, {P: 1}}}
	ev := New(sp, DefaultConfig())

	res, err := ev.Evaluate([]model.Drive{drive(P, P, P, O, R, P)})
	require.NoError(t, err)
	// OTHER is never queried.
	require.Len(t, sp.queries, 2)
	require.Equal(t, 1, res.SkippedOther)
	require.Equal(t, 1, res.SkippedEmpty)
	require.Equal(t, 1, res.Overall.Total)
	// Context still includes the OTHER play.
	require.Equal(t, []model.PlayType{P, P, P, O, R}, sp.queries[1].Recent)
}

func TestEvaluateConfusionCounts(t *testing.T) {
	// actual:    P  R  R  P  R
	// predicted: P  P  R  R  P
	sp := &scripted{answers: []model.Distribution{
		{P: 0.9, R: 0.1},
		{P: 0.6, R: 0.4},
		{R: 0.8, P: 0.2},
		{R: 0.8, P: 0.2},
		{R: 0.5, P: 0.5}, // tie goes to P
	}}
	ev := New(sp, Config{MinContext: 0})
	res, err := ev.Evaluate([]model.Drive{drive(P, R, R, P, R)})
	require.NoError(t, err)

	m := res.Overall
	require.Equal(t, 5, m.Total)
	require.Equal(t, 2, m.Correct)
	require.InDelta(t, 0.4, m.Accuracy(), 1e-9)

	require.Equal(t, 1, m.TP[P])
	require.Equal(t, 2, m.FP[P])
	require.Equal(t, 1, m.FN[P])
	require.InDelta(t, 1.0/3.0, m.Precision(P), 1e-9)
	require.InDelta(t, 0.5, m.Recall(P), 1e-9)
	require.InDelta(t, 0.4, m.F1(P), 1e-9)
	require.InDelta(t, 2.0/3.0, m.AvgConfidence(P), 1e-9)

	require.Equal(t, 1, m.TP[R])
	require.Equal(t, 1, m.FP[R])
	require.Equal(t, 2, m.FN[R])
	require.InDelta(t, 0.5, m.Precision(R), 1e-9)
	require.InDelta(t, 1.0/3.0, m.Recall(R), 1e-9)
	require.InDelta(t, 0.8, m.AvgConfidence(R), 1e-9)

	require.Equal(t, 3, m.Predicted(P))
	require.Equal(t, 3, m.Actual(R))

	require.Len(t, res.BySituation, 1)
	require.Equal(t, 5, res.BySituation[situation.EarlyDownLong].Total)
}

func TestMetricsZeroDenominators(t *testing.T) {
	m := NewMetrics()
	require.Zero(t, m.Accuracy())
	require.Zero(t, m.Precision(P))
	require.Zero(t, m.Recall(R))
	require.Zero(t, m.F1(P))
	require.Zero(t, m.AvgConfidence(R))

	// Only passes predicted and only passes seen: run metrics stay 0.
	m.Add(P, P, 0.7)
	require.Equal(t, 1.0, m.Precision(P))
	require.Zero(t, m.Precision(R))
	require.Zero(t, m.Recall(R))
}

func TestMetricsMerge(t *testing.T) {
	a := NewMetrics()
	a.Add(P, P, 0.6)
	b := NewMetrics()
	b.Add(R, P, 0.55)
	b.Add(R, R, 0.9)

	a.Merge(b)
	require.Equal(t, 3, a.Total)
	require.Equal(t, 2, a.Correct)
	require.Equal(t, 2, a.Predicted(P))
	require.InDelta(t, 1.15, a.Confidence[P], 1e-9)
}

func TestEvaluatePropagatesErrors(t *testing.T) {
	boom := &model.ValidationError{Field: "down", Msg: "must be 1-4, got 0"}
	ev := New(&scripted{err: boom}, DefaultConfig())
	_, err := ev.Evaluate([]model.Drive{drive(P, R, P, P)})
	require.True(t, errors.Is(err, boom))
}

func TestEvaluateWithTrainedPredictor(t *testing.T) {
	cfg := predictor.DefaultConfig()
	cfg.MaxDepth = 4
	cfg.MinExamples = 1
	p, err := predictor.New(cfg)
	require.NoError(t, err)

	train := []model.Drive{drive(P, R, P, R, P, R), drive(P, R, P, R, P, R)}
	_, err = p.Train(train)
	require.NoError(t, err)

	res, err := New(p, DefaultConfig()).Evaluate([]model.Drive{drive(P, R, P, R, P, R)})
	require.NoError(t, err)
	require.Equal(t, 3, res.Overall.Total)
	require.Equal(t, 3, res.Overall.Correct)
	require.Equal(t, 3, res.Levels[predictor.LevelSpecific])
	require.Equal(t, int64(3), p.Usage()[predictor.LevelSpecific])
}
