package predictor

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/situation"
)

const (
	P = model.PlayPass
	R = model.PlayRun
)

func f64(v float64) *float64 { return &v }

func sits(triples ...[3]int) []model.Situation {
	out := make([]model.Situation, len(triples))
	for i, t := range triples {
		out[i] = model.Situation{Down: t[0], ToGo: t[1], YardLine: t[2]}
	}
	return out
}

func newPredictor(t *testing.T, mutate func(*Config)) *Predictor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxDepth = 5
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func sumTo1(t *testing.T, d model.Distribution) {
	t.Helper()
	require.InDelta(t, 1.0, d.Sum(), 1e-6)
}

var scenarioSits = sits([3]int{1, 10, 75}, [3]int{2, 6, 71}, [3]int{3, 2, 65})

func TestScenarioExactValues(t *testing.T) {
	configs := map[string]func(*Config){
		"fallback disabled": func(c *Config) { c.Fallback = false },
		"threshold one":     func(c *Config) { c.MinExamples = 1 },
	}
	for name, mutate := range configs {
		t.Run(name, func(t *testing.T) {
			p := newPredictor(t, mutate)
			require.NoError(t, p.InsertDrive(DriveInput{
				Symbols:    []model.PlayType{P, R, P},
				Situations: scenarioSits,
			}))

			pred, err := p.Predict(Query{
				Situation: model.Situation{Down: 3, ToGo: 2, YardLine: 65},
				Recent:    []model.PlayType{P, R},
			})
			require.NoError(t, err)
			require.Equal(t, model.Distribution{P: 1.0}, pred.Dist)
			require.Equal(t, 2, pred.Depth)
			require.Equal(t, LevelSpecific, pred.Level)
			require.Equal(t, situation.BaseKey(situation.ThirdShort), pred.Key)
		})
	}
}

func TestScenarioMultiCount(t *testing.T) {
	p := newPredictor(t, func(c *Config) { c.Fallback = false })
	drives := [][]model.PlayType{{P, R, P}, {P, R, P}, {P, R, R}}
	for _, d := range drives {
		// Every play in the same bucket so each window lands in one trie.
		require.NoError(t, p.InsertDrive(DriveInput{
			Symbols:    d,
			Situations: sits([3]int{1, 10, 75}, [3]int{1, 10, 75}, [3]int{1, 10, 75}),
		}))
	}

	pred, err := p.Predict(Query{
		Situation: model.Situation{Down: 1, ToGo: 10, YardLine: 75},
		Recent:    []model.PlayType{P, R},
	})
	require.NoError(t, err)
	require.Equal(t, 2, pred.Depth)
	require.InDelta(t, 2.0/3.0, pred.Dist[P], 1e-9)
	require.InDelta(t, 1.0/3.0, pred.Dist[R], 1e-9)
	sumTo1(t, pred.Dist)
}

func TestPredictEmptyPredictor(t *testing.T) {
	p := newPredictor(t, func(c *Config) { c.Fallback = false })
	pred, err := p.Predict(Query{
		Situation: model.Situation{Down: 1, ToGo: 10, YardLine: 75},
		Recent:    []model.PlayType{P},
	})
	require.NoError(t, err)
	require.Empty(t, pred.Dist)
	require.Equal(t, 0, pred.Depth)
	require.Equal(t, LevelNone, pred.Level)
	require.Zero(t, p.Usage()[LevelSpecific])
}

func TestPredictLeaguePrior(t *testing.T) {
	p := newPredictor(t, nil)
	require.NoError(t, p.InsertDrive(DriveInput{Symbols: []model.PlayType{P, R, P}, Situations: scenarioSits}))

	// Below the default 50-insertion threshold every bucket is sparse.
	pred, err := p.Predict(Query{
		Situation: model.Situation{Down: 3, ToGo: 2, YardLine: 65},
		Recent:    []model.PlayType{P, R},
	})
	require.NoError(t, err)
	require.Equal(t, LevelLeague, pred.Level)
	require.Equal(t, 0, pred.Depth)
	require.Equal(t, model.Distribution{P: 0.58, R: 0.42}, pred.Dist)
	require.Equal(t, int64(1), p.Usage()[LevelLeague])

	// The returned distribution is a copy.
	pred.Dist[P] = 0
	again, err := p.Predict(Query{Situation: model.Situation{Down: 1, ToGo: 10, YardLine: 75}})
	require.NoError(t, err)
	require.Equal(t, 0.58, again.Dist[P])
}

// trainScoreBucket puts n early-down windows into the canonical bucket and,
// when leading, one into the leading score bucket.
func trainScoreBucket(t *testing.T, p *Predictor, n int, sym model.PlayType, diff float64) {
	t.Helper()
	for range n {
		require.NoError(t, p.InsertDrive(DriveInput{
			Symbols:    []model.PlayType{P, sym},
			Situations: sits([3]int{1, 10, 75}, [3]int{2, 10, 75}),
			Aux: []model.Aux{
				{ScoreDiff: f64(diff)},
				{ScoreDiff: f64(diff)},
			},
		}))
	}
}

func TestFallbackOrderingSparseSpecificUsesCanonical(t *testing.T) {
	p := newPredictor(t, func(c *Config) {
		c.Features = situation.ScoreFeatures
		c.MinExamples = 5
	})
	// Tied games always run after a pass: 10 drives, 20 insertions into tied and
	// 20 more into the canonical bucket.
	trainScoreBucket(t, p, 10, R, 0)
	// One leading drive always passes: its specific bucket has 2 insertions.
	trainScoreBucket(t, p, 1, P, 10)

	leading := situation.ScoreKey(situation.EarlyDownLong, situation.Leading)
	require.Equal(t, 2, p.Insertions(leading))
	require.Equal(t, 22, p.Insertions(situation.BaseKey(situation.EarlyDownLong)))

	q := Query{
		Situation: model.Situation{Down: 2, ToGo: 10, YardLine: 75},
		Recent:    []model.PlayType{P},
		Aux:       model.Aux{ScoreDiff: f64(10)},
	}
	pred, err := p.Predict(q)
	require.NoError(t, err)
	require.Equal(t, LevelBase, pred.Level)
	require.Equal(t, situation.BaseKey(situation.EarlyDownLong), pred.Key)

	// Same answer as asking the canonical bucket directly.
	canon := newPredictor(t, func(c *Config) { c.MinExamples = 5 })
	trainScoreBucket(t, canon, 10, R, 0)
	trainScoreBucket(t, canon, 1, P, 10)
	want, err := canon.Predict(Query{Situation: q.Situation, Recent: q.Recent})
	require.NoError(t, err)
	require.Equal(t, want.Dist, pred.Dist)
	require.Equal(t, want.Depth, pred.Depth)
	require.Greater(t, pred.Dist[R], pred.Dist[P])

	// The reliable tied bucket answers at level 1.
	q.Aux = model.Aux{ScoreDiff: f64(0)}
	pred, err = p.Predict(q)
	require.NoError(t, err)
	require.Equal(t, LevelSpecific, pred.Level)
	require.Equal(t, model.Distribution{R: 1.0}, pred.Dist)

	usage := p.Usage()
	require.Equal(t, int64(1), usage[LevelSpecific])
	require.Equal(t, int64(1), usage[LevelBase])
	require.Equal(t, int64(0), usage[LevelLeague])
}

func TestMissingAuxFallsBackToCanonicalKey(t *testing.T) {
	p := newPredictor(t, func(c *Config) {
		c.Features = situation.ScoreTeamFeatures
		c.MinExamples = 1
	})
	require.NoError(t, p.InsertDrive(DriveInput{
		Symbols:    []model.PlayType{P, R},
		Situations: sits([3]int{1, 10, 75}, [3]int{2, 10, 75}),
		Aux: []model.Aux{
			{ScoreDiff: f64(-10), TeamPassRate: f64(0.7)},
			{ScoreDiff: f64(-10)},
		},
	}))
	specific := situation.ScoreTeamKey(situation.EarlyDownLong, situation.Trailing, situation.PassHeavy)
	require.Equal(t, 1, p.Insertions(specific))
	// One extra copy for play 0, plus play 1 which had no team rate.
	require.Equal(t, 2, p.Insertions(situation.BaseKey(situation.EarlyDownLong)))
	require.Equal(t, 3, p.TotalInsertions())
}

func TestNormalizationAcrossBuckets(t *testing.T) {
	p := newPredictor(t, func(c *Config) { c.MinExamples = 1 })
	seqs := [][]model.PlayType{{P, R, P, P}, {R, R, P, R}, {P, P, R, R}, {R, P, R, P}}
	for _, s := range seqs {
		require.NoError(t, p.InsertDrive(DriveInput{
			Symbols:    s,
			Situations: sits([3]int{1, 10, 75}, [3]int{2, 4, 69}, [3]int{3, 1, 66}, [3]int{4, 1, 66}),
		}))
	}
	for _, sit := range sits([3]int{1, 10, 75}, [3]int{2, 4, 69}, [3]int{3, 1, 66}, [3]int{4, 1, 66}) {
		for _, recent := range [][]model.PlayType{nil, {P}, {R}, {P, R}, {R, R, P}, {P, P, P, P, P, P, P}} {
			pred, err := p.Predict(Query{Situation: sit, Recent: recent})
			require.NoError(t, err)
			require.NotEmpty(t, pred.Dist)
			sumTo1(t, pred.Dist)
		}
	}
}

func TestInsertDriveValidation(t *testing.T) {
	p := newPredictor(t, nil)
	cases := map[string]DriveInput{
		"situations": {Symbols: []model.PlayType{P, R}, Situations: sits([3]int{1, 10, 75})},
		"outcomes":   {Symbols: []model.PlayType{P}, Situations: sits([3]int{1, 10, 75}), Outcomes: []float64{1, 2}},
		"aux":        {Symbols: []model.PlayType{P}, Situations: sits([3]int{1, 10, 75}), Aux: []model.Aux{{}, {}}},
		"down":       {Symbols: []model.PlayType{P, R}, Situations: sits([3]int{1, 10, 75}, [3]int{5, 10, 75})},
	}
	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			err := p.InsertDrive(in)
			var ve *model.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
	// Nothing was inserted by the failing drives.
	require.Zero(t, p.TotalInsertions())
	require.Empty(t, p.Keys())
}

func TestPredictRejectsBadDown(t *testing.T) {
	p := newPredictor(t, nil)
	_, err := p.Predict(Query{Situation: model.Situation{Down: 0, ToGo: 10, YardLine: 75}})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "down", ve.Field)
}

func TestConfigValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.MaxDepth = 0 },
		func(c *Config) { c.MinExamples = -1 },
		func(c *Config) { c.TopK = 0 },
		func(c *Config) { c.Features = situation.FeatureSet(42) },
		func(c *Config) { c.Prior = nil },
		func(c *Config) { c.Prior = model.Distribution{P: 0.5, R: 0.4} },
		func(c *Config) { c.Prior = model.Distribution{P: 1.5, R: -0.5} },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		_, err := New(cfg)
		var ve *model.ValidationError
		require.ErrorAs(t, err, &ve, "case %d", i)
	}

	// The prior is irrelevant without fallback.
	cfg := DefaultConfig()
	cfg.Fallback = false
	cfg.Prior = nil
	_, err := New(cfg)
	require.NoError(t, err)
}

func TestTrainReportsDrive(t *testing.T) {
	p := newPredictor(t, nil)
	drives := []model.Drive{
		{GameID: "g1", Number: 1, Plays: []model.Play{
			{Type: P, Down: 1, ToGo: 10, YardLine: 75},
			{Type: R, Down: 2, ToGo: 4, YardLine: 69},
		}},
		{GameID: "g1", Number: 2, Plays: []model.Play{
			{Type: P, Down: 7, ToGo: 10, YardLine: 75},
		}},
	}
	n, err := p.Train(drives)
	require.Equal(t, 2, n)
	require.ErrorContains(t, err, "drive g1/2")
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestStats(t *testing.T) {
	p := newPredictor(t, func(c *Config) {
		c.Features = situation.ScoreFeatures
		c.MinExamples = 3
	})
	trainScoreBucket(t, p, 2, R, 0)

	s := p.Stats()
	require.Equal(t, 8, s.TotalInsertions)
	require.Len(t, s.Buckets, 2)
	// Canonical keys sort before keyed ones within a bucket.
	require.Equal(t, situation.BaseKey(situation.EarlyDownLong), s.Buckets[0].Key)
	require.Equal(t, 4, s.Buckets[0].Insertions)
	require.True(t, s.Buckets[0].Reliable)
	require.Equal(t, 4, s.Buckets[0].Shape.Sequences)
	require.Equal(t, 2, s.ReliableBuckets)
	require.Equal(t, 0, s.SparseBuckets)
	require.Equal(t, situation.ScoreFeatures, s.Config.Features)
}

func TestConcurrentPredict(t *testing.T) {
	p := newPredictor(t, func(c *Config) { c.MinExamples = 1 })
	require.NoError(t, p.InsertDrive(DriveInput{Symbols: []model.PlayType{P, R, P}, Situations: scenarioSits}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_, err := p.Predict(Query{Situation: model.Situation{Down: 3, ToGo: 2, YardLine: 65}, Recent: []model.PlayType{P, R}})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(800), p.Usage()[LevelSpecific])
}

func TestPredictionCarriesContextOutcome(t *testing.T) {
	p := newPredictor(t, func(c *Config) { c.MinExamples = 1 })
	require.NoError(t, p.InsertDrive(DriveInput{
		Symbols:    []model.PlayType{P, R, P},
		Situations: sits([3]int{1, 10, 75}, [3]int{1, 10, 75}, [3]int{1, 10, 75}),
		Outcomes:   []float64{0.5, -0.2, 1.0},
	}))

	pred, err := p.Predict(Query{
		Situation: model.Situation{Down: 1, ToGo: 10, YardLine: 75},
		Recent:    []model.PlayType{P, R},
	})
	require.NoError(t, err)
	require.Equal(t, LevelSpecific, pred.Level)
	require.Equal(t, 2, pred.Depth)
	// The P->R node was reached by the windows ending at plays 1 and 2.
	require.Equal(t, 2, pred.Outcome.Samples)
	require.InDelta(t, -0.2, pred.Outcome.Mean, 1e-9)

	league, err := p.Predict(Query{Situation: model.Situation{Down: 4, ToGo: 1, YardLine: 50}})
	require.NoError(t, err)
	require.Equal(t, LevelLeague, league.Level)
	require.Zero(t, league.Outcome.Samples)
}
