// Package predictor routes training windows into one sequence trie per
// situation key and answers predictions through a three-level fallback:
// the specific key, its canonical bucket, then a fixed league prior.
//
// Training is single-writer. Once training is done, Predict may be called
// from many goroutines.
package predictor

import (
	"fmt"
	"sync/atomic"

	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/situation"
	"github.com/pable/go-playcall/internal/trie"
)

// Config holds the knobs that shape training and prediction.
type Config struct {
	MaxDepth    int                  `json:"max_depth"`
	Features    situation.FeatureSet `json:"features"`
	Fallback    bool                 `json:"fallback"`
	MinExamples int                  `json:"min_examples"`
	Prior       model.Distribution   `json:"prior"`
	TopK        int                  `json:"top_k"`
}

// DefaultConfig returns depth 8, no features, fallback on with a 50-insertion
// threshold, and the league prior 58% pass / 42% run.
func DefaultConfig() Config {
	return Config{
		MaxDepth:    8,
		Features:    situation.NoFeatures,
		Fallback:    true,
		MinExamples: 50,
		Prior:       model.Distribution{model.PlayPass: 0.58, model.PlayRun: 0.42},
		TopK:        10,
	}
}

// Validate rejects configurations that cannot produce sensible predictions.
func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return &model.ValidationError{Field: "max_depth", Msg: fmt.Sprintf("must be >= 1, got %d", c.MaxDepth)}
	}
	if c.MinExamples < 0 {
		return &model.ValidationError{Field: "min_examples", Msg: fmt.Sprintf("must be >= 0, got %d", c.MinExamples)}
	}
	if c.TopK < 1 {
		return &model.ValidationError{Field: "top_k", Msg: fmt.Sprintf("must be >= 1, got %d", c.TopK)}
	}
	if _, ok := validFeatureSets[c.Features]; !ok {
		return &model.ValidationError{Field: "features", Msg: fmt.Sprintf("unknown feature set %d", c.Features)}
	}
	if c.Fallback {
		if len(c.Prior) == 0 {
			return &model.ValidationError{Field: "prior", Msg: "must not be empty when fallback is enabled"}
		}
		for pt, p := range c.Prior {
			if p < 0 {
				return &model.ValidationError{Field: "prior", Msg: fmt.Sprintf("negative probability for %s", pt.Name())}
			}
		}
		if s := c.Prior.Sum(); s < 1-1e-6 || s > 1+1e-6 {
			return &model.ValidationError{Field: "prior", Msg: fmt.Sprintf("must sum to 1, got %.4f", s)}
		}
	}
	return nil
}

var validFeatureSets = map[situation.FeatureSet]bool{
	situation.NoFeatures:           true,
	situation.ScoreFeatures:        true,
	situation.TeamFeatures:         true,
	situation.ScoreTeamFeatures:    true,
	situation.TimeLocationFeatures: true,
}

// Level names the rung of the fallback ladder that answered a prediction.
type Level uint8

const (
	LevelNone Level = iota
	LevelSpecific
	LevelBase
	LevelLeague
	numLevels
)

// Levels lists the levels that are counted, in ladder order.
var Levels = []Level{LevelSpecific, LevelBase, LevelLeague}

func (l Level) String() string {
	switch l {
	case LevelSpecific:
		return "level_1_specific"
	case LevelBase:
		return "level_2_base"
	case LevelLeague:
		return "level_3_league"
	default:
		return "none"
	}
}

// ParseLevel is the inverse of Level.String.
func ParseLevel(s string) (Level, error) {
	for l := LevelNone; l < numLevels; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return LevelNone, fmt.Errorf("unknown fallback level %q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Predictor is the partitioned trie registry.
type Predictor struct {
	cfg    Config
	tries  map[situation.Key]*trie.Trie
	counts map[situation.Key]int
	total  int

	usage [numLevels]atomic.Int64
}

// New returns an untrained predictor.
func New(cfg Config) (*Predictor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Prior = cfg.Prior.Clone()
	return &Predictor{
		cfg:    cfg,
		tries:  make(map[situation.Key]*trie.Trie),
		counts: make(map[situation.Key]int),
	}, nil
}

// Config returns a copy of the predictor's configuration.
func (p *Predictor) Config() Config {
	c := p.cfg
	c.Prior = c.Prior.Clone()
	return c
}

// DriveInput is one drive in parallel-slice form. Outcomes and Aux are
// optional; when set they must match Symbols in length.
type DriveInput struct {
	Symbols    []model.PlayType
	Situations []model.Situation
	Outcomes   []float64
	Aux        []model.Aux
}

// FromDrive converts a stored drive into training input.
func FromDrive(d model.Drive) DriveInput {
	return DriveInput{
		Symbols:    d.Symbols(),
		Situations: d.Situations(),
		Outcomes:   d.Outcomes(),
		Aux:        d.AuxValues(),
	}
}

func (in DriveInput) validate() error {
	n := len(in.Symbols)
	if len(in.Situations) != n {
		return &model.ValidationError{Field: "situations", Msg: fmt.Sprintf("length %d does not match %d symbols", len(in.Situations), n)}
	}
	if in.Outcomes != nil && len(in.Outcomes) != n {
		return &model.ValidationError{Field: "outcomes", Msg: fmt.Sprintf("length %d does not match %d symbols", len(in.Outcomes), n)}
	}
	if in.Aux != nil && len(in.Aux) != n {
		return &model.ValidationError{Field: "aux", Msg: fmt.Sprintf("length %d does not match %d symbols", len(in.Aux), n)}
	}
	for _, s := range in.Situations {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InsertDrive routes every play of the drive into its situation's trie. The
// whole drive is validated before anything is inserted.
func (p *Predictor) InsertDrive(in DriveInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	extraBase := p.cfg.Fallback && p.cfg.Features.Active()
	for i := range in.Symbols {
		var aux model.Aux
		if in.Aux != nil {
			aux = in.Aux[i]
		}
		key := situation.KeyFor(p.cfg.Features, in.Situations[i], aux)

		start := max(0, i-p.cfg.MaxDepth)
		window := in.Symbols[start : i+1]
		var outcomes []float64
		if in.Outcomes != nil {
			outcomes = in.Outcomes[start : i+1]
		}

		p.insert(key, window, outcomes)
		// A key that already fell back to canonical is not inserted twice.
		if extraBase && !key.IsCanonical() {
			p.insert(key.Canonical(), window, outcomes)
		}
	}
	return nil
}

func (p *Predictor) insert(key situation.Key, window []model.PlayType, outcomes []float64) {
	t, ok := p.tries[key]
	if !ok {
		t = trie.New(p.cfg.MaxDepth)
		p.tries[key] = t
		p.counts[key] = 0
	}
	t.Insert(window, outcomes)
	p.counts[key]++
	p.total++
}

// Train inserts each drive and returns the number of plays inserted.
func (p *Predictor) Train(drives []model.Drive) (int, error) {
	plays := 0
	for _, d := range drives {
		if err := p.InsertDrive(FromDrive(d)); err != nil {
			return plays, fmt.Errorf("drive %s/%d: %w", d.GameID, d.Number, err)
		}
		plays += len(d.Plays)
	}
	return plays, nil
}

// Query is one prediction request. Recent is oldest-first and may be any
// length; only the last MaxDepth symbols are used.
type Query struct {
	Situation model.Situation
	Recent    []model.PlayType
	Aux       model.Aux
}

// Prediction is the answer to a Query. An empty Dist means no opinion.
type Prediction struct {
	Dist  model.Distribution
	Depth int
	Level Level
	Key   situation.Key
	// Outcome is read from the matched context node; the league prior has none.
	Outcome Outcome
}

// Outcome is the mean per-play outcome value (EPA) recorded where the recent
// context matched. Samples is 0 when no outcome was recorded there.
type Outcome struct {
	Mean    float64
	Samples int
}

// Predict answers q through the fallback ladder. With fallback disabled only
// the specific key is consulted and a missing key yields an empty Dist.
func (p *Predictor) Predict(q Query) (Prediction, error) {
	if err := q.Situation.Validate(); err != nil {
		return Prediction{}, err
	}
	key := situation.KeyFor(p.cfg.Features, q.Situation, q.Aux)

	if !p.cfg.Fallback {
		t, ok := p.tries[key]
		if !ok {
			return Prediction{Key: key}, nil
		}
		a := p.query(t, q.Recent)
		pred := Prediction{Dist: a.dist, Depth: a.depth, Key: key, Outcome: a.outcome}
		if len(a.dist) > 0 {
			pred.Level = LevelSpecific
			p.usage[LevelSpecific].Add(1)
		}
		return pred, nil
	}

	if a, ok := p.reliable(key, q.Recent); ok {
		p.usage[LevelSpecific].Add(1)
		return Prediction{Dist: a.dist, Depth: a.depth, Level: LevelSpecific, Key: key, Outcome: a.outcome}, nil
	}
	if base := key.Canonical(); base != key {
		if a, ok := p.reliable(base, q.Recent); ok {
			p.usage[LevelBase].Add(1)
			return Prediction{Dist: a.dist, Depth: a.depth, Level: LevelBase, Key: base, Outcome: a.outcome}, nil
		}
	}
	p.usage[LevelLeague].Add(1)
	return Prediction{Dist: p.cfg.Prior.Clone(), Level: LevelLeague, Key: key}, nil
}

// answer is what one trie says about a recent context.
type answer struct {
	dist    model.Distribution
	depth   int
	outcome Outcome
}

// reliable queries key's trie if it exists and has at least MinExamples
// insertions. ok is false when the gate fails or the answer is empty.
func (p *Predictor) reliable(key situation.Key, recent []model.PlayType) (answer, bool) {
	t, exists := p.tries[key]
	if !exists || p.counts[key] < p.cfg.MinExamples {
		return answer{}, false
	}
	a := p.query(t, recent)
	if len(a.dist) == 0 {
		return answer{}, false
	}
	return a, true
}

func (p *Predictor) query(t *trie.Trie, recent []model.PlayType) answer {
	cands, depth := t.Predict(recent, p.cfg.TopK)
	a := answer{dist: aggregate(cands), depth: depth}
	if node := t.Lookup(t.Window(recent)[:depth]); node != nil && node.OutcomeCount > 0 {
		a.outcome = Outcome{Mean: node.AvgOutcome(), Samples: node.OutcomeCount}
	}
	return a
}

// aggregate collapses candidates to one probability per play type, normalised
// over the returned counts.
func aggregate(cands []trie.Candidate) model.Distribution {
	counts := make(map[model.PlayType]int, len(cands))
	total := 0
	for _, c := range cands {
		counts[c.Symbol] += c.Count
		total += c.Count
	}
	if total == 0 {
		return nil
	}
	dist := make(model.Distribution, len(counts))
	for pt, c := range counts {
		dist[pt] = float64(c) / float64(total)
	}
	return dist
}

// Usage returns how many predictions each fallback level has answered.
func (p *Predictor) Usage() map[Level]int64 {
	out := make(map[Level]int64, len(Levels))
	for _, l := range Levels {
		out[l] = p.usage[l].Load()
	}
	return out
}

// ResetUsage zeroes the fallback counters.
func (p *Predictor) ResetUsage() {
	for i := range p.usage {
		p.usage[i].Store(0)
	}
}
