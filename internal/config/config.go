// Package config loads the optional YAML configuration file. Every field has a
// default, so a missing file or a partial file is fine.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pable/go-playcall/internal/aggregator"
	"github.com/pable/go-playcall/internal/evaluate"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/situation"
)

// Config is the whole configuration file.
type Config struct {
	Database     string         `yaml:"database"`
	Model        ModelSection   `yaml:"model"`
	Evaluation   EvalSection    `yaml:"evaluation"`
	TeamIdentity TeamSection    `yaml:"team_identity"`
	Metrics      MetricsSection `yaml:"metrics"`
	Analyze      AnalyzeSection `yaml:"analyze"`
	Source       SourceSection  `yaml:"source"`
}

// ModelSection configures training and prediction.
type ModelSection struct {
	Path        string             `yaml:"path"`
	MaxDepth    int                `yaml:"max_depth"`
	Features    []string           `yaml:"features"`
	Fallback    bool               `yaml:"fallback"`
	MinExamples int                `yaml:"min_examples"`
	TopK        int                `yaml:"top_k"`
	Prior       map[string]float64 `yaml:"prior"` // keys: pass, run, other
}

// EvalSection configures the held-out evaluation.
type EvalSection struct {
	MinContext   int     `yaml:"min_context"`
	TestFraction float64 `yaml:"test_fraction"`
	Seed         uint64  `yaml:"seed"`
}

// TeamSection configures the rolling team pass rate.
type TeamSection struct {
	WindowGames    int     `yaml:"window_games"`
	DefaultRate    float64 `yaml:"default_rate"`
	ExcludeCurrent bool    `yaml:"exclude_current_game"`
}

// MetricsSection configures the Prometheus textfile output.
type MetricsSection struct {
	Textfile string `yaml:"textfile"`
}

// AnalyzeSection configures the analyze command.
type AnalyzeSection struct {
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// SourceSection configures the fetch command. URLTemplate takes the season
// as its only %d verb; empty means the public nflverse releases.
type SourceSection struct {
	URLTemplate string `yaml:"url_template"`
}

// Default returns the built-in configuration.
func Default() Config {
	pc := predictor.DefaultConfig()
	rate := aggregator.DefaultRateOptions()
	return Config{
		Model: ModelSection{
			MaxDepth:    pc.MaxDepth,
			Fallback:    pc.Fallback,
			MinExamples: pc.MinExamples,
			TopK:        pc.TopK,
			Prior:       map[string]float64{"pass": pc.Prior[model.PlayPass], "run": pc.Prior[model.PlayRun]},
		},
		Evaluation: EvalSection{
			MinContext:   evaluate.DefaultConfig().MinContext,
			TestFraction: 0.2,
			Seed:         42,
		},
		TeamIdentity: TeamSection{
			WindowGames: rate.Window,
			DefaultRate: rate.Default,
		},
		Analyze: AnalyzeSection{
			Model:     "claude-haiku-4-5-20251001",
			MaxTokens: 1024,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected. PLAYCALL_DB and PLAYCALL_MODEL override the
// database and model paths.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// A user-supplied prior replaces the default one instead of merging into it.
	var probe struct {
		Model struct {
			Prior map[string]float64 `yaml:"prior"`
		} `yaml:"model"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe.Model.Prior != nil {
		cfg.Model.Prior = nil
	}
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLAYCALL_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("PLAYCALL_MODEL"); v != "" {
		cfg.Model.Path = v
	}
}

// PredictorConfig converts the model section.
func (c Config) PredictorConfig() (predictor.Config, error) {
	fs, err := situation.ParseFeatureSet(c.Model.Features)
	if err != nil {
		return predictor.Config{}, err
	}
	prior := make(model.Distribution, len(c.Model.Prior))
	for name, p := range c.Model.Prior {
		pt, err := priorKey(name)
		if err != nil {
			return predictor.Config{}, err
		}
		prior[pt] = p
	}
	pc := predictor.Config{
		MaxDepth:    c.Model.MaxDepth,
		Features:    fs,
		Fallback:    c.Model.Fallback,
		MinExamples: c.Model.MinExamples,
		Prior:       prior,
		TopK:        c.Model.TopK,
	}
	if err := pc.Validate(); err != nil {
		return predictor.Config{}, err
	}
	return pc, nil
}

func priorKey(name string) (model.PlayType, error) {
	switch strings.ToLower(name) {
	case "pass", "p":
		return model.PlayPass, nil
	case "run", "r":
		return model.PlayRun, nil
	case "other":
		return model.PlayOther, nil
	}
	return "", &model.ValidationError{Field: "prior", Msg: fmt.Sprintf("unknown play type %q", name)}
}

// EvalConfig converts the evaluation section.
func (c Config) EvalConfig() evaluate.Config {
	return evaluate.Config{MinContext: c.Evaluation.MinContext}
}

// RateOptions converts the team identity section.
func (c Config) RateOptions() aggregator.RateOptions {
	return aggregator.RateOptions{
		Window:         c.TeamIdentity.WindowGames,
		Default:        c.TeamIdentity.DefaultRate,
		ExcludeCurrent: c.TeamIdentity.ExcludeCurrent,
	}
}
