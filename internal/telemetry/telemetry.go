// Package telemetry holds the Prometheus metrics written after a batch run.
// Nothing here serves HTTP; the registry is dumped in text exposition format
// for a node-exporter textfile collector.
package telemetry

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pable/go-playcall/internal/evaluate"
	"github.com/pable/go-playcall/internal/predictor"
)

// Registry is a private registry plus the playcall collectors.
type Registry struct {
	reg *prometheus.Registry

	Predictions      *prometheus.CounterVec
	BucketInsertions *prometheus.GaugeVec
	TotalInsertions  prometheus.Gauge

	EvalAccuracy  prometheus.Gauge
	EvalPlays     prometheus.Gauge
	EvalPrecision *prometheus.GaugeVec
	EvalRecall    *prometheus.GaugeVec
}

// New returns a Registry with every collector registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcall_predictions_total",
				Help: "Predictions answered, by fallback level",
			},
			[]string{"level"},
		),
		BucketInsertions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "playcall_bucket_insertions",
				Help: "Training insertions per situation key",
			},
			[]string{"bucket"},
		),
		TotalInsertions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playcall_insertions_total",
				Help: "Training insertions across all situation keys",
			},
		),
		EvalAccuracy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playcall_eval_accuracy",
				Help: "Accuracy of the last evaluation (0.0 to 1.0)",
			},
		),
		EvalPlays: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playcall_eval_plays",
				Help: "Plays scored by the last evaluation",
			},
		),
		EvalPrecision: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "playcall_eval_precision",
				Help: "Precision of the last evaluation, by class",
			},
			[]string{"class"},
		),
		EvalRecall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "playcall_eval_recall",
				Help: "Recall of the last evaluation, by class",
			},
			[]string{"class"},
		),
	}
	r.reg.MustRegister(
		r.Predictions,
		r.BucketInsertions,
		r.TotalInsertions,
		r.EvalAccuracy,
		r.EvalPlays,
		r.EvalPrecision,
		r.EvalRecall,
	)
	return r
}

// RecordModel sets the per-key insertion gauges from s.
func (r *Registry) RecordModel(s predictor.Stats) {
	r.TotalInsertions.Set(float64(s.TotalInsertions))
	for _, b := range s.Buckets {
		r.BucketInsertions.WithLabelValues(b.Key.String()).Set(float64(b.Insertions))
	}
}

// RecordUsage adds fallback level counts to the predictions counter.
func (r *Registry) RecordUsage(usage map[predictor.Level]int64) {
	for _, l := range predictor.Levels {
		r.Predictions.WithLabelValues(l.String()).Add(float64(usage[l]))
	}
}

// RecordResult sets the evaluation gauges from res.
func (r *Registry) RecordResult(res *evaluate.Result) {
	m := res.Overall
	r.EvalAccuracy.Set(m.Accuracy())
	r.EvalPlays.Set(float64(m.Total))
	for _, pt := range evaluate.Classes {
		class := strings.ToLower(pt.Name())
		r.EvalPrecision.WithLabelValues(class).Set(m.Precision(pt))
		r.EvalRecall.WithLabelValues(class).Set(m.Recall(pt))
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes every metric to path in text exposition format. The
// file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
