package evaluate

import "github.com/pable/go-playcall/internal/model"

// Classes are the play types reported per class.
var Classes = []model.PlayType{model.PlayPass, model.PlayRun}

// Metrics is a running confusion tally.
type Metrics struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`

	TP map[model.PlayType]int `json:"tp"`
	FP map[model.PlayType]int `json:"fp"`
	FN map[model.PlayType]int `json:"fn"`

	// Confidence sums the arg-max probability per predicted class.
	Confidence map[model.PlayType]float64 `json:"confidence"`
}

func NewMetrics() Metrics {
	return Metrics{
		TP:         make(map[model.PlayType]int),
		FP:         make(map[model.PlayType]int),
		FN:         make(map[model.PlayType]int),
		Confidence: make(map[model.PlayType]float64),
	}
}

// Add records one prediction.
func (m *Metrics) Add(actual, predicted model.PlayType, confidence float64) {
	m.Total++
	m.Confidence[predicted] += confidence
	if actual == predicted {
		m.Correct++
		m.TP[predicted]++
		return
	}
	m.FP[predicted]++
	m.FN[actual]++
}

// Merge adds o's counts into m.
func (m *Metrics) Merge(o Metrics) {
	m.Total += o.Total
	m.Correct += o.Correct
	for k, v := range o.TP {
		m.TP[k] += v
	}
	for k, v := range o.FP {
		m.FP[k] += v
	}
	for k, v := range o.FN {
		m.FN[k] += v
	}
	for k, v := range o.Confidence {
		m.Confidence[k] += v
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func (m Metrics) Accuracy() float64 {
	return ratio(float64(m.Correct), float64(m.Total))
}

// Precision is TP/(TP+FP) for pt, or 0 when pt was never predicted.
func (m Metrics) Precision(pt model.PlayType) float64 {
	return ratio(float64(m.TP[pt]), float64(m.TP[pt]+m.FP[pt]))
}

// Recall is TP/(TP+FN) for pt, or 0 when pt never occurred.
func (m Metrics) Recall(pt model.PlayType) float64 {
	return ratio(float64(m.TP[pt]), float64(m.TP[pt]+m.FN[pt]))
}

func (m Metrics) F1(pt model.PlayType) float64 {
	p, r := m.Precision(pt), m.Recall(pt)
	return ratio(2*p*r, p+r)
}

// Predicted returns how often pt was the arg-max.
func (m Metrics) Predicted(pt model.PlayType) int {
	return m.TP[pt] + m.FP[pt]
}

// Actual returns how often pt was the real call.
func (m Metrics) Actual(pt model.PlayType) int {
	return m.TP[pt] + m.FN[pt]
}

// AvgConfidence is the mean arg-max probability over plays where pt was predicted.
func (m Metrics) AvgConfidence(pt model.PlayType) float64 {
	return ratio(m.Confidence[pt], float64(m.Predicted(pt)))
}
