package model

import (
	"fmt"
	"sort"
)

// Situation is the pre-snap down, distance and field position.
type Situation struct {
	Down     int
	ToGo     int
	YardLine int // yards from the opponent goal line
}

// Validate rejects downs outside 1-4.
func (s Situation) Validate() error {
	if s.Down < 1 || s.Down > 4 {
		return &ValidationError{Field: "down", Msg: fmt.Sprintf("must be 1-4, got %d", s.Down)}
	}
	return nil
}

func (s Situation) String() string {
	return fmt.Sprintf("%d&%d @%d", s.Down, s.ToGo, s.YardLine)
}

// Aux carries optional context for composite buckets. A nil field means the
// value is unknown for this play and the classifier falls back to the base bucket.
type Aux struct {
	ScoreDiff        *float64
	TeamPassRate     *float64
	SecondsRemaining *float64
	Location         *string
}

// Distribution maps play types to probabilities.
type Distribution map[PlayType]float64

// Sum returns the total probability mass.
func (d Distribution) Sum() float64 {
	var s float64
	for _, p := range d {
		s += p
	}
	return s
}

// ArgMax returns the most likely play type. Ties resolve P, then R, then OTHER.
// ok is false for an empty distribution.
func (d Distribution) ArgMax() (best PlayType, prob float64, ok bool) {
	for pt, p := range d {
		if !ok || p > prob || (p == prob && pt.Rank() < best.Rank()) {
			best, prob, ok = pt, p, true
		}
	}
	return best, prob, ok
}

// Clone returns a copy that can be mutated without touching d.
func (d Distribution) Clone() Distribution {
	if d == nil {
		return nil
	}
	out := make(Distribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Sorted returns the entries ordered by probability desc, then by rank.
func (d Distribution) Sorted() []PlayType {
	out := make([]PlayType, 0, len(d))
	for pt := range d {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool {
		if d[out[i]] != d[out[j]] {
			return d[out[i]] > d[out[j]]
		}
		return out[i].Rank() < out[j].Rank()
	})
	return out
}
