package predictor

import (
	"github.com/pable/go-playcall/internal/situation"
	"github.com/pable/go-playcall/internal/trie"
)

// BucketStats describes one trained key.
type BucketStats struct {
	Key        situation.Key
	Insertions int
	Reliable   bool
	Shape      trie.Shape
}

// Stats is a snapshot of the predictor's configuration and training state.
type Stats struct {
	Config          Config
	TotalInsertions int
	Buckets         []BucketStats
	ReliableBuckets int
	SparseBuckets   int
	Usage           map[Level]int64
}

// Stats returns configuration, per-key insertion counts and trie shapes, and
// the fallback counters. Buckets are in display order.
func (p *Predictor) Stats() Stats {
	keys := p.Keys()
	s := Stats{
		Config:          p.Config(),
		TotalInsertions: p.total,
		Buckets:         make([]BucketStats, 0, len(keys)),
		Usage:           p.Usage(),
	}
	for _, k := range keys {
		n := p.counts[k]
		b := BucketStats{
			Key:        k,
			Insertions: n,
			Reliable:   n >= p.cfg.MinExamples,
			Shape:      p.tries[k].Stats(),
		}
		if b.Reliable {
			s.ReliableBuckets++
		} else {
			s.SparseBuckets++
		}
		s.Buckets = append(s.Buckets, b)
	}
	return s
}

// Keys returns every trained key in display order.
func (p *Predictor) Keys() []situation.Key {
	keys := make([]situation.Key, 0, len(p.tries))
	for k := range p.tries {
		keys = append(keys, k)
	}
	situation.SortKeys(keys)
	return keys
}

// Insertions returns the insertion count for key.
func (p *Predictor) Insertions(key situation.Key) int {
	return p.counts[key]
}

// TotalInsertions returns the number of windows inserted across all keys,
// including the extra canonical copies made when fallback is enabled.
func (p *Predictor) TotalInsertions() int {
	return p.total
}
