// Package trie implements a prefix tree over play-type sequences. Every suffix
// of an inserted sequence is stored, so a prediction that cannot match the full
// recent context backs off to the longest suffix that was seen.
package trie

import (
	"math"
	"sort"

	"github.com/pable/go-playcall/internal/model"
)

// Node is one position in the tree. A parent exclusively owns its children.
type Node struct {
	Children     map[model.PlayType]*Node `json:"children"`
	Next         map[model.PlayType]int   `json:"next"`
	Visits       int                      `json:"visits"`
	OutcomeSum   float64                  `json:"outcome_sum,omitempty"`
	OutcomeCount int                      `json:"outcome_count,omitempty"`
}

func newNode() *Node {
	return &Node{
		Children: make(map[model.PlayType]*Node),
		Next:     make(map[model.PlayType]int),
	}
}

// child returns the child for sym, creating it on first use. Nodes decoded
// from a snapshot may carry nil maps.
func (n *Node) child(sym model.PlayType) *Node {
	if c, ok := n.Children[sym]; ok {
		return c
	}
	if n.Children == nil {
		n.Children = make(map[model.PlayType]*Node)
	}
	c := newNode()
	n.Children[sym] = c
	return c
}

// AvgOutcome returns the mean outcome value recorded at the node, or 0.
func (n *Node) AvgOutcome() float64 {
	if n.OutcomeCount == 0 {
		return 0
	}
	return n.OutcomeSum / float64(n.OutcomeCount)
}

// Trie stores every contiguous sub-sequence, up to MaxDepth long, of the
// sequences inserted into it.
type Trie struct {
	MaxDepth  int   `json:"max_depth"`
	Root      *Node `json:"root"`
	Sequences int   `json:"sequences"`
}

// New returns an empty trie. maxDepth below 1 is treated as 1.
func New(maxDepth int) *Trie {
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Trie{MaxDepth: maxDepth, Root: newNode()}
}

// Insert adds every suffix of symbols, each truncated to MaxDepth. outcomes is
// optional; when present it must be parallel to symbols, and NaN entries are
// skipped.
func (t *Trie) Insert(symbols []model.PlayType, outcomes []float64) {
	if len(symbols) == 0 {
		return
	}
	if len(outcomes) != len(symbols) {
		outcomes = nil
	}
	for s := range symbols {
		end := min(s+t.MaxDepth, len(symbols))
		node := t.Root
		for i := s; i < end; i++ {
			node = node.child(symbols[i])
			node.Visits++
			if outcomes != nil && !math.IsNaN(outcomes[i]) {
				node.OutcomeSum += outcomes[i]
				node.OutcomeCount++
			}
			if i+1 < len(symbols) {
				if node.Next == nil {
					node.Next = make(map[model.PlayType]int)
				}
				node.Next[symbols[i+1]]++
			}
		}
	}
	t.Sequences++
}

// Candidate is one possible next symbol.
type Candidate struct {
	Symbol model.PlayType
	Count  int
	Prob   float64
}

// Predict walks the last MaxDepth recent symbols from the root, stopping at
// the first unseen one, and returns the k most frequent continuations of the
// node reached together with the number of symbols matched. k <= 0 means no
// limit.
func (t *Trie) Predict(recent []model.PlayType, k int) ([]Candidate, int) {
	recent = t.Window(recent)
	node := t.Root
	depth := 0
	for _, sym := range recent {
		child, ok := node.Children[sym]
		if !ok {
			break
		}
		node = child
		depth++
	}
	if node.Visits == 0 || len(node.Next) == 0 {
		return nil, depth
	}

	out := make([]Candidate, 0, len(node.Next))
	for sym, c := range node.Next {
		out = append(out, Candidate{Symbol: sym, Count: c, Prob: float64(c) / float64(node.Visits)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Symbol.Rank() < out[j].Symbol.Rank()
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, depth
}

// Window returns the last MaxDepth symbols of recent, the part Predict walks.
func (t *Trie) Window(recent []model.PlayType) []model.PlayType {
	if len(recent) > t.MaxDepth {
		return recent[len(recent)-t.MaxDepth:]
	}
	return recent
}

// Lookup returns the node reached by following path exactly, or nil.
func (t *Trie) Lookup(path []model.PlayType) *Node {
	node := t.Root
	for _, sym := range path {
		child, ok := node.Children[sym]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// Shape summarises the structure of a trie.
type Shape struct {
	Sequences    int     `json:"sequences"`
	Nodes        int     `json:"nodes"`
	AvgBranching float64 `json:"avg_branching"`
}

// Stats counts nodes (root excluded) and the mean number of children over
// internal nodes.
func (t *Trie) Stats() Shape {
	var nodes, internal, edges int
	var walk func(n *Node)
	walk = func(n *Node) {
		if len(n.Children) > 0 {
			internal++
			edges += len(n.Children)
		}
		for _, c := range n.Children {
			nodes++
			walk(c)
		}
	}
	walk(t.Root)
	s := Shape{Sequences: t.Sequences, Nodes: nodes}
	if internal > 0 {
		s.AvgBranching = float64(edges) / float64(internal)
	}
	return s
}
