package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/pable/go-playcall/internal/situation"
	"github.com/pable/go-playcall/internal/trie"
)

const (
	artifactFormat  = "playcall-model"
	artifactVersion = 1
)

// SerializationError reports a failed Save or Load. A Load that returns one
// never yields a partially populated predictor.
type SerializationError struct {
	Op   string // "save" or "load"
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s model %s: %v", e.Op, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

type snapshot struct {
	Format          string           `json:"format"`
	Version         int              `json:"version"`
	Config          Config           `json:"config"`
	TotalInsertions int              `json:"total_insertions"`
	Buckets         []bucketSnapshot `json:"buckets"`
	Usage           map[string]int64 `json:"usage"`
}

type bucketSnapshot struct {
	Key        situation.Key `json:"key"`
	Insertions int           `json:"insertions"`
	Trie       *trie.Trie    `json:"trie"`
}

func (p *Predictor) snapshot() snapshot {
	s := snapshot{
		Format:          artifactFormat,
		Version:         artifactVersion,
		Config:          p.Config(),
		TotalInsertions: p.total,
		Usage:           make(map[string]int64, len(Levels)),
	}
	for _, k := range p.Keys() {
		s.Buckets = append(s.Buckets, bucketSnapshot{Key: k, Insertions: p.counts[k], Trie: p.tries[k]})
	}
	for l, n := range p.Usage() {
		s.Usage[l.String()] = n
	}
	return s
}

// Save writes the whole predictor to path as zstd-compressed JSON. The file
// is written to a temporary sibling and renamed into place, so readers see
// either the old artifact or the new one.
func (p *Predictor) Save(path string) error {
	if err := p.save(path); err != nil {
		return &SerializationError{Op: "save", Path: path, Err: err}
	}
	return nil
}

func (p *Predictor) save(path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".playcall-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc, err := zstd.NewWriter(tmp)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(p.snapshot()); err != nil {
		enc.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads an artifact written by Save. Corrupt, truncated or foreign
// files fail with a *SerializationError.
func Load(path string) (*Predictor, error) {
	p, err := load(path)
	if err != nil {
		return nil, &SerializationError{Op: "load", Path: path, Err: err}
	}
	return p, nil
}

func load(path string) (*Predictor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer dec.Close()

	var s snapshot
	if err := json.NewDecoder(dec).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if s.Format != artifactFormat {
		return nil, fmt.Errorf("unexpected format %q", s.Format)
	}
	if s.Version != artifactVersion {
		return nil, fmt.Errorf("unsupported version %d (want %d)", s.Version, artifactVersion)
	}
	return fromSnapshot(s)
}

func fromSnapshot(s snapshot) (*Predictor, error) {
	p, err := New(s.Config)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	sum := 0
	for _, b := range s.Buckets {
		if b.Trie == nil || b.Trie.Root == nil {
			return nil, fmt.Errorf("bucket %s: missing trie", b.Key)
		}
		if b.Trie.MaxDepth != s.Config.MaxDepth {
			return nil, fmt.Errorf("bucket %s: trie depth %d does not match config depth %d", b.Key, b.Trie.MaxDepth, s.Config.MaxDepth)
		}
		if b.Insertions < 0 {
			return nil, fmt.Errorf("bucket %s: negative insertion count", b.Key)
		}
		if _, dup := p.tries[b.Key]; dup {
			return nil, fmt.Errorf("bucket %s: duplicate key", b.Key)
		}
		p.tries[b.Key] = b.Trie
		p.counts[b.Key] = b.Insertions
		sum += b.Insertions
	}
	if sum != s.TotalInsertions {
		return nil, fmt.Errorf("insertion total %d does not match bucket sum %d", s.TotalInsertions, sum)
	}
	p.total = sum
	for name, n := range s.Usage {
		l, err := ParseLevel(name)
		if err != nil || l == LevelNone {
			return nil, fmt.Errorf("unknown usage counter %q", name)
		}
		p.usage[l].Store(n)
	}
	return p, nil
}
