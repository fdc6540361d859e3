package predictor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/situation"
)

func trainedForArtifact(t *testing.T) *Predictor {
	t.Helper()
	p := newPredictor(t, func(c *Config) {
		c.Features = situation.ScoreTeamFeatures
		c.MinExamples = 2
	})
	seqs := [][]model.PlayType{{P, R, P, P}, {R, R, P, R}, {P, P, R, model.PlayOther}, {R, P, R, P}}
	for i, s := range seqs {
		diff := float64(i*5 - 8)
		rate := 0.4 + 0.1*float64(i)
		aux := []model.Aux{
			{ScoreDiff: f64(diff), TeamPassRate: f64(rate)},
			{ScoreDiff: f64(diff), TeamPassRate: f64(rate)},
			{ScoreDiff: f64(diff)},
			{ScoreDiff: f64(diff), TeamPassRate: f64(rate)},
		}
		require.NoError(t, p.InsertDrive(DriveInput{
			Symbols:    s,
			Situations: sits([3]int{1, 10, 75}, [3]int{2, 4, 69}, [3]int{3, 1, 66}, [3]int{1, 10, 15}),
			Outcomes:   []float64{0.1 * float64(i), -0.3, 1.25, 0.7},
			Aux:        aux,
		}))
	}
	return p
}

func battery() []Query {
	var qs []Query
	for _, sit := range sits([3]int{1, 10, 75}, [3]int{2, 4, 69}, [3]int{3, 1, 66}, [3]int{1, 10, 15}, [3]int{4, 2, 40}) {
		for _, recent := range [][]model.PlayType{nil, {P}, {R}, {P, R}, {R, R, P}, {P, P, R, R, P, R}} {
			qs = append(qs,
				Query{Situation: sit, Recent: recent},
				Query{Situation: sit, Recent: recent, Aux: model.Aux{ScoreDiff: f64(-8), TeamPassRate: f64(0.4)}},
				Query{Situation: sit, Recent: recent, Aux: model.Aux{ScoreDiff: f64(7), TeamPassRate: f64(0.7)}},
			)
		}
	}
	return qs
}

func TestSaveLoadFidelity(t *testing.T) {
	orig := trainedForArtifact(t)
	// Exercise the counters so they are part of the snapshot.
	for _, q := range battery()[:10] {
		_, err := orig.Predict(q)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "models", "model.zst")
	require.NoError(t, orig.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, orig.Config(), loaded.Config())
	require.Equal(t, orig.Stats(), loaded.Stats())

	for _, q := range battery() {
		want, err := orig.Predict(q)
		require.NoError(t, err)
		got, err := loaded.Predict(q)
		require.NoError(t, err)
		require.Equal(t, want, got, "query %+v", q)
	}
	require.Equal(t, orig.Usage(), loaded.Usage())

	for _, k := range orig.Keys() {
		require.Equal(t, orig.tries[k], loaded.tries[k], "trie %s", k)
	}

	// No temp files are left next to the artifact.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.zst")
	first := newPredictor(t, nil)
	require.NoError(t, first.Save(path))

	second := trainedForArtifact(t)
	require.NoError(t, second.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, second.TotalInsertions(), loaded.TotalInsertions())
}

func TestLoadLoadedPredictorCanKeepTraining(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.zst")
	require.NoError(t, trainedForArtifact(t).Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, loaded.InsertDrive(DriveInput{
		Symbols:    []model.PlayType{R, R, R, R, R},
		Situations: sits([3]int{1, 10, 50}, [3]int{1, 10, 50}, [3]int{1, 10, 50}, [3]int{1, 10, 50}, [3]int{1, 10, 50}),
	}))
}

func writeRaw(t *testing.T, path string, body []byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = enc.Write(body)
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.zst")
	require.NoError(t, trainedForArtifact(t).Save(good))
	raw, err := os.ReadFile(good)
	require.NoError(t, err)

	truncated := filepath.Join(dir, "truncated.zst")
	require.NoError(t, os.WriteFile(truncated, raw[:len(raw)/2], 0o644))

	garbage := filepath.Join(dir, "garbage.zst")
	require.NoError(t, os.WriteFile(garbage, []byte("not a model at all"), 0o644))

	foreign := filepath.Join(dir, "foreign.zst")
	writeRaw(t, foreign, []byte(`{"format":"something-else","version":1}`))

	future := filepath.Join(dir, "future.zst")
	writeRaw(t, future, []byte(`{"format":"playcall-model","version":99}`))

	badTotal := filepath.Join(dir, "total.zst")
	writeRaw(t, badTotal, []byte(`{"format":"playcall-model","version":1,
		"config":{"max_depth":3,"features":"none","fallback":false,"min_examples":1,"top_k":10},
		"total_insertions":5,
		"buckets":[{"key":"third_short","insertions":1,"trie":{"max_depth":3,"root":{"visits":0},"sequences":1}}]}`))

	noTrie := filepath.Join(dir, "notrie.zst")
	writeRaw(t, noTrie, []byte(`{"format":"playcall-model","version":1,
		"config":{"max_depth":3,"features":"none","fallback":false,"min_examples":1,"top_k":10},
		"total_insertions":1,
		"buckets":[{"key":"third_short","insertions":1}]}`))

	badKey := filepath.Join(dir, "badkey.zst")
	writeRaw(t, badKey, []byte(`{"format":"playcall-model","version":1,
		"config":{"max_depth":3,"features":"none","fallback":false,"min_examples":1,"top_k":10},
		"total_insertions":1,
		"buckets":[{"key":"nowhere|x","insertions":1,"trie":{"max_depth":3,"root":{}}}]}`))

	for _, path := range []string{
		filepath.Join(dir, "missing.zst"),
		truncated, garbage, foreign, future, badTotal, noTrie, badKey,
	} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			p, err := Load(path)
			require.Nil(t, p)
			var se *SerializationError
			require.ErrorAs(t, err, &se)
			require.Equal(t, "load", se.Op)
			require.Equal(t, path, se.Path)
		})
	}
}

func TestSaveFailure(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the parent directory should be.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := newPredictor(t, nil).Save(filepath.Join(blocker, "model.zst"))
	var se *SerializationError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "save", se.Op)
}
