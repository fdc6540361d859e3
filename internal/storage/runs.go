package storage

import (
	"database/sql"
	"time"
)

// EvalRun is one stored evaluation. ResultJSON holds the full result,
// including the per-situation breakdown, for later analysis.
type EvalRun struct {
	ID          string
	CreatedAt   time.Time
	ModelPath   string
	Features    string
	MaxDepth    int
	Fallback    bool
	MinExamples int
	MinContext  int
	TrainGames  int
	TestGames   int

	Total         int
	Correct       int
	Accuracy      float64
	PassPrecision float64
	PassRecall    float64
	RunPrecision  float64
	RunRecall     float64

	ResultJSON string
}

// InsertEvalRun stores r. Uses INSERT OR REPLACE keyed on the run id.
func (db *DB) InsertEvalRun(r EvalRun) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO eval_runs(
			id, created_at, model_path, features, max_depth, fallback, min_examples, min_context,
			train_games, test_games, total, correct, accuracy,
			pass_precision, pass_recall, run_precision, run_recall, result_json
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.ModelPath, r.Features,
		r.MaxDepth, boolInt(r.Fallback), r.MinExamples, r.MinContext,
		r.TrainGames, r.TestGames, r.Total, r.Correct, r.Accuracy,
		r.PassPrecision, r.PassRecall, r.RunPrecision, r.RunRecall, r.ResultJSON,
	)
	return err
}

const evalRunColumns = `
	id, created_at, model_path, features, max_depth, fallback, min_examples, min_context,
	train_games, test_games, total, correct, accuracy,
	pass_precision, pass_recall, run_precision, run_recall, result_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvalRun(s scanner) (EvalRun, error) {
	var r EvalRun
	var created string
	var fallback int
	err := s.Scan(
		&r.ID, &created, &r.ModelPath, &r.Features, &r.MaxDepth, &fallback, &r.MinExamples, &r.MinContext,
		&r.TrainGames, &r.TestGames, &r.Total, &r.Correct, &r.Accuracy,
		&r.PassPrecision, &r.PassRecall, &r.RunPrecision, &r.RunRecall, &r.ResultJSON,
	)
	if err != nil {
		return r, err
	}
	r.Fallback = fallback != 0
	r.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return r, nil
}

// ListEvalRuns returns stored runs, newest first. limit <= 0 returns all.
func (db *DB) ListEvalRuns(limit int) ([]EvalRun, error) {
	query := "SELECT" + evalRunColumns + " FROM eval_runs ORDER BY created_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvalRun
	for rows.Next() {
		r, err := scanEvalRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetEvalRunByPrefix finds the newest run whose id starts with prefix, or
// nil when none does.
func (db *DB) GetEvalRunByPrefix(prefix string) (*EvalRun, error) {
	row := db.conn.QueryRow("SELECT"+evalRunColumns+" FROM eval_runs WHERE id LIKE ? ORDER BY created_at DESC LIMIT 1", prefix+"%")
	r, err := scanEvalRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
