package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pable/go-playcall/internal/dataset"
	"github.com/pable/go-playcall/internal/model"
)

// InsertPlays bulk-inserts plays in a transaction. Uses INSERT OR REPLACE so
// re-ingesting a file is idempotent.
func (db *DB) InsertPlays(plays []model.Play) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO plays(
			game_id, play_id, season, drive, posteam, defteam, play_type,
			down, ydstogo, yardline_100,
			score_differential, team_pass_rate, game_seconds_remaining, posteam_type, epa
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range plays {
		_, err = stmt.Exec(
			p.GameID, p.PlayID, p.Season, p.Drive, p.PosTeam, p.DefTeam, string(p.Type),
			p.Down, p.ToGo, p.YardLine,
			nullFloat(p.ScoreDiff), nullFloat(p.TeamPassRate), nullFloat(p.SecondsRemaining),
			p.PosTeamType, nullFloat(p.EPA),
		)
		if err != nil {
			return fmt.Errorf("insert play %s/%d: %w", p.GameID, p.PlayID, err)
		}
	}
	return tx.Commit()
}

// PlayCount returns the number of stored plays.
func (db *DB) PlayCount() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM plays").Scan(&n)
	return n, err
}

// Overview is a whole-database summary.
type Overview struct {
	Games       int
	Drives      int
	Plays       int
	Passes      int
	Runs        int
	Teams       int
	FirstSeason int
	LastSeason  int
}

// Overview returns whole-database totals. An empty database gives zeros.
func (db *DB) Overview() (Overview, error) {
	var o Overview
	err := db.conn.QueryRow(`
		SELECT COUNT(DISTINCT game_id),
		       COUNT(DISTINCT game_id || '/' || drive),
		       COUNT(1),
		       COALESCE(SUM(CASE WHEN play_type = 'P' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN play_type = 'R' THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT NULLIF(posteam, '')),
		       COALESCE(MIN(season), 0),
		       COALESCE(MAX(season), 0)
		FROM plays`).Scan(&o.Games, &o.Drives, &o.Plays, &o.Passes, &o.Runs, &o.Teams, &o.FirstSeason, &o.LastSeason)
	return o, err
}

// GameSummary is one row of the game listing.
type GameSummary struct {
	GameID string
	Season int
	Teams  string // "AWAY@HOME" when known, else the offenses seen
	Drives int
	Plays  int
	Passes int
	Runs   int
}

// ListGames returns per-game totals ordered by season and game id. A season of
// 0 lists every season.
func (db *DB) ListGames(season int) ([]GameSummary, error) {
	rows, err := db.conn.Query(`
		SELECT game_id, MAX(season),
		       COALESCE(MAX(CASE WHEN posteam_type = 'away' THEN posteam END), '') AS away,
		       COALESCE(MAX(CASE WHEN posteam_type = 'home' THEN posteam END), '') AS home,
		       COALESCE(GROUP_CONCAT(DISTINCT posteam), '') AS offenses,
		       COUNT(DISTINCT drive),
		       COUNT(1),
		       SUM(CASE WHEN play_type = 'P' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN play_type = 'R' THEN 1 ELSE 0 END)
		FROM plays
		WHERE ? = 0 OR season = ?
		GROUP BY game_id
		ORDER BY MAX(season), game_id`, season, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		var away, home, offenses string
		if err := rows.Scan(&g.GameID, &g.Season, &away, &home, &offenses, &g.Drives, &g.Plays, &g.Passes, &g.Runs); err != nil {
			return nil, err
		}
		if away != "" && home != "" {
			g.Teams = away + "@" + home
		} else {
			g.Teams = offenses
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// FindGame returns the first stored game id starting with prefix, or "" when
// none does. The match is literal and case-sensitive; game ids contain '_',
// which LIKE would treat as a wildcard.
func (db *DB) FindGame(prefix string) (string, error) {
	var id string
	err := db.conn.QueryRow(
		"SELECT game_id FROM plays WHERE substr(game_id, 1, length(?)) = ? ORDER BY game_id LIMIT 1",
		prefix, prefix,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// GameIDs returns distinct game ids, optionally restricted to seasons.
func (db *DB) GameIDs(seasons ...int) ([]string, error) {
	query := "SELECT DISTINCT game_id FROM plays"
	args := make([]interface{}, 0, len(seasons))
	if len(seasons) > 0 {
		query += fmt.Sprintf(" WHERE season IN (%s)", placeholders(len(seasons)))
		for _, s := range seasons {
			args = append(args, s)
		}
	}
	query += " ORDER BY game_id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LoadPlays returns plays ordered by game, drive and play id. A nil gameIDs
// loads every play; an empty non-nil slice loads none.
func (db *DB) LoadPlays(gameIDs []string) ([]model.Play, error) {
	if gameIDs != nil && len(gameIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT game_id, play_id, season, drive, posteam, defteam, play_type,
		       down, ydstogo, yardline_100,
		       score_differential, team_pass_rate, game_seconds_remaining, posteam_type, epa
		FROM plays`
	args := make([]interface{}, 0, len(gameIDs))
	if gameIDs != nil {
		query += fmt.Sprintf(" WHERE game_id IN (%s)", placeholders(len(gameIDs)))
		for _, id := range gameIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY game_id, drive, play_id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Play
	for rows.Next() {
		var p model.Play
		var pt string
		var score, rate, secs, epa sql.NullFloat64
		if err := rows.Scan(
			&p.GameID, &p.PlayID, &p.Season, &p.Drive, &p.PosTeam, &p.DefTeam, &pt,
			&p.Down, &p.ToGo, &p.YardLine,
			&score, &rate, &secs, &p.PosTeamType, &epa,
		); err != nil {
			return nil, err
		}
		p.Type = model.ParsePlayType(pt)
		p.ScoreDiff = floatPtr(score)
		p.TeamPassRate = floatPtr(rate)
		p.SecondsRemaining = floatPtr(secs)
		p.EPA = floatPtr(epa)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadDrives loads plays for gameIDs (nil for all) and groups them into drives.
func (db *DB) LoadDrives(gameIDs []string) ([]model.Drive, error) {
	plays, err := db.LoadPlays(gameIDs)
	if err != nil {
		return nil, err
	}
	return dataset.GroupDrives(plays), nil
}

// DeleteGames removes every play of the given games and returns the number of
// rows deleted.
func (db *DB) DeleteGames(gameIDs []string) (int64, error) {
	if len(gameIDs) == 0 {
		return 0, nil
	}
	args := make([]interface{}, len(gameIDs))
	for i, id := range gameIDs {
		args[i] = id
	}
	res, err := db.conn.Exec(fmt.Sprintf("DELETE FROM plays WHERE game_id IN (%s)", placeholders(len(gameIDs))), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// QueryRaw runs an arbitrary query and returns the column names and every row
// rendered as strings. NULL becomes "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			case float64:
				row[i] = fmt.Sprintf("%.4g", x)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
