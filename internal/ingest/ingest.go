// Package ingest reads play-by-play CSV exports (nflverse column names) into
// model.Play rows.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/pable/go-playcall/internal/model"
)

// Options controls which rows are kept.
type Options struct {
	// KeepOther keeps punts, kneels and other non pass/run rows as OTHER.
	KeepOther bool
}

// Summary counts what happened to the rows of one file.
type Summary struct {
	Rows          int
	Kept          int
	SkippedType   int // not pass/run and KeepOther unset
	SkippedState  int // down, distance or field position missing
	SkippedNoGame int // no game id or drive
}

var aliases = map[string]string{
	"fixed_drive":           "drive",
	"yards_to_go":           "ydstogo",
	"togo":                  "ydstogo",
	"yardline":              "yardline_100",
	"score_diff":            "score_differential",
	"seconds_remaining":     "game_seconds_remaining",
	"location":              "posteam_type",
	"home_away":             "posteam_type",
	"rolling_pass_rate":     "team_pass_rate",
	"expected_points_added": "epa",
}

var required = []string{"game_id", "drive", "play_type", "down", "ydstogo", "yardline_100"}

// ReadFile opens path, transparently decompressing .gz and .zst files, and
// reads it with Read.
func ReadFile(path string, opt Options) ([]model.Play, Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Summary{}, err
	}
	defer f.Close()

	var src io.Reader = f
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, Summary{}, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, Summary{}, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	}
	return Read(src, opt)
}

// Read parses a CSV stream with a header row. Rows without a usable game,
// drive, down, distance or field position are counted and skipped; malformed
// CSV is an error.
func Read(r io.Reader, opt Options) ([]model.Play, Summary, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Summary{}, fmt.Errorf("empty input")
		}
		return nil, Summary{}, fmt.Errorf("read header: %w", err)
	}
	cols := mapColumns(header)
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return nil, Summary{}, fmt.Errorf("missing required column %q", c)
		}
	}

	var (
		plays []model.Play
		sum   Summary
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, sum, fmt.Errorf("read row %d: %w", sum.Rows+1, err)
		}
		sum.Rows++
		row := record{cols: cols, rec: rec}

		pt := model.ParsePlayType(row.str("play_type"))
		if pt == model.PlayOther && !opt.KeepOther {
			sum.SkippedType++
			continue
		}
		gameID := row.str("game_id")
		drive, okDrive := row.integer("drive")
		if gameID == "" || !okDrive {
			sum.SkippedNoGame++
			continue
		}
		down, ok1 := row.integer("down")
		togo, ok2 := row.integer("ydstogo")
		yl, ok3 := row.integer("yardline_100")
		if !ok1 || !ok2 || !ok3 {
			sum.SkippedState++
			continue
		}
		playID, _ := row.integer("play_id")
		season, ok := row.integer("season")
		if !ok {
			season = seasonFromGameID(gameID)
		}

		p := model.Play{
			GameID:           gameID,
			Drive:            drive,
			PlayID:           playID,
			Season:           season,
			PosTeam:          row.str("posteam"),
			DefTeam:          row.str("defteam"),
			Type:             pt,
			Down:             down,
			ToGo:             togo,
			YardLine:         yl,
			ScoreDiff:        row.number("score_differential"),
			TeamPassRate:     row.number("team_pass_rate"),
			SecondsRemaining: row.number("game_seconds_remaining"),
			PosTeamType:      strings.ToLower(row.str("posteam_type")),
			EPA:              row.number("epa"),
		}
		if p.PlayID == 0 {
			p.PlayID = sum.Rows
		}
		plays = append(plays, p)
		sum.Kept++
	}
	return plays, sum, nil
}

type columns map[string]int

func mapColumns(header []string) columns {
	m := make(columns, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if a, ok := aliases[name]; ok {
			name = a
		}
		if _, dup := m[name]; !dup {
			m[name] = i
		}
	}
	return m
}

type record struct {
	cols columns
	rec  []string
}

func (r record) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.rec) {
		return ""
	}
	v := strings.TrimSpace(r.rec[i])
	if v == "NA" || v == "NaN" {
		return ""
	}
	return v
}

// integer accepts "3" and "3.0".
func (r record) integer(name string) (int, bool) {
	s := r.str(name)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func (r record) number(name string) *float64 {
	s := r.str(name)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// seasonFromGameID reads the leading year of ids like "2023_01_DET_KC".
func seasonFromGameID(id string) int {
	if len(id) < 4 {
		return 0
	}
	n, err := strconv.Atoi(id[:4])
	if err != nil {
		return 0
	}
	return n
}
