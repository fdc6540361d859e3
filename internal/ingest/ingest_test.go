package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/pable/go-playcall/internal/model"
)

const sample = `game_id,season,fixed_drive,play_id,posteam,defteam,play_type,down,ydstogo,yardline_100,score_differential,game_seconds_remaining,posteam_type,epa
2023_01_DET_KC,2023,1,40,DET,KC,pass,1,10,75,0,3600,away,0.42
2023_01_DET_KC,2023,1,61,DET,KC,run,2,6.0,71,0,3560,away,NA
2023_01_DET_KC,2023,1,83,DET,KC,punt,4,3,60,0,3500,away,-0.1
2023_01_DET_KC,2023,1,90,DET,KC,pass,NA,0,60,0,3490,away,0.1
2023_01_DET_KC,2023,NA,95,DET,KC,pass,1,10,60,0,3480,away,0.1
2023_01_DET_KC,2023,2,120,KC,DET,pass,3,2,3,-7,100,HOME,1.5
`

func TestReadFiltersAndParses(t *testing.T) {
	plays, sum, err := Read(strings.NewReader(sample), Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sum.Rows != 6 || sum.Kept != 3 || sum.SkippedType != 1 || sum.SkippedState != 1 || sum.SkippedNoGame != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(plays) != 3 {
		t.Fatalf("expected 3 plays, got %d", len(plays))
	}

	first := plays[0]
	if first.GameID != "2023_01_DET_KC" || first.Drive != 1 || first.PlayID != 40 || first.Season != 2023 {
		t.Errorf("unexpected identity fields %+v", first)
	}
	if first.Type != model.PlayPass || first.Down != 1 || first.ToGo != 10 || first.YardLine != 75 {
		t.Errorf("unexpected situation fields %+v", first)
	}
	if first.EPA == nil || *first.EPA != 0.42 {
		t.Errorf("EPA not parsed: %v", first.EPA)
	}

	second := plays[1]
	if second.ToGo != 6 {
		t.Errorf("6.0 should parse as 6, got %d", second.ToGo)
	}
	if second.EPA != nil {
		t.Errorf("NA EPA should be nil, got %v", *second.EPA)
	}

	last := plays[2]
	if last.PosTeamType != "home" {
		t.Errorf("posteam_type should be lower-cased, got %q", last.PosTeamType)
	}
	if last.ScoreDiff == nil || *last.ScoreDiff != -7 {
		t.Errorf("score differential not parsed: %v", last.ScoreDiff)
	}
	if last.SecondsRemaining == nil || *last.SecondsRemaining != 100 {
		t.Errorf("seconds remaining not parsed: %v", last.SecondsRemaining)
	}
	if last.TeamPassRate != nil {
		t.Error("team pass rate should be absent")
	}
}

func TestReadKeepOther(t *testing.T) {
	plays, sum, err := Read(strings.NewReader(sample), Options{KeepOther: true})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sum.Kept != 4 || sum.SkippedType != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if plays[2].Type != model.PlayOther {
		t.Errorf("punt should be OTHER, got %s", plays[2].Type)
	}
}

func TestReadMissingColumns(t *testing.T) {
	_, _, err := Read(strings.NewReader("game_id,drive,play_type,down\n"), Options{})
	if err == nil || !strings.Contains(err.Error(), "ydstogo") {
		t.Fatalf("expected missing column error, got %v", err)
	}
	if _, _, err := Read(strings.NewReader(""), Options{}); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadDerivesSeasonAndPlayID(t *testing.T) {
	in := "game_id,drive,play_type,down,ydstogo,yardline_100\n2022_05_BUF_PIT,3,run,1,10,80\n"
	plays, _, err := Read(strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if plays[0].Season != 2022 {
		t.Errorf("season = %d, want 2022", plays[0].Season)
	}
	if plays[0].PlayID != 1 {
		t.Errorf("play id = %d, want row number 1", plays[0].PlayID)
	}
}

func TestReadFileGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(sample)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "pbp.csv.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	plays, sum, err := ReadFile(path, Options{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(plays) != 3 || sum.Rows != 6 {
		t.Errorf("unexpected result: %d plays, %+v", len(plays), sum)
	}
}
