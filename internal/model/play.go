package model

import (
	"math"
	"strings"
)

// PlayType is the symbol stored along trie paths: the offensive call only,
// never the down/distance state that resulted from it.
type PlayType string

const (
	PlayPass  PlayType = "P"
	PlayRun   PlayType = "R"
	PlayOther PlayType = "OTHER"
)

// ParsePlayType maps a raw play_type column value to a PlayType.
// Anything that is not a pass or a run (punts, kneels, penalties) is OTHER.
func ParsePlayType(s string) PlayType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "p":
		return PlayPass
	case "run", "r":
		return PlayRun
	default:
		return PlayOther
	}
}

// Name returns the display name (PASS, RUN, OTHER).
func (p PlayType) Name() string {
	switch p {
	case PlayPass:
		return "PASS"
	case PlayRun:
		return "RUN"
	default:
		return "OTHER"
	}
}

// Rank orders play types for deterministic tie-breaking: P, R, OTHER.
func (p PlayType) Rank() int {
	switch p {
	case PlayPass:
		return 0
	case PlayRun:
		return 1
	default:
		return 2
	}
}

// ---- Training input contract ----

// Play is one row of cleaned play-by-play data.
type Play struct {
	GameID   string
	Drive    int
	PlayID   int
	Season   int
	PosTeam  string
	DefTeam  string
	Type     PlayType
	Down     int
	ToGo     int
	YardLine int // yards from the opponent goal line, 0-100

	ScoreDiff        *float64 // posteam score minus defteam score
	TeamPassRate     *float64 // rolling posteam pass rate, 0-1
	SecondsRemaining *float64 // game seconds remaining
	PosTeamType      string   // "home", "away" or "" when unknown
	EPA              *float64
}

// Situation returns the down/distance/field-position triple of the play.
func (p Play) Situation() Situation {
	return Situation{Down: p.Down, ToGo: p.ToGo, YardLine: p.YardLine}
}

// Aux returns the auxiliary context values known before the snap.
func (p Play) Aux() Aux {
	a := Aux{
		ScoreDiff:        p.ScoreDiff,
		TeamPassRate:     p.TeamPassRate,
		SecondsRemaining: p.SecondsRemaining,
	}
	if p.PosTeamType != "" {
		loc := p.PosTeamType
		a.Location = &loc
	}
	return a
}

// Drive is an ordered run of plays by one offense sharing a drive number.
type Drive struct {
	GameID string
	Number int
	Plays  []Play
}

// Symbols returns the play types of the drive in order.
func (d Drive) Symbols() []PlayType {
	out := make([]PlayType, len(d.Plays))
	for i, p := range d.Plays {
		out[i] = p.Type
	}
	return out
}

// Situations returns the per-play situations in order.
func (d Drive) Situations() []Situation {
	out := make([]Situation, len(d.Plays))
	for i, p := range d.Plays {
		out[i] = p.Situation()
	}
	return out
}

// Outcomes returns per-play EPA with NaN where the value is missing,
// or nil when no play in the drive carries one.
func (d Drive) Outcomes() []float64 {
	var out []float64
	for i, p := range d.Plays {
		if p.EPA == nil {
			continue
		}
		if out == nil {
			out = make([]float64, len(d.Plays))
			for j := range out {
				out[j] = math.NaN()
			}
		}
		out[i] = *p.EPA
	}
	return out
}

// AuxValues returns the per-play auxiliary context in order.
func (d Drive) AuxValues() []Aux {
	out := make([]Aux, len(d.Plays))
	for i, p := range d.Plays {
		out[i] = p.Aux()
	}
	return out
}
