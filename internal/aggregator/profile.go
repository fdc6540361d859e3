package aggregator

import (
	"sort"

	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/situation"
)

// SituationMix is the play-call split of one canonical bucket.
type SituationMix struct {
	Bucket situation.Bucket
	Passes int
	Runs   int
	Other  int
}

// Plays returns every play in the bucket, OTHER included.
func (m SituationMix) Plays() int { return m.Passes + m.Runs + m.Other }

// PassRate returns passes over pass+run plays, or 0 when there are none.
func (m SituationMix) PassRate() float64 {
	if m.Passes+m.Runs == 0 {
		return 0
	}
	return float64(m.Passes) / float64(m.Passes+m.Runs)
}

// Mix tallies plays per canonical bucket. Buckets without plays are omitted;
// the rest come in display order.
func Mix(plays []model.Play) []SituationMix {
	by := make(map[situation.Bucket]*SituationMix)
	for _, p := range plays {
		b := situation.ClassifySituation(p.Situation())
		m, ok := by[b]
		if !ok {
			m = &SituationMix{Bucket: b}
			by[b] = m
		}
		switch p.Type {
		case model.PlayPass:
			m.Passes++
		case model.PlayRun:
			m.Runs++
		default:
			m.Other++
		}
	}
	var out []SituationMix
	for _, b := range situation.Buckets {
		if m, ok := by[b]; ok {
			out = append(out, *m)
		}
	}
	return out
}

// TeamProfile summarises one offense's tendencies.
type TeamProfile struct {
	Team     string `json:"team"`
	Games    int    `json:"games"`
	Plays    int    `json:"plays"`
	LastGame string `json:"last_game"`

	PassRate float64 `json:"pass_rate"`
	// RollingPassRate is the windowed rate through the team's last game.
	RollingPassRate float64 `json:"rolling_pass_rate"`
	Identity        string  `json:"identity"`

	// SituationPassRate is keyed by bucket name.
	SituationPassRate map[string]float64 `json:"situation_pass_rate"`
	SituationPlays    map[string]int     `json:"situation_plays"`
}

// TeamProfiles builds one profile per offense, sorted by team. The identity
// label uses the same thresholds as the team_identity feature.
func TeamProfiles(plays []model.Play, opt RateOptions) []TeamProfile {
	opt.ExcludeCurrent = false
	rates := RollingPassRates(plays, opt)

	byTeam := make(map[string]*TeamProfile)
	for _, g := range TeamGames(plays) {
		tp, ok := byTeam[g.Team]
		if !ok {
			tp = &TeamProfile{Team: g.Team}
			byTeam[g.Team] = tp
		}
		tp.Games++
		tp.Plays += g.Plays
		tp.PassRate += float64(g.Passes)
		// TeamGames is chronological, so the last game seen is the latest.
		tp.LastGame = g.GameID
		tp.RollingPassRate = rates[GameTeam{GameID: g.GameID, Team: g.Team}]
	}

	teamPlays := make(map[string][]model.Play, len(byTeam))
	for _, p := range plays {
		if _, ok := byTeam[p.PosTeam]; ok {
			teamPlays[p.PosTeam] = append(teamPlays[p.PosTeam], p)
		}
	}

	out := make([]TeamProfile, 0, len(byTeam))
	for team, tp := range byTeam {
		if tp.Plays > 0 {
			tp.PassRate /= float64(tp.Plays)
		}
		tp.Identity = situation.ClassifyTeam(tp.RollingPassRate).String()
		tp.SituationPassRate = make(map[string]float64)
		tp.SituationPlays = make(map[string]int)
		for _, m := range Mix(teamPlays[team]) {
			if m.Passes+m.Runs == 0 {
				continue
			}
			tp.SituationPassRate[m.Bucket.String()] = m.PassRate()
			tp.SituationPlays[m.Bucket.String()] = m.Passes + m.Runs
		}
		out = append(out, *tp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Team < out[j].Team })
	return out
}
