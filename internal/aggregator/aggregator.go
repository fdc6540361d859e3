package aggregator

import (
	"sort"

	"github.com/pable/go-playcall/internal/model"
)

// TeamGame is one offense's pass/run tally for one game.
type TeamGame struct {
	Season int
	GameID string
	Team   string
	Passes int
	Plays  int
}

// PassRate returns passes over pass+run plays, or 0 for an empty tally.
func (g TeamGame) PassRate() float64 {
	if g.Plays == 0 {
		return 0
	}
	return float64(g.Passes) / float64(g.Plays)
}

// GameTeam keys a per-game rate.
type GameTeam struct {
	GameID string
	Team   string
}

// TeamGames tallies pass and run plays per (game, offense), in chronological
// order: season, then game id, then team. OTHER plays are ignored.
func TeamGames(plays []model.Play) []TeamGame {
	idx := make(map[GameTeam]int)
	var out []TeamGame
	for _, p := range plays {
		if p.Type == model.PlayOther || p.PosTeam == "" {
			continue
		}
		k := GameTeam{GameID: p.GameID, Team: p.PosTeam}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, TeamGame{Season: p.Season, GameID: p.GameID, Team: p.PosTeam})
		}
		out[i].Plays++
		if p.Type == model.PlayPass {
			out[i].Passes++
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		if out[i].GameID != out[j].GameID {
			return out[i].GameID < out[j].GameID
		}
		return out[i].Team < out[j].Team
	})
	return out
}

// RateOptions controls the rolling pass-rate window.
type RateOptions struct {
	// Window is the number of most recent games per team.
	Window int
	// Default is used when a team has no usable history.
	Default float64
	// ExcludeCurrent leaves the game being played out of its own window, so
	// the rate only reflects information known before kickoff.
	ExcludeCurrent bool
}

// DefaultRateOptions returns a 4-game window with a 0.55 league default.
func DefaultRateOptions() RateOptions {
	return RateOptions{Window: 4, Default: 0.55}
}

// RollingPassRates returns each team's pass rate over its last Window games,
// pooled by play count rather than averaged per game. Early in a team's
// history the window is simply shorter.
func RollingPassRates(plays []model.Play, opt RateOptions) map[GameTeam]float64 {
	if opt.Window < 1 {
		opt.Window = 1
	}
	byTeam := make(map[string][]TeamGame)
	for _, g := range TeamGames(plays) {
		byTeam[g.Team] = append(byTeam[g.Team], g)
	}

	out := make(map[GameTeam]float64)
	for team, games := range byTeam {
		for i, g := range games {
			hi := i + 1
			if opt.ExcludeCurrent {
				hi = i
			}
			lo := max(0, hi-opt.Window)
			var passes, total int
			for _, w := range games[lo:hi] {
				passes += w.Passes
				total += w.Plays
			}
			rate := opt.Default
			if total > 0 {
				rate = float64(passes) / float64(total)
			}
			out[GameTeam{GameID: g.GameID, Team: team}] = rate
		}
	}
	return out
}

// FillPassRates sets TeamPassRate on every play that lacks one and returns
// how many plays were filled. Plays whose offense has no tally get Default.
func FillPassRates(plays []model.Play, opt RateOptions) int {
	rates := RollingPassRates(plays, opt)
	filled := 0
	for i := range plays {
		if plays[i].TeamPassRate != nil {
			continue
		}
		r, ok := rates[GameTeam{GameID: plays[i].GameID, Team: plays[i].PosTeam}]
		if !ok {
			r = opt.Default
		}
		plays[i].TeamPassRate = &r
		filled++
	}
	return filled
}
