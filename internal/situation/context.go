package situation

import "strings"

// ScoreContext buckets the score differential of the offense.
type ScoreContext uint8

const (
	Tied ScoreContext = iota
	Trailing
	Leading
)

func (s ScoreContext) String() string {
	switch s {
	case Trailing:
		return "trailing"
	case Leading:
		return "leading"
	default:
		return "tied"
	}
}

// ClassifyScore: a one-score game either way counts as tied.
func ClassifyScore(diff float64) ScoreContext {
	switch {
	case diff <= -7:
		return Trailing
	case diff >= 7:
		return Leading
	default:
		return Tied
	}
}

// TeamIdentity buckets a team's rolling pass rate.
type TeamIdentity uint8

const (
	Balanced TeamIdentity = iota
	PassHeavy
	RunHeavy
)

func (t TeamIdentity) String() string {
	switch t {
	case PassHeavy:
		return "pass_heavy"
	case RunHeavy:
		return "run_heavy"
	default:
		return "balanced"
	}
}

// ClassifyTeam uses the thresholds 0.60 (pass heavy) and 0.45 (run heavy).
func ClassifyTeam(passRate float64) TeamIdentity {
	switch {
	case passRate >= 0.60:
		return PassHeavy
	case passRate <= 0.45:
		return RunHeavy
	default:
		return Balanced
	}
}

// TimeContext separates the two-minute drill from normal play.
type TimeContext uint8

const (
	NormalTime TimeContext = iota
	TwoMinute
)

func (t TimeContext) String() string {
	if t == TwoMinute {
		return "two_minute"
	}
	return "normal"
}

// ClassifyTime returns TwoMinute at or under 120 seconds remaining.
func ClassifyTime(secondsRemaining float64) TimeContext {
	if secondsRemaining <= 120 {
		return TwoMinute
	}
	return NormalTime
}

// Location is the offense's home/away status.
type Location uint8

const (
	Home Location = iota
	Away
)

func (l Location) String() string {
	if l == Away {
		return "away"
	}
	return "home"
}

// ParseLocation accepts "home" or "away" in any case. Anything else is
// reported as not ok and treated by callers as a missing value.
func ParseLocation(s string) (Location, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home":
		return Home, true
	case "away":
		return Away, true
	default:
		return Home, false
	}
}

func titleLabel(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
