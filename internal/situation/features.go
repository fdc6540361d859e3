package situation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-playcall/internal/model"
)

// Feature names accepted in configuration.
const (
	FeatureScore         = "score"
	FeatureTeamIdentity  = "team_identity"
	FeatureTimeRemaining = "time_remaining"
	FeatureHomeAway      = "home_away"
)

// FeatureSet is the closed set of supported auxiliary feature combinations.
type FeatureSet uint8

const (
	NoFeatures FeatureSet = iota
	ScoreFeatures
	TeamFeatures
	ScoreTeamFeatures
	TimeLocationFeatures
)

var featureSetNames = map[FeatureSet][]string{
	NoFeatures:           nil,
	ScoreFeatures:        {FeatureScore},
	TeamFeatures:         {FeatureTeamIdentity},
	ScoreTeamFeatures:    {FeatureScore, FeatureTeamIdentity},
	TimeLocationFeatures: {FeatureTimeRemaining, FeatureHomeAway},
}

// Active reports whether any auxiliary feature is enabled.
func (f FeatureSet) Active() bool { return f != NoFeatures }

func (f FeatureSet) String() string {
	names := featureSetNames[f]
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// ParseFeatureSet resolves a list of feature names, in any order, to one of the
// supported combinations. Other combinations (e.g. score + home_away) are rejected.
func ParseFeatureSet(names []string) (FeatureSet, error) {
	seen := make(map[string]bool, len(names))
	var norm []string
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || n == "none" || seen[n] {
			continue
		}
		switch n {
		case FeatureScore, FeatureTeamIdentity, FeatureTimeRemaining, FeatureHomeAway:
		default:
			return NoFeatures, &model.ValidationError{Field: "features", Msg: fmt.Sprintf("unknown feature %q", n)}
		}
		seen[n] = true
		norm = append(norm, n)
	}
	sort.Strings(norm)
	for fs, want := range featureSetNames {
		w := append([]string(nil), want...)
		sort.Strings(w)
		if strings.Join(w, ",") == strings.Join(norm, ",") {
			return fs, nil
		}
	}
	return NoFeatures, &model.ValidationError{
		Field: "features",
		Msg:   fmt.Sprintf("unsupported combination %v (use score, team_identity, score+team_identity or time_remaining+home_away)", norm),
	}
}

func (f FeatureSet) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FeatureSet) UnmarshalText(b []byte) error {
	fs, err := ParseFeatureSet(strings.Split(string(b), "+"))
	if err != nil {
		return err
	}
	*f = fs
	return nil
}

// KeyFor builds the most specific key the feature set allows. When a required
// auxiliary value is missing, the canonical key is returned instead.
func KeyFor(fs FeatureSet, s model.Situation, aux model.Aux) Key {
	base := ClassifySituation(s)
	switch fs {
	case ScoreFeatures:
		if aux.ScoreDiff != nil {
			return ScoreKey(base, ClassifyScore(*aux.ScoreDiff))
		}
	case TeamFeatures:
		if aux.TeamPassRate != nil {
			return TeamKey(base, ClassifyTeam(*aux.TeamPassRate))
		}
	case ScoreTeamFeatures:
		if aux.ScoreDiff != nil && aux.TeamPassRate != nil {
			return ScoreTeamKey(base, ClassifyScore(*aux.ScoreDiff), ClassifyTeam(*aux.TeamPassRate))
		}
	case TimeLocationFeatures:
		if aux.SecondsRemaining != nil && aux.Location != nil {
			if loc, ok := ParseLocation(*aux.Location); ok {
				return TimeLocationKey(base, ClassifyTime(*aux.SecondsRemaining), loc)
			}
		}
	}
	return BaseKey(base)
}
