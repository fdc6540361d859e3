package situation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-playcall/internal/model"
)

// AuxKind tags which auxiliary context a Key carries.
type AuxKind uint8

const (
	AuxNone AuxKind = iota
	AuxScore
	AuxTeam
	AuxScoreTeam
	AuxTimeLocation
)

// Key identifies one partition of the training data: a canonical bucket plus
// at most one auxiliary context. Fields not covered by Aux are always zero, so
// two keys describing the same partition compare equal.
type Key struct {
	Base     Bucket
	Aux      AuxKind
	Score    ScoreContext
	Team     TeamIdentity
	Time     TimeContext
	Location Location
}

// BaseKey returns the feature-free key for a bucket.
func BaseKey(b Bucket) Key { return Key{Base: b} }

// ScoreKey returns a bucket + score context key.
func ScoreKey(b Bucket, s ScoreContext) Key {
	return Key{Base: b, Aux: AuxScore, Score: s}
}

// TeamKey returns a bucket + team identity key.
func TeamKey(b Bucket, t TeamIdentity) Key {
	return Key{Base: b, Aux: AuxTeam, Team: t}
}

// ScoreTeamKey returns a bucket + score + team identity key.
func ScoreTeamKey(b Bucket, s ScoreContext, t TeamIdentity) Key {
	return Key{Base: b, Aux: AuxScoreTeam, Score: s, Team: t}
}

// TimeLocationKey returns a bucket + clock + home/away key.
func TimeLocationKey(b Bucket, tc TimeContext, l Location) Key {
	return Key{Base: b, Aux: AuxTimeLocation, Time: tc, Location: l}
}

// Canonical drops the auxiliary context.
func (k Key) Canonical() Key { return BaseKey(k.Base) }

// IsCanonical reports whether k carries no auxiliary context.
func (k Key) IsCanonical() bool { return k.Aux == AuxNone }

const keySep = "|"

// labels returns the auxiliary labels in their fixed order.
func (k Key) labels() []string {
	switch k.Aux {
	case AuxScore:
		return []string{k.Score.String()}
	case AuxTeam:
		return []string{k.Team.String()}
	case AuxScoreTeam:
		return []string{k.Score.String(), k.Team.String()}
	case AuxTimeLocation:
		return []string{k.Time.String(), k.Location.String()}
	default:
		return nil
	}
}

// String renders the key as base|aux..., e.g. "third_short|trailing|pass_heavy".
func (k Key) String() string {
	return strings.Join(append([]string{k.Base.String()}, k.labels()...), keySep)
}

var (
	scoreLabels = map[string]ScoreContext{"trailing": Trailing, "tied": Tied, "leading": Leading}
	teamLabels  = map[string]TeamIdentity{"pass_heavy": PassHeavy, "balanced": Balanced, "run_heavy": RunHeavy}
	timeLabels  = map[string]TimeContext{"two_minute": TwoMinute, "normal": NormalTime}
	locLabels   = map[string]Location{"home": Home, "away": Away}
)

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, keySep)
	base, err := ParseBucket(parts[0])
	if err != nil {
		return Key{}, err
	}
	aux := parts[1:]
	switch len(aux) {
	case 0:
		return BaseKey(base), nil
	case 1:
		if sc, ok := scoreLabels[aux[0]]; ok {
			return ScoreKey(base, sc), nil
		}
		if ti, ok := teamLabels[aux[0]]; ok {
			return TeamKey(base, ti), nil
		}
	case 2:
		sc, okS := scoreLabels[aux[0]]
		ti, okT := teamLabels[aux[1]]
		if okS && okT {
			return ScoreTeamKey(base, sc, ti), nil
		}
		tc, okC := timeLabels[aux[0]]
		loc, okL := locLabels[aux[1]]
		if okC && okL {
			return TimeLocationKey(base, tc, loc), nil
		}
	}
	return Key{}, fmt.Errorf("malformed situation key %q", s)
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Describe renders a key for humans, e.g.
// "3rd down, short yardage (1-3 yards), Trailing, Pass Heavy".
func Describe(k Key) string {
	parts := []string{k.Base.Description()}
	for _, l := range k.labels() {
		parts = append(parts, titleLabel(l))
	}
	return strings.Join(parts, ", ")
}

// SortKeys orders keys by base bucket display order, then by their string form.
func SortKeys(keys []Key) {
	order := make(map[Bucket]int, len(Buckets))
	for i, b := range Buckets {
		order[b] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Base != keys[j].Base {
			return order[keys[i].Base] < order[keys[j].Base]
		}
		if keys[i].Aux != keys[j].Aux {
			return keys[i].Aux < keys[j].Aux
		}
		return keys[i].String() < keys[j].String()
	})
}

// ClassifySituation returns the canonical bucket of a model situation.
func ClassifySituation(s model.Situation) Bucket {
	return Classify(s.Down, s.ToGo, s.YardLine)
}
