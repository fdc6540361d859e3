package situation

import (
	"errors"
	"testing"

	"github.com/pable/go-playcall/internal/model"
)

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }

func TestClassifyCanonical(t *testing.T) {
	cases := []struct {
		down, togo, yardline int
		want                 Bucket
	}{
		{1, 10, 75, EarlyDownLong},
		{2, 6, 71, EarlyDownMedium},
		{2, 2, 50, EarlyDownShort},
		{3, 2, 50, ThirdShort},
		{3, 5, 50, ThirdMedium},
		{3, 12, 60, ThirdLong},
		{4, 1, 40, FourthDown},
		{1, 10, 15, RedZone},
		{1, 3, 3, GoalLine},
	}
	for _, c := range cases {
		got := Classify(c.down, c.togo, c.yardline)
		if got != c.want {
			t.Errorf("Classify(%d,%d,%d) = %s, want %s", c.down, c.togo, c.yardline, got, c.want)
		}
		// Pure: same input, same bucket.
		if again := Classify(c.down, c.togo, c.yardline); again != got {
			t.Errorf("Classify(%d,%d,%d) not deterministic: %s then %s", c.down, c.togo, c.yardline, got, again)
		}
	}
}

func TestClassifyFieldPositionPrecedence(t *testing.T) {
	for down := 1; down <= 4; down++ {
		for togo := 1; togo <= 15; togo++ {
			for yl := 0; yl <= 5; yl++ {
				if got := Classify(down, togo, yl); got != GoalLine {
					t.Fatalf("Classify(%d,%d,%d) = %s, want goal_line", down, togo, yl, got)
				}
			}
			for yl := 6; yl <= 20; yl++ {
				if got := Classify(down, togo, yl); got != RedZone {
					t.Fatalf("Classify(%d,%d,%d) = %s, want red_zone", down, togo, yl, got)
				}
			}
		}
	}
	if got := Classify(3, 2, 3); got != GoalLine {
		t.Errorf("3rd and 2 at the 3 should be goal_line, got %s", got)
	}
	if got := Classify(4, 1, 21); got != FourthDown {
		t.Errorf("4th and 1 at the 21 should be fourth_down, got %s", got)
	}
}

func TestAuxContextThresholds(t *testing.T) {
	if ClassifyScore(-7) != Trailing || ClassifyScore(-6.5) != Tied || ClassifyScore(7) != Leading || ClassifyScore(0) != Tied {
		t.Error("score context thresholds wrong")
	}
	if ClassifyTeam(0.60) != PassHeavy || ClassifyTeam(0.45) != RunHeavy || ClassifyTeam(0.55) != Balanced {
		t.Error("team identity thresholds wrong")
	}
	if ClassifyTime(120) != TwoMinute || ClassifyTime(121) != NormalTime {
		t.Error("time context thresholds wrong")
	}
	if loc, ok := ParseLocation("AWAY"); !ok || loc != Away {
		t.Error("expected AWAY to parse as away")
	}
	if _, ok := ParseLocation("neutral"); ok {
		t.Error("expected neutral to be rejected")
	}
}

func TestKeyStringRoundTrip(t *testing.T) {
	keys := []Key{
		BaseKey(ThirdShort),
		ScoreKey(RedZone, Trailing),
		TeamKey(EarlyDownLong, RunHeavy),
		ScoreTeamKey(ThirdShort, Trailing, PassHeavy),
		TimeLocationKey(GoalLine, TwoMinute, Away),
		TimeLocationKey(Other, NormalTime, Home),
	}
	for _, k := range keys {
		parsed, err := ParseKey(k.String())
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("round trip %q: got %+v, want %+v", k.String(), parsed, k)
		}
	}
	if got := ScoreTeamKey(ThirdShort, Trailing, PassHeavy).String(); got != "third_short|trailing|pass_heavy" {
		t.Errorf("unexpected key string %q", got)
	}
	for _, bad := range []string{"", "third_short|pass_heavy|trailing", "nowhere", "red_zone|home|two_minute", "red_zone|a|b|c"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(ScoreTeamKey(ThirdShort, Trailing, PassHeavy))
	want := "3rd down, short yardage (1-3 yards), Trailing, Pass Heavy"
	if got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}
	if got := Describe(BaseKey(GoalLine)); got != "Goal line (inside opponent 5)" {
		t.Errorf("Describe base = %q", got)
	}
	if got := Describe(TimeLocationKey(RedZone, TwoMinute, Home)); got != "Red zone (inside opponent 20), Two Minute, Home" {
		t.Errorf("Describe time/location = %q", got)
	}
}

func TestParseFeatureSet(t *testing.T) {
	cases := []struct {
		in   []string
		want FeatureSet
	}{
		{nil, NoFeatures},
		{[]string{"none"}, NoFeatures},
		{[]string{"score"}, ScoreFeatures},
		{[]string{"team_identity"}, TeamFeatures},
		{[]string{"team_identity", "score"}, ScoreTeamFeatures},
		{[]string{"home_away", "time_remaining"}, TimeLocationFeatures},
	}
	for _, c := range cases {
		got, err := ParseFeatureSet(c.in)
		if err != nil {
			t.Fatalf("ParseFeatureSet(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseFeatureSet(%v) = %s, want %s", c.in, got, c.want)
		}
	}

	for _, bad := range [][]string{
		{"score", "home_away"},
		{"time_remaining"},
		{"score", "team_identity", "time_remaining", "home_away"},
		{"weather"},
	} {
		_, err := ParseFeatureSet(bad)
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("ParseFeatureSet(%v): expected ValidationError, got %v", bad, err)
		}
	}
}

func TestKeyForFallsBackWhenAuxMissing(t *testing.T) {
	sit := model.Situation{Down: 3, ToGo: 2, YardLine: 50}

	full := model.Aux{ScoreDiff: f64(-10), TeamPassRate: f64(0.65)}
	if got := KeyFor(ScoreTeamFeatures, sit, full); got != ScoreTeamKey(ThirdShort, Trailing, PassHeavy) {
		t.Errorf("KeyFor full aux = %s", got)
	}

	partial := model.Aux{ScoreDiff: f64(-10)}
	if got := KeyFor(ScoreTeamFeatures, sit, partial); got != BaseKey(ThirdShort) {
		t.Errorf("KeyFor partial aux should be canonical, got %s", got)
	}

	tl := model.Aux{SecondsRemaining: f64(90), Location: str("Home")}
	if got := KeyFor(TimeLocationFeatures, sit, tl); got != TimeLocationKey(ThirdShort, TwoMinute, Home) {
		t.Errorf("KeyFor time/location = %s", got)
	}

	badLoc := model.Aux{SecondsRemaining: f64(90), Location: str("neutral")}
	if got := KeyFor(TimeLocationFeatures, sit, badLoc); got != BaseKey(ThirdShort) {
		t.Errorf("KeyFor with unknown location should be canonical, got %s", got)
	}

	if got := KeyFor(NoFeatures, sit, full); got != BaseKey(ThirdShort) {
		t.Errorf("KeyFor without features = %s", got)
	}
}
