// Package situation maps pre-snap game state to the buckets that partition
// training data. Every function here is pure.
package situation

import "fmt"

// Bucket is a canonical down/distance/field-position category.
type Bucket uint8

const (
	Other Bucket = iota
	EarlyDownShort
	EarlyDownMedium
	EarlyDownLong
	ThirdShort
	ThirdMedium
	ThirdLong
	FourthDown
	RedZone
	GoalLine
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{
	EarlyDownShort, EarlyDownMedium, EarlyDownLong,
	ThirdShort, ThirdMedium, ThirdLong,
	FourthDown, RedZone, GoalLine, Other,
}

var bucketNames = map[Bucket]string{
	Other:           "other",
	EarlyDownShort:  "early_down_short",
	EarlyDownMedium: "early_down_medium",
	EarlyDownLong:   "early_down_long",
	ThirdShort:      "third_short",
	ThirdMedium:     "third_medium",
	ThirdLong:       "third_long",
	FourthDown:      "fourth_down",
	RedZone:         "red_zone",
	GoalLine:        "goal_line",
}

func (b Bucket) String() string {
	if s, ok := bucketNames[b]; ok {
		return s
	}
	return fmt.Sprintf("bucket(%d)", uint8(b))
}

// ParseBucket is the inverse of Bucket.String.
func ParseBucket(s string) (Bucket, error) {
	for b, name := range bucketNames {
		if name == s {
			return b, nil
		}
	}
	return Other, fmt.Errorf("unknown situation bucket %q", s)
}

func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bucket) UnmarshalText(text []byte) error {
	parsed, err := ParseBucket(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Classify buckets a situation. Field position wins over down: anything inside
// the 5 is goal_line and anything inside the 20 is red_zone, including 3rd and
// 4th downs.
func Classify(down, toGo, yardLine int) Bucket {
	if yardLine <= 5 {
		return GoalLine
	}
	if yardLine <= 20 {
		return RedZone
	}
	if down == 4 {
		return FourthDown
	}
	if down == 3 {
		switch {
		case toGo <= 3:
			return ThirdShort
		case toGo <= 7:
			return ThirdMedium
		default:
			return ThirdLong
		}
	}
	if down == 1 || down == 2 {
		switch {
		case toGo <= 3:
			return EarlyDownShort
		case toGo <= 7:
			return EarlyDownMedium
		default:
			return EarlyDownLong
		}
	}
	return Other
}

var bucketDescriptions = map[Bucket]string{
	EarlyDownShort:  "Early down, short yardage (1-3 yards)",
	EarlyDownMedium: "Early down, medium yardage (4-7 yards)",
	EarlyDownLong:   "Early down, long yardage (8+ yards)",
	ThirdShort:      "3rd down, short yardage (1-3 yards)",
	ThirdMedium:     "3rd down, medium yardage (4-7 yards)",
	ThirdLong:       "3rd down, long yardage (8+ yards)",
	FourthDown:      "4th down (any distance)",
	RedZone:         "Red zone (inside opponent 20)",
	GoalLine:        "Goal line (inside opponent 5)",
	Other:           "Other situation",
}

// Description returns a human-readable label for the bucket.
func (b Bucket) Description() string {
	if s, ok := bucketDescriptions[b]; ok {
		return s
	}
	return "Unknown situation"
}
