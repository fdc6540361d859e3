// Package dataset turns a flat list of plays into drives and splits games
// into training and test sets.
package dataset

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/pable/go-playcall/internal/model"
)

// GroupDrives groups plays into drives keyed by (game, drive number). Plays
// within a drive are ordered by play id, and drives by game then number.
// The input slice is not modified.
func GroupDrives(plays []model.Play) []model.Drive {
	sorted := make([]model.Play, len(plays))
	copy(sorted, plays)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.GameID != b.GameID {
			return a.GameID < b.GameID
		}
		if a.Drive != b.Drive {
			return a.Drive < b.Drive
		}
		return a.PlayID < b.PlayID
	})

	var drives []model.Drive
	for _, p := range sorted {
		n := len(drives)
		if n == 0 || drives[n-1].GameID != p.GameID || drives[n-1].Number != p.Drive {
			drives = append(drives, model.Drive{GameID: p.GameID, Number: p.Drive})
			n++
		}
		drives[n-1].Plays = append(drives[n-1].Plays, p)
	}
	return drives
}

// Split is a partition of game ids.
type Split struct {
	Train []string
	Test  []string
}

// SplitGames shuffles the distinct game ids with a fixed seed and puts
// testFraction of them (rounded down, at least one when there are two or more
// games) into Test. The same ids and seed always produce the same split.
func SplitGames(gameIDs []string, testFraction float64, seed uint64) (Split, error) {
	if testFraction <= 0 || testFraction >= 1 {
		return Split{}, &model.ValidationError{Field: "test_fraction", Msg: fmt.Sprintf("must be in (0, 1), got %g", testFraction)}
	}
	seen := make(map[string]bool, len(gameIDs))
	var ids []string
	for _, id := range gameIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	nTest := int(float64(len(ids)) * testFraction)
	if nTest == 0 && len(ids) > 1 {
		nTest = 1
	}
	s := Split{Test: ids[:nTest], Train: ids[nTest:]}
	sort.Strings(s.Test)
	sort.Strings(s.Train)
	return s, nil
}

// PlayCount returns the total number of plays across drives.
func PlayCount(drives []model.Drive) int {
	n := 0
	for _, d := range drives {
		n += len(d.Plays)
	}
	return n
}
