package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-playcall/internal/aggregator"
	"github.com/pable/go-playcall/internal/evaluate"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/situation"
	"github.com/pable/go-playcall/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

func pct(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// PrintStats prints the model configuration followed by one row per trained
// situation key.
func PrintStats(w io.Writer, s predictor.Stats) {
	c := s.Config
	fmt.Fprintf(w, "\nDepth: %d  |  Features: %s  |  Fallback: %v  |  Threshold: %d  |  Insertions: %d\n",
		c.MaxDepth, c.Features, c.Fallback, c.MinExamples, s.TotalInsertions)
	fmt.Fprintf(w, "Buckets: %d  (reliable %d, sparse %d)\n\n", len(s.Buckets), s.ReliableBuckets, s.SparseBuckets)

	table := newTable(w)
	table.Header("KEY", "INSERTIONS", "SHARE", "RELIABLE", "NODES", "BRANCHING", "DESCRIPTION")
	for _, b := range s.Buckets {
		share := 0.0
		if s.TotalInsertions > 0 {
			share = float64(b.Insertions) / float64(s.TotalInsertions)
		}
		reliable := "no"
		if b.Reliable {
			reliable = "yes"
		}
		table.Append(
			b.Key.String(),
			strconv.Itoa(b.Insertions),
			pct(share),
			reliable,
			strconv.Itoa(b.Shape.Nodes),
			fmt.Sprintf("%.2f", b.Shape.AvgBranching),
			situation.Describe(b.Key),
		)
	}
	table.Render()

	if len(s.Usage) > 0 {
		PrintUsage(w, s.Usage)
	}
}

// PrintUsage prints how often each rung of the fallback ladder answered.
func PrintUsage(w io.Writer, usage map[predictor.Level]int64) {
	var total int64
	for _, n := range usage {
		total += n
	}
	if total == 0 {
		return
	}
	fmt.Fprintln(w)
	table := newTable(w)
	table.Header("LEVEL", "PREDICTIONS", "SHARE")
	for _, l := range predictor.Levels {
		n := usage[l]
		table.Append(l.String(), strconv.FormatInt(n, 10), pct(float64(n)/float64(total)))
	}
	table.Render()
}

// PrintResult prints the headline accuracy line, the per-class table and the
// per-situation breakdown of an evaluation.
func PrintResult(w io.Writer, r *evaluate.Result) {
	m := r.Overall
	lo, hi := wilsonCI(m.Correct, m.Total)
	fmt.Fprintf(w, "\nDrives: %d (skipped %d)  |  Plays scored: %d  |  Skipped OTHER: %d  |  Skipped empty: %d\n",
		r.Drives, r.SkippedDrives, m.Total, r.SkippedOther, r.SkippedEmpty)
	fmt.Fprintf(w, "Accuracy: %s  [95%% CI %s – %s]  |  Lift over 50%%: %+.1f pts (%.2fx random)\n\n",
		pct(m.Accuracy()), pct(lo), pct(hi), r.LiftPoints(), r.LiftRatio())

	PrintClassTable(w, m)
	if len(r.BySituation) > 0 {
		fmt.Fprintln(w)
		PrintSituationBreakdown(w, r.BySituation)
	}
	if len(r.Levels) > 0 {
		usage := make(map[predictor.Level]int64, len(r.Levels))
		for l, n := range r.Levels {
			usage[l] = int64(n)
		}
		PrintUsage(w, usage)
	}
}

// PrintClassTable prints precision, recall and F1 for pass and run.
func PrintClassTable(w io.Writer, m evaluate.Metrics) {
	table := newTable(w)
	table.Header("CLASS", "ACTUAL", "PREDICTED", "PRECISION", "RECALL", "F1", "AVG_CONF")
	for _, pt := range evaluate.Classes {
		table.Append(
			pt.Name(),
			strconv.Itoa(m.Actual(pt)),
			strconv.Itoa(m.Predicted(pt)),
			pct(m.Precision(pt)),
			pct(m.Recall(pt)),
			fmt.Sprintf("%.3f", m.F1(pt)),
			pct(m.AvgConfidence(pt)),
		)
	}
	table.Render()
}

// PrintSituationBreakdown prints accuracy per canonical bucket, in display
// order, with a Wilson interval so sparse buckets read as uncertain.
func PrintSituationBreakdown(w io.Writer, by map[situation.Bucket]*evaluate.Metrics) {
	table := newTable(w)
	table.Header("SITUATION", "PLAYS", "CORRECT", "ACC", "95% CI", "PASS_REC", "RUN_REC")
	for _, b := range situation.Buckets {
		m, ok := by[b]
		if !ok || m.Total == 0 {
			continue
		}
		lo, hi := wilsonCI(m.Correct, m.Total)
		table.Append(
			b.String(),
			strconv.Itoa(m.Total),
			strconv.Itoa(m.Correct),
			pct(m.Accuracy()),
			fmt.Sprintf("%.0f–%.0f%%", lo*100, hi*100),
			pct(m.Recall(model.PlayPass)),
			pct(m.Recall(model.PlayRun)),
		)
	}
	table.Render()
}

// PrintPrediction prints one prediction: the key that answered, the ladder
// level, and the distribution, most likely call first.
func PrintPrediction(w io.Writer, p predictor.Prediction) {
	fmt.Fprintf(w, "Situation: %s (%s)\n", situation.Describe(p.Key), p.Key)
	fmt.Fprintf(w, "Answered by: %s  |  Context depth: %d\n", p.Level, p.Depth)
	if len(p.Dist) == 0 {
		fmt.Fprintln(w, "No prediction: no trained data for this situation.")
		return
	}
	table := newTable(w)
	table.Header("CALL", "PROBABILITY")
	for _, pt := range p.Dist.Sorted() {
		table.Append(pt.Name(), pct(p.Dist[pt]))
	}
	table.Render()
	if p.Outcome.Samples > 0 {
		fmt.Fprintf(w, "Avg EPA at this context: %+.2f (%d plays)\n", p.Outcome.Mean, p.Outcome.Samples)
	}
}

// PrintRuns lists stored evaluation runs.
func PrintRuns(w io.Writer, runs []storage.EvalRun) {
	table := newTable(w)
	table.Header("ID", "DATE", "FEATURES", "DEPTH", "FALLBACK", "MIN_EX", "TEST_GAMES", "PLAYS", "ACC", "PASS_P", "RUN_P")
	for _, r := range runs {
		table.Append(
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Features,
			strconv.Itoa(r.MaxDepth),
			strconv.FormatBool(r.Fallback),
			strconv.Itoa(r.MinExamples),
			strconv.Itoa(r.TestGames),
			strconv.Itoa(r.Total),
			pct(r.Accuracy),
			pct(r.PassPrecision),
			pct(r.RunPrecision),
		)
	}
	table.Render()
}

// PrintGames lists stored games with their play mix.
func PrintGames(w io.Writer, games []storage.GameSummary) {
	table := newTable(w)
	table.Header("GAME", "SEASON", "TEAMS", "DRIVES", "PLAYS", "PASS", "RUN", "PASS%")
	for _, g := range games {
		passPct := "—"
		if g.Passes+g.Runs > 0 {
			passPct = pct(float64(g.Passes) / float64(g.Passes+g.Runs))
		}
		table.Append(
			g.GameID,
			strconv.Itoa(g.Season),
			g.Teams,
			strconv.Itoa(g.Drives),
			strconv.Itoa(g.Plays),
			strconv.Itoa(g.Passes),
			strconv.Itoa(g.Runs),
			passPct,
		)
	}
	table.Render()
}

// PrintSituationMix prints the play-call split per canonical bucket.
func PrintSituationMix(w io.Writer, mix []aggregator.SituationMix) {
	table := newTable(w)
	table.Header("SITUATION", "PLAYS", "PASS", "RUN", "OTHER", "PASS%", "DESCRIPTION")
	for _, m := range mix {
		table.Append(
			m.Bucket.String(),
			strconv.Itoa(m.Plays()),
			strconv.Itoa(m.Passes),
			strconv.Itoa(m.Runs),
			strconv.Itoa(m.Other),
			pct(m.PassRate()),
			situation.Describe(situation.BaseKey(m.Bucket)),
		)
	}
	table.Render()
}

// PrintTeamProfiles prints one row per offense.
func PrintTeamProfiles(w io.Writer, profiles []aggregator.TeamProfile) {
	table := newTable(w)
	table.Header("TEAM", "GAMES", "PLAYS", "PASS%", "ROLLING%", "IDENTITY", "LAST_GAME")
	for _, p := range profiles {
		table.Append(
			p.Team,
			strconv.Itoa(p.Games),
			strconv.Itoa(p.Plays),
			pct(p.PassRate),
			pct(p.RollingPassRate),
			p.Identity,
			p.LastGame,
		)
	}
	table.Render()
}

// PrintTeamTrend prints one offense's game-by-game pass rate next to its
// rolling rate and the identity that rate maps to.
func PrintTeamTrend(w io.Writer, games []aggregator.TeamGame, rates map[aggregator.GameTeam]float64) {
	table := newTable(w)
	table.Header("SEASON", "GAME", "PLAYS", "PASS", "PASS%", "ROLLING%", "IDENTITY")
	for _, g := range games {
		r := rates[aggregator.GameTeam{GameID: g.GameID, Team: g.Team}]
		table.Append(
			strconv.Itoa(g.Season),
			g.GameID,
			strconv.Itoa(g.Plays),
			strconv.Itoa(g.Passes),
			pct(g.PassRate()),
			pct(r),
			situation.ClassifyTeam(r).String(),
		)
	}
	table.Render()
}

// PrintDriveReplay prints every play of d with the prediction made from the
// plays before it. preds is parallel to d.Plays.
func PrintDriveReplay(w io.Writer, d model.Drive, preds []predictor.Prediction) {
	offense := ""
	if len(d.Plays) > 0 {
		offense = d.Plays[0].PosTeam
	}
	fmt.Fprintf(w, "\nDrive %d  %s  (%d plays)\n", d.Number, offense, len(d.Plays))
	table := newTable(w)
	table.Header("#", "SITUATION", "BUCKET", "ACTUAL", "PREDICTED", "P(PASS)", "LEVEL", "CTX EPA", " ")
	for i, p := range d.Plays {
		pred := preds[i]
		called, _, ok := pred.Dist.ArgMax()
		predicted, passProb, mark := "—", "—", " "
		ctxEPA := "—"
		if pred.Outcome.Samples > 0 {
			ctxEPA = fmt.Sprintf("%+.2f", pred.Outcome.Mean)
		}
		if ok {
			predicted = called.Name()
			passProb = pct(pred.Dist[model.PlayPass])
			if p.Type != model.PlayOther {
				mark = "x"
				if called == p.Type {
					mark = "✓"
				}
			}
		}
		table.Append(
			strconv.Itoa(i+1),
			p.Situation().String(),
			situation.ClassifySituation(p.Situation()).String(),
			p.Type.Name(),
			predicted,
			passProb,
			pred.Level.String(),
			ctxEPA,
			mark,
		)
	}
	table.Render()
}

// PrintRaw prints an arbitrary result set, one column per field.
func PrintRaw(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// wilsonCI computes the 95% Wilson score confidence interval for a proportion.
// Returns (lo, hi) as fractions in [0, 1].
func wilsonCI(hits, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 1
	}
	z := 1.96
	p := float64(hits) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}
