package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/report"
	"github.com/pable/go-playcall/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellModel string

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive what-if session",
	Long: `Open a persistent session against the database and a saved model. Build up a
drive play by play and ask for the next call at any point. Type 'help' for
available commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().StringVarP(&shellModel, "model", "m", "", "model file (default ~/.playcall/model.zst)")
}

// session is the REPL state: the loaded model and the drive built so far.
type session struct {
	db    *storage.DB
	p     *predictor.Predictor
	path  string
	drive []model.PlayType
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	s := &session{db: db}
	if p, path, err := loadModel(shellModel); err != nil {
		cWarn.Fprintf(os.Stderr, "no model loaded (%v); use 'load <path>'\n", err)
	} else {
		s.p, s.path = p, path
	}

	cGreeting.Println("playcall shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("playcall")
		if len(s.drive) > 0 {
			cMuted.Printf(" [%s]", joinPlays(s.drive))
		}
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "games":
			s.games(args)
		case "runs":
			s.runs()
		case "load":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: load <model-path>")
				continue
			}
			s.load(args[0])
		case "stats":
			if s.requireModel() {
				report.PrintStats(os.Stdout, s.p.Stats())
			}
		case "play":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: play <P|R|OTHER> [...]")
				continue
			}
			s.drive = append(s.drive, parseRecent(strings.Join(args, ","))...)
		case "reset":
			s.drive = nil
			cMuted.Println("drive cleared")
		case "predict":
			if len(args) < 3 {
				cError.Fprintln(os.Stderr, "usage: predict <down> <togo> <yardline> [score=N] [team=0.6] [secs=N] [loc=home|away]")
				continue
			}
			s.predict(args)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"games [season]", "list stored games"},
		{"runs", "list stored evaluation runs"},
		{"load <model-path>", "load a saved model"},
		{"stats", "show the loaded model's buckets"},
		{"play <P|R|OTHER> [...]", "append plays to the current drive"},
		{"reset", "start a new drive"},
		{"predict <down> <togo> <yardline> [k=v...]", "predict the next call given the drive so far"},
		{"", "k=v: score=-7 team=0.62 secs=110 loc=home"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-44s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func (s *session) requireModel() bool {
	if s.p == nil {
		cError.Fprintln(os.Stderr, "no model loaded; use 'load <path>'")
		return false
	}
	return true
}

func (s *session) load(path string) {
	p, resolved, err := loadModel(path)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	s.p, s.path = p, resolved
	cMuted.Printf("loaded %s (%d insertions, features %s)\n", resolved, p.TotalInsertions(), p.Config().Features)
}

func (s *session) games(args []string) {
	season := 0
	if len(args) > 0 {
		season, _ = strconv.Atoi(args[0])
	}
	games, err := s.db.ListGames(season)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(games) == 0 {
		cMuted.Println("No games stored yet.")
		return
	}
	report.PrintGames(os.Stdout, games)
}

func (s *session) runs() {
	runs, err := s.db.ListEvalRuns(20)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(runs) == 0 {
		cMuted.Println("No evaluation runs stored yet.")
		return
	}
	report.PrintRuns(os.Stdout, runs)
}

func (s *session) predict(args []string) {
	if !s.requireModel() {
		return
	}
	sit, err := parseSituation(args[:3])
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	aux, err := parseAuxArgs(args[3:])
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	pred, err := s.p.Predict(predictor.Query{Situation: sit, Recent: s.drive, Aux: aux})
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Println()
	cHeader.Printf("--- %s ---\n", sit)
	report.PrintPrediction(os.Stdout, pred)
	fmt.Println()
}

// parseAuxArgs reads key=value auxiliary values.
func parseAuxArgs(args []string) (model.Aux, error) {
	var aux model.Aux
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return aux, fmt.Errorf("expected key=value, got %q", a)
		}
		if k == "loc" {
			loc := v
			aux.Location = &loc
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return aux, fmt.Errorf("invalid %s %q", k, v)
		}
		switch k {
		case "score":
			aux.ScoreDiff = &f
		case "team":
			aux.TeamPassRate = &f
		case "secs":
			aux.SecondsRemaining = &f
		default:
			return aux, fmt.Errorf("unknown key %q (score, team, secs, loc)", k)
		}
	}
	return aux, nil
}

func joinPlays(plays []model.PlayType) string {
	parts := make([]string, len(plays))
	for i, p := range plays {
		parts[i] = string(p)
	}
	return strings.Join(parts, " ")
}
