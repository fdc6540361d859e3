package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/aggregator"
)

var (
	exportTeams   string
	exportSeasons []int
	exportOut     string
)

// teamExport is the top-level JSON document written by export.
type teamExport struct {
	GeneratedAt string                   `json:"generated_at"`
	Seasons     []int                    `json:"seasons,omitempty"`
	WindowGames int                      `json:"window_games"`
	GameCount   int                      `json:"game_count"`
	Teams       []aggregator.TeamProfile `json:"teams"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export offensive tendencies per team as JSON",
	Long: `Compute each offense's pass rate, rolling pass rate over its most recent games,
team identity (pass_heavy, balanced or run_heavy) and pass rate per situation,
and write them as a JSON document.

Example:
  playcall export --season 2023 --teams KC,DET --out tendencies.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTeams, "teams", "", "comma-separated team abbreviations (default: all)")
	exportCmd.Flags().IntSliceVar(&exportSeasons, "season", nil, "restrict to these seasons (repeatable)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default: stdout)")
}

func runExport(_ *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ids, err := db.GameIDs(exportSeasons...)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no games stored for the selected seasons")
	}
	plays, err := db.LoadPlays(ids)
	if err != nil {
		return fmt.Errorf("load plays: %w", err)
	}

	profiles := aggregator.TeamProfiles(plays, cfg.RateOptions())
	if exportTeams != "" {
		want := make(map[string]bool)
		for _, t := range strings.Split(exportTeams, ",") {
			want[strings.ToUpper(strings.TrimSpace(t))] = true
		}
		kept := profiles[:0]
		for _, p := range profiles {
			if want[p.Team] {
				kept = append(kept, p)
			}
		}
		profiles = kept
		if len(profiles) == 0 {
			return fmt.Errorf("none of %q found in the stored games", exportTeams)
		}
	}

	out := teamExport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Seasons:     exportSeasons,
		WindowGames: cfg.TeamIdentity.WindowGames,
		GameCount:   len(ids),
		Teams:       profiles,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	if exportOut == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(exportOut, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d teams)\n", exportOut, len(profiles))
	return nil
}
