package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/evaluate"
	"github.com/pable/go-playcall/internal/model"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/situation"
	"github.com/pable/go-playcall/internal/storage"
)

const analyzeSystemPrompt = `You are an American football analytics assistant. You are given the stored
result of evaluating a next-play-call model (pass vs. run) and a question from the user.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise. Flag situations with few plays as unreliable.

Glossary:
- accuracy: share of scored plays where the most likely call matched the real call.
- lift_pts: accuracy minus 50%, in percentage points. A coin flip has 0 lift.
- lift_ratio: accuracy divided by 50%. A coin flip scores 1.0.
- precision (class): of the plays predicted as that class, the share that were that class.
- recall (class): of the plays that were that class, the share predicted as such.
- avg_confidence (class): mean predicted probability when that class was the pick.
- situation: down/distance/field-position bucket (early_down_*, third_*, fourth_down,
  red_zone = inside the 20, goal_line = inside the 5).
- fallback levels: level_1_specific = the situation+context bucket answered,
  level_2_base = the plain situation bucket answered, level_3_league = a fixed league prior.
- min_examples: training plays a bucket needs before it is trusted.
- min_context: earlier plays in the drive required before a play is scored.`

var (
	analyzeModel  string
	analyzeAPIKey string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <run-id-prefix> <question>",
	Short: "AI-powered grounded analysis of an evaluation run (requires ANTHROPIC_API_KEY)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Anthropic model to use (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := findRun(db, args[0])
	if err != nil {
		return err
	}
	res, err := decodeResult(run)
	if err != nil {
		return err
	}
	contextJSON, err := buildRunContext(run, res)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	modelID := analyzeModel
	if modelID == "" {
		modelID = cfg.Analyze.Model
	}
	return callAnthropic(cmd.Context(), analyzeAPIKey, modelID, cfg.Analyze.MaxTokens, contextJSON, args[1])
}

// buildRunContext serialises a stored evaluation run into compact JSON.
func buildRunContext(run *storage.EvalRun, res *evaluate.Result) (string, error) {
	type classEntry struct {
		Class         string  `json:"class"`
		Actual        int     `json:"actual"`
		Predicted     int     `json:"predicted"`
		Precision     float64 `json:"precision"`
		Recall        float64 `json:"recall"`
		F1            float64 `json:"f1"`
		AvgConfidence float64 `json:"avg_confidence"`
	}
	type situationEntry struct {
		Situation   string  `json:"situation"`
		Description string  `json:"description"`
		Plays       int     `json:"plays"`
		Accuracy    float64 `json:"accuracy"`
		PassRecall  float64 `json:"pass_recall"`
		RunRecall   float64 `json:"run_recall"`
	}

	classes := func(m evaluate.Metrics) []classEntry {
		out := make([]classEntry, 0, len(evaluate.Classes))
		for _, pt := range evaluate.Classes {
			out = append(out, classEntry{
				Class:         strings.ToLower(pt.Name()),
				Actual:        m.Actual(pt),
				Predicted:     m.Predicted(pt),
				Precision:     round3(m.Precision(pt)),
				Recall:        round3(m.Recall(pt)),
				F1:            round3(m.F1(pt)),
				AvgConfidence: round3(m.AvgConfidence(pt)),
			})
		}
		return out
	}

	situations := make([]situationEntry, 0, len(res.BySituation))
	for _, b := range situation.Buckets {
		m, ok := res.BySituation[b]
		if !ok || m.Total == 0 {
			continue
		}
		situations = append(situations, situationEntry{
			Situation:   b.String(),
			Description: situation.Describe(situation.BaseKey(b)),
			Plays:       m.Total,
			Accuracy:    round3(m.Accuracy()),
			PassRecall:  round3(m.Recall(model.PlayPass)),
			RunRecall:   round3(m.Recall(model.PlayRun)),
		})
	}

	levels := make(map[string]int, len(res.Levels))
	for _, l := range predictor.Levels {
		levels[l.String()] = res.Levels[l]
	}

	doc := map[string]interface{}{
		"subject": "evaluation_run",
		"run_id":  run.ID,
		"date":    run.CreatedAt.Format("2006-01-02"),
		"model": map[string]interface{}{
			"features":     run.Features,
			"max_depth":    run.MaxDepth,
			"fallback":     run.Fallback,
			"min_examples": run.MinExamples,
			"min_context":  run.MinContext,
		},
		"data": map[string]interface{}{
			"train_games":    run.TrainGames,
			"test_games":     run.TestGames,
			"drives":         res.Drives,
			"skipped_drives": res.SkippedDrives,
			"skipped_other":  res.SkippedOther,
			"skipped_empty":  res.SkippedEmpty,
		},
		"overall": map[string]interface{}{
			"plays":      res.Overall.Total,
			"correct":    res.Overall.Correct,
			"accuracy":   round3(res.Overall.Accuracy()),
			"lift_pts":   round3(res.LiftPoints()),
			"lift_ratio": round3(res.LiftRatio()),
			"classes":    classes(res.Overall),
		},
		"fallback_levels": levels,
		"by_situation":    situations,
	}

	b, err := json.Marshal(doc)
	return string(b), err
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, apiKey, modelID string, maxTokens int64, dataJSON, question string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed, check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
