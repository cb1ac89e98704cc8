package cmd

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/filtering"
	"github.com/spigell/travel-buddy/internal/logger"
	"github.com/spigell/travel-buddy/internal/matching"
	"github.com/spigell/travel-buddy/internal/roster"
	"github.com/spigell/travel-buddy/internal/store"
)

const (
	PromptYes           = "Store matches"
	PromptNo            = "Exit"
	PromptReportByLevel = "Report by match level"
	PromptMatchesToFile = "Dump matches to file"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Procced?",
	Items: []string{PromptYes, PromptNo, PromptReportByLevel, PromptMatchesToFile},
}

var batchCmd = &cobra.Command{
	Use:   "batch <subject-id>",
	Short: "Score a traveler against the whole roster and store the best matches",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		batch(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("context", "c", "", "trip or event id the matches belong to")
	batchCmd.Flags().BoolP("auto-approve", "y", false, "store matches without asking for confirmation")
	batchCmd.Flags().BoolP("rescore", "f", false, "do not exclude travelers already matched in this context")
	batchCmd.MarkFlagRequired("context")
}

// batch scores the subject against every other traveler of the roster.
func batch(cmd *cobra.Command, subjectID string) {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	contextID, _ := cmd.Flags().GetString("context")
	rescore, _ := cmd.Flags().GetBool("rescore")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	logger := logger.WithRunFields(env.logger, uuid.NewString(), subjectID, contextID)

	r := env.loadRoster()

	profiles, errs := r.Profiles()
	for _, err := range errs {
		logger.Warn("skipping invalid roster record", zap.Error(err))
	}

	var candidates *filtering.Candidates
	for _, p := range profiles {
		if p.ID() == subjectID {
			candidates = filtering.NewCandidates(p, profiles)
			break
		}
	}
	if candidates == nil {
		logger.Fatal("traveler not found in roster", zap.String("id", subjectID))
	}

	steps := []filtering.Filter{
		filtering.NewSelf(),
		filtering.NewExcluded(env.config.Match.Exclude),
		filtering.NewAlreadyMatched(
			&filtering.AlreadyMatchedConfig{ContextID: contextID, Ignore: rescore},
			&filtering.AlreadyMatchedDeps{Store: env.repo, Logger: logger},
		),
		filtering.NewCompatibility(
			&filtering.CompatibilityConfig{
				MinimumScore: env.config.Match.MinimumScore,
				Concurrency:  env.config.Match.Concurrency,
			},
			&filtering.CompatibilityDeps{Evaluator: env.engine, Logger: logger},
		),
	}

	filtered, err := filtering.Run(ctx, logger, env.metrics, steps, candidates)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	results := filtered.Ranked()
	if len(results) == 0 {
		logger.Info("exiting", zap.String("reason", "no travelers left after filters"))
		return
	}

	action := PromptYes
	for {
		var err error
		if !autoApprove {
			_, action, err = prompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		logger.Info("current list of matches", zap.Int("count", len(results)))

		if err := handleAction(ctx, action, env.engine, logger, contextID, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if autoApprove {
			return
		}
	}
}

func handleAction(ctx context.Context, action string, engine *matching.Engine, logger *zap.Logger, contextID string, results []*matching.Result) error {
	switch action {
	case PromptYes:
		if err := record(ctx, engine, logger, contextID, results); err != nil {
			return err
		}
		return errExit
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReportByLevel:
		pretty, _ := json.MarshalIndent(roster.Report(results), "", "  ")
		logger.Info(string(pretty), zap.Int("matches count", len(results)))
		return nil
	case PromptMatchesToFile:
		filename, err := roster.DumpToTmpFile(results)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func record(ctx context.Context, engine *matching.Engine, logger *zap.Logger, contextID string, results []*matching.Result) error {
	counts := make(map[store.Outcome]int)
	for _, res := range results {
		outcome, err := engine.Record(ctx, contextID, res)
		if err != nil {
			return fmt.Errorf("storing match with %s: %w", res.Counterpart.ID(), err)
		}
		counts[outcome]++
	}

	logger.Info("successfully stored matches",
		zap.Int("created", counts[store.OutcomeCreated]),
		zap.Int("merged", counts[store.OutcomeMerged]),
		zap.Int("duplicate", counts[store.OutcomeDuplicate]),
	)
	return nil
}
