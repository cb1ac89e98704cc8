package cmd

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/logger"
)

var matchCmd = &cobra.Command{
	Use:   "match <subject-id> <counterpart-id>",
	Short: "Score two travelers from the roster and store the match",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("context", "c", "", "trip or event id the match belongs to")
	matchCmd.Flags().Bool("dry-run", false, "print the analysis without storing it")
}

func runMatch(cmd *cobra.Command, subjectID, counterpartID string) {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	contextID, _ := cmd.Flags().GetString("context")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if contextID == "" && !dryRun {
		env.logger.Fatal("--context is required unless --dry-run is set")
	}

	r := env.loadRoster()

	subject, ok := r.FindByID(subjectID)
	if !ok {
		env.logger.Fatal("traveler not found in roster", zap.String("id", subjectID))
	}
	counterpart, ok := r.FindByID(counterpartID)
	if !ok {
		env.logger.Fatal("traveler not found in roster", zap.String("id", counterpartID))
	}

	res, err := env.engine.Evaluate(ctx, subject, counterpart)
	if err != nil {
		env.logger.Fatal("evaluating travelers", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(map[string]any{
		"analysis": res.Analysis,
		"summary":  res.Summary,
	}, "", "  ")
	if err != nil {
		env.logger.Fatal("encoding result", zap.Error(err))
	}
	fmt.Println(string(pretty))

	if dryRun {
		env.logger.Info("dry run, match is not stored")
		return
	}

	outcome, err := env.engine.Record(ctx, contextID, res)
	if err != nil {
		env.logger.Fatal("storing match", zap.Error(err))
	}

	env.logger.Info("done", append(logger.MatchFields(subjectID, counterpartID, contextID),
		zap.String("outcome", string(outcome)),
	)...)
}
