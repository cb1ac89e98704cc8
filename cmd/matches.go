package cmd

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/compat"
)

var matchesCmd = &cobra.Command{
	Use:   "matches <user-id>",
	Short: "List stored matches of a traveler within a context",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMatches(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(matchesCmd)

	matchesCmd.Flags().StringP("context", "c", "", "trip or event id")
	matchesCmd.MarkFlagRequired("context")
}

type storedMatch struct {
	MatchedUserID string         `json:"matched_user_id"`
	MatchScore    int            `json:"match_score"`
	CreatedAt     string         `json:"created_at"`
	Summary       compat.Summary `json:"summary"`
}

func runMatches(cmd *cobra.Command, userID string) {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	contextID, _ := cmd.Flags().GetString("context")

	entries, err := env.engine.Matches(ctx, userID, contextID)
	if err != nil {
		env.logger.Fatal("listing matches", zap.Error(err))
	}

	out := make([]storedMatch, 0, len(entries))
	for _, entry := range entries {
		out = append(out, storedMatch{
			MatchedUserID: entry.MatchedUserID,
			MatchScore:    entry.MatchScore,
			CreatedAt:     entry.CreatedAt.Format("2006-01-02 15:04:05"),
			Summary:       compat.Summarize(&entry.Analysis),
		})
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		env.logger.Fatal("encoding matches", zap.Error(err))
	}
	fmt.Println(string(pretty))

	env.logger.Info("stored matches", zap.String("user_id", userID), zap.String("context_id", contextID), zap.Int("count", len(out)))
}
