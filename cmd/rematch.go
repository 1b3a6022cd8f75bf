package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var rematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Clear all matches for a job and regenerate them against the full engineer population",
	Run: func(cmd *cobra.Command, _ []string) {
		rematch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rematchCmd)

	rematchCmd.Flags().Int64("job", 0, "job document id (required)")
	rematchCmd.Flags().String("target-rank", "C", "worst acceptable grade (S..E)")
	rematchCmd.Flags().Int("target-count", 5, "number of matches to produce")
	rematchCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	rematchCmd.MarkFlagRequired("job")
}

func rematch(cmd *cobra.Command) {
	ctx := context.Background()

	a, err := newAppContext(ctx)
	if err != nil {
		log.Fatalf("starting %s: %v", app, err)
	}
	defer a.Close()

	jobID, err := cmd.Flags().GetInt64("job")
	if err != nil || jobID <= 0 {
		a.logger.Fatal("a positive --job id is required", zap.Error(err))
	}

	targetRank, err := core.ParseGrade(cmd.Flag("target-rank").Value.String())
	if err != nil {
		a.logger.Fatal("parsing target-rank flag", zap.Error(err))
	}

	targetCount, err := cmd.Flags().GetInt("target-count")
	if err != nil || targetCount <= 0 {
		a.logger.Fatal("a positive --target-count is required", zap.Error(err))
	}

	if autoApprove, _ := cmd.Flags().GetBool("yes"); !autoApprove {
		prompt := promptui.Select{
			Label: fmt.Sprintf("This deletes all existing matches for job %d. Proceed?", jobID),
			Items: []string{PromptYes, PromptNo},
		}
		_, action, err := prompt.Run()
		if err != nil {
			a.logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			a.logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	result, err := a.matcher.Rematch(ctx, jobID, core.RematchOptions{
		TargetRank:  targetRank,
		TargetCount: targetCount,
	})
	if err != nil {
		a.logger.Fatal("rematching", zap.Int64("job_id", jobID), zap.Error(err))
	}

	fmt.Printf("job %d: %d matches", jobID, result.Matches.Len())
	if !result.Complete {
		fmt.Printf(" (candidate pool exhausted before reaching %d)", targetCount)
	}
	fmt.Println()
	for _, m := range result.Matches.Items {
		fmt.Printf("  #%d engineer=%d score=%.1f grade=%s\n", m.ID, m.EngineerID, m.Score, m.Grade)
	}
}
