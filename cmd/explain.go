package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/ai/gemini"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Ask the model why a job and an engineer do or do not fit",
	Run: func(cmd *cobra.Command, _ []string) {
		explain(cmd)
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().Int64("job", 0, "job document id (required)")
	explainCmd.Flags().Int64("engineer", 0, "engineer document id (required)")

	explainCmd.MarkFlagRequired("job")
	explainCmd.MarkFlagRequired("engineer")
}

func explain(cmd *cobra.Command) {
	ctx := context.Background()

	a, err := newAppContext(ctx)
	if err != nil {
		log.Fatalf("starting %s: %v", app, err)
	}
	defer a.Close()

	jobID, _ := cmd.Flags().GetInt64("job")
	engineerID, _ := cmd.Flags().GetInt64("engineer")

	job, err := loadKind(ctx, a, jobID, core.KindJob)
	if err != nil {
		a.logger.Fatal("loading job", zap.Error(err))
	}
	engineer, err := loadKind(ctx, a, engineerID, core.KindEngineer)
	if err != nil {
		a.logger.Fatal("loading engineer", zap.Error(err))
	}

	explainer := gemini.NewExplainer(a.generator, a.logger, a.config.AI.Gemini.MaxLogLength)

	explanation, err := explainer.Explain(ctx, job.Text, engineer.Text)
	if err != nil {
		a.logger.Fatal("explaining pairing",
			zap.Int64("job_id", jobID),
			zap.Int64("engineer_id", engineerID),
			zap.Error(err),
		)
	}

	fmt.Printf("job %d / engineer %d\n\n", jobID, engineerID)
	if len(explanation.PositivePoints) > 0 {
		fmt.Println("strengths:")
		for _, p := range explanation.PositivePoints {
			fmt.Printf("  + %s\n", p)
		}
	}
	if len(explanation.ConcernPoints) > 0 {
		fmt.Println("concerns:")
		for _, p := range explanation.ConcernPoints {
			fmt.Printf("  - %s\n", p)
		}
	}
	if explanation.Summary != "" {
		fmt.Printf("\n%s\n", explanation.Summary)
	}
}

func loadKind(ctx context.Context, a *appContext, id int64, kind core.Kind) (*core.Document, error) {
	doc, err := a.store.Documents().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Kind != kind {
		return nil, fmt.Errorf("%w: document %d is a %s, expected %s", core.ErrInvalidArgument, id, doc.Kind, kind)
	}
	return doc, nil
}
