package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/logger"
)

var queryCmd = &cobra.Command{
	Use:   "query [text...]",
	Short: "Rank one side against ad-hoc text without persisting anything",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringP("side", "s", "engineer", "side to search: job or engineer")
	queryCmd.Flags().IntP("top", "t", 5, "number of candidates to return")
}

func query(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	a, err := newAppContext(ctx)
	if err != nil {
		log.Fatalf("starting %s: %v", app, err)
	}
	defer a.Close()

	side, err := core.ParseKind(cmd.Flag("side").Value.String())
	if err != nil {
		a.logger.Fatal("parsing side flag", zap.Error(err))
	}

	topK, err := cmd.Flags().GetInt("top")
	if err != nil || topK <= 0 {
		a.logger.Fatal("a positive --top is required", zap.Error(err))
	}

	text := strings.TrimSpace(strings.Join(args, " "))

	candidates, err := a.matcher.Query(ctx, text, core.QueryOptions{Side: side, TopK: topK})
	if err != nil {
		a.logger.Fatal("querying", zap.Error(err))
	}

	if candidates.Len() == 0 {
		fmt.Println("no candidates found")
		return
	}

	for i, c := range candidates.Items {
		fmt.Printf("%d. %s %d score=%.1f grade=%s %s\n",
			i+1, c.Doc.Kind, c.ID, c.Score, c.Grade,
			logger.TruncateForLog(c.Doc.Text, 80),
		)
	}
}
