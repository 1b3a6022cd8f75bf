package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/ai/gemini"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [text...]",
	Short: "Register job postings or engineer profiles and match them against the opposite side",
	Run: func(cmd *cobra.Command, args []string) {
		ingest(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("kind", "k", "", "document kind: job or engineer (required)")
	ingestCmd.Flags().StringArrayP("file", "f", nil, "file with document text, repeatable")
	ingestCmd.Flags().Bool("skip-keywords", false, "do not extract keywords for the new documents")

	ingestCmd.MarkFlagRequired("kind")
}

func ingest(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	a, err := newAppContext(ctx)
	if err != nil {
		log.Fatalf("starting %s: %v", app, err)
	}
	defer a.Close()

	kind, err := core.ParseKind(cmd.Flag("kind").Value.String())
	if err != nil {
		a.logger.Fatal("parsing kind flag", zap.Error(err))
	}

	texts, err := collectTexts(cmd, args)
	if err != nil {
		a.logger.Fatal("collecting document texts", zap.Error(err))
	}
	if len(texts) == 0 {
		a.logger.Fatal("nothing to ingest", zap.String("hint", "pass texts as arguments or use --file"))
	}

	docs := make([]*core.Document, 0, len(texts))
	for _, text := range texts {
		docs = append(docs, &core.Document{Kind: kind, Text: text})
	}

	if skip, _ := cmd.Flags().GetBool("skip-keywords"); !skip {
		extractKeywords(ctx, a, docs)
	}

	matches, err := a.matcher.IngestBatch(ctx, docs)
	if err != nil {
		a.logger.Fatal("ingesting documents", zap.Error(err))
	}

	for _, doc := range docs {
		a.logger.Info("document registered",
			zap.Int64("document_id", doc.ID),
			zap.String("kind", string(doc.Kind)),
			zap.Strings("keywords", doc.Keywords),
		)
	}

	if matches.Len() == 0 {
		fmt.Println("no matches found")
		return
	}

	fmt.Printf("created %d matches:\n", matches.Len())
	for _, m := range matches.Items {
		fmt.Printf("  #%d job=%d engineer=%d score=%.1f grade=%s\n",
			m.ID, m.JobID, m.EngineerID, m.Score, m.Grade)
	}
}

// extractKeywords enriches the documents in place. Extraction failures are
// logged and skipped, ingestion proceeds without keywords.
func extractKeywords(ctx context.Context, a *appContext, docs []*core.Document) {
	extractor := gemini.NewExtractor(a.generator, a.logger, a.config.AI.Gemini.MaxLogLength)

	for _, doc := range docs {
		extraction, err := extractor.Extract(ctx, doc.Text)
		if err != nil {
			a.logger.Warn("keyword extraction failed, continuing without keywords", zap.Error(err))
			continue
		}
		doc.Keywords = extraction.Keywords
	}
}

func collectTexts(cmd *cobra.Command, args []string) ([]string, error) {
	var texts []string

	files, err := cmd.Flags().GetStringArray("file")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", file, err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			texts = append(texts, text)
		}
	}

	for _, arg := range args {
		if text := strings.TrimSpace(arg); text != "" {
			texts = append(texts, text)
		}
	}

	return texts, nil
}
