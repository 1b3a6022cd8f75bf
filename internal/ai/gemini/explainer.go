package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/ai"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/logger"
)

//go:embed explain_prompt.md
var explainPromptTemplate string

// Explainer asks the model to assess a single job/engineer pairing.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExplainer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Explainer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (e *Explainer) Explain(ctx context.Context, jobText, engineerText string) (*ai.Explanation, error) {
	jobText = strings.TrimSpace(jobText)
	engineerText = strings.TrimSpace(engineerText)
	if jobText == "" || engineerText == "" {
		return nil, fmt.Errorf("%w: both job and engineer texts are required", core.ErrInvalidArgument)
	}

	prompt := strings.ReplaceAll(explainPromptTemplate, "{{JOB_TEXT}}", jobText)
	prompt = strings.ReplaceAll(prompt, "{{ENGINEER_TEXT}}", engineerText)

	e.logger.Debug("gemini explain request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}

	e.logger.Debug("gemini explain response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseExplanation(raw)
}

func parseExplanation(raw string) (*ai.Explanation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: parse explanation response: %v", core.ErrProviderUnavailable, err)
	}

	return &ai.Explanation{
		PositivePoints: coerceStrings(data["positive_points"]),
		ConcernPoints:  coerceStrings(data["concern_points"]),
		Summary:        coerceString(data["summary"]),
	}, nil
}
