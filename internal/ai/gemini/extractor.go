package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/ai"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/logger"
)

//go:embed extract_prompt.md
var extractPromptTemplate string

const defaultMaxLogLength = 200

// Extractor pulls a title, a summary and up to three keywords out of raw
// document text.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

func NewExtractor(generator contentGenerator, log *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Extractor{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (e *Extractor) Extract(ctx context.Context, text string) (*ai.Extraction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: document text is empty", core.ErrInvalidArgument)
	}

	prompt := strings.ReplaceAll(extractPromptTemplate, "{{DOCUMENT_TEXT}}", text)

	e.logger.Debug("gemini extract request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}

	e.logger.Debug("gemini extract response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseExtraction(raw)
}

func parseExtraction(raw string) (*ai.Extraction, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: parse extraction response: %v", core.ErrProviderUnavailable, err)
	}

	// Weak typing absorbs models that answer with numbers or booleans where
	// strings were asked for. Keywords stay untyped, the shapes vary too much.
	var payload struct {
		Title    string `mapstructure:"title"`
		Summary  string `mapstructure:"summary"`
		Keywords any    `mapstructure:"keywords"`
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: build extraction decoder: %v", core.ErrProviderUnavailable, err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: decode extraction response: %v", core.ErrProviderUnavailable, err)
	}

	return &ai.Extraction{
		Title:    strings.TrimSpace(payload.Title),
		Summary:  strings.TrimSpace(payload.Summary),
		Keywords: core.NormalizeKeywords(coerceStrings(payload.Keywords)),
	}, nil
}
