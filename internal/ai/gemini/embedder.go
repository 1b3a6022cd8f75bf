package gemini

import (
	"context"
	"fmt"
	"math"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

type embeddingGenerator interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Embedder produces unit-normalized embedding vectors via the Gemini API.
type Embedder struct {
	generator embeddingGenerator
}

func NewEmbedder(generator embeddingGenerator) *Embedder {
	return &Embedder{generator: generator}
}

// Embed returns the embedding of the text, scaled to unit length so that L2
// distances between vectors stay comparable across texts.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.generator.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	return normalize(vec), nil
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
