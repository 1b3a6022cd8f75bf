// Package ai defines the provider-neutral contracts the matching core
// depends on. Concrete implementations live in subpackages.
package ai

import "context"

// Embedder turns text into a fixed-dimension unit-normalized vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Extraction is the structured record pulled out of a raw document text.
// All fields are plain strings: provider output that arrives as objects is
// flattened at this boundary and never carried deeper as ambiguous types.
type Extraction struct {
	Title    string
	Summary  string
	Keywords []string
}

// Extractor derives a structured record from free-form document text.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// Explanation describes why a job and an engineer do or do not fit.
type Explanation struct {
	PositivePoints []string
	ConcernPoints  []string
	Summary        string
}

// Explainer produces a human-readable assessment of one pairing.
type Explainer interface {
	Explain(ctx context.Context, jobText, engineerText string) (*Explanation, error)
}
