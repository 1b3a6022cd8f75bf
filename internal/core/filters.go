package core

import (
	"fmt"

	"go.uber.org/zap"
)

// Candidate is one scored search result awaiting filtering and acceptance.
type Candidate struct {
	ID       int64
	Doc      *Document
	Distance float64
	Score    float64
	Grade    Grade
}

// Candidates is an ordered list container, best candidate first.
type Candidates struct {
	Items []*Candidate
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

// Filter represents a single narrowing step applied to candidates.
type Filter interface {
	Name() string
	Apply(deps FilterDeps, c *Candidates) (*Candidates, Step, error)
}

// FilterDeps aggregates dependencies shared across all filtering steps.
type FilterDeps struct {
	Job    *Document
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// RunFilters executes the supplied filters sequentially, logging each step.
func RunFilters(deps FilterDeps, steps []Filter, c *Candidates) (*Candidates, error) {
	for _, step := range steps {
		next, info, err := step.Apply(deps, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		c = next
	}

	return c, nil
}

type visibilityFilter struct{}

// NewVisibilityFilter creates a filter that drops hidden candidates.
func NewVisibilityFilter() Filter {
	return &visibilityFilter{}
}

func (f *visibilityFilter) Name() string { return "visibility" }

func (f *visibilityFilter) Apply(_ FilterDeps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	kept := make([]*Candidate, 0, initial)
	for _, candidate := range c.Items {
		if candidate.Doc != nil && candidate.Doc.IsHidden {
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept
	return c, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

type keywordFilter struct{}

// NewKeywordFilter creates a filter that keeps only candidates whose
// extracted keywords intersect the job's. A job without keywords disables
// the step rather than dropping everything.
func NewKeywordFilter() Filter {
	return &keywordFilter{}
}

func (f *keywordFilter) Name() string { return "keywords" }

func (f *keywordFilter) Apply(deps FilterDeps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	if deps.Job == nil || len(deps.Job.Keywords) == 0 {
		return c, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := make([]*Candidate, 0, initial)
	for _, candidate := range c.Items {
		if candidate.Doc == nil || !KeywordsIntersect(deps.Job.Keywords, candidate.Doc.Keywords) {
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept
	return c, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}
