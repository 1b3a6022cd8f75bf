package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status tracks a match through the proposal lifecycle.
type Status string

const (
	StatusNew              Status = "new"
	StatusProposalPrepared Status = "proposal_prepared"
	StatusAwaitingResult   Status = "awaiting_result"
	StatusAdopted          Status = "adopted"
	StatusRejected         Status = "rejected"
)

// ParseStatus converts a user-supplied string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusNew:
		return StatusNew, nil
	case StatusProposalPrepared:
		return StatusProposalPrepared, nil
	case StatusAwaitingResult:
		return StatusAwaitingResult, nil
	case StatusAdopted:
		return StatusAdopted, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: unknown match status %q", ErrInvalidArgument, s)
	}
}

// Match is a scored, graded association between one job and one engineer.
// At most one row exists per (job, engineer) pair; hidden rows still occupy
// the pair and block regeneration until cleared.
type Match struct {
	ID         int64
	JobID      int64
	EngineerID int64
	Score      float64
	Grade      Grade
	CreatedAt  time.Time
	IsHidden   bool
	Status     Status
}

// Matches is a list container for match rows.
type Matches struct {
	Items []*Match
}

func (m *Matches) Len() int {
	return len(m.Items)
}

func (m *Matches) FindByPair(jobID, engineerID int64) *Match {
	for _, match := range m.Items {
		if match.JobID == jobID && match.EngineerID == engineerID {
			return match
		}
	}
	return nil
}

// MatchRepository is the durable record of computed matches.
//
// ExistsLive reports whether the pair is occupied by any non-superseded row.
// Hidden rows count: hiding is user suppression, not deletion, so a hidden
// pair must not be regenerated until explicitly cleared.
type MatchRepository interface {
	Insert(ctx context.Context, match *Match) (int64, error)
	ExistsLive(ctx context.Context, jobID, engineerID int64) (bool, error)
	ClearForJob(ctx context.Context, jobID int64) error
	ClearForEngineer(ctx context.Context, engineerID int64) error
	SetHidden(ctx context.Context, matchID int64, hidden bool) error
	SetStatus(ctx context.Context, matchID int64, status Status) error
	ListForJob(ctx context.Context, jobID int64) (*Matches, error)
	ListForEngineer(ctx context.Context, engineerID int64) (*Matches, error)
}

// Hit is a single nearest-neighbour result: L2 distance and the document id
// the vector was registered under.
type Hit struct {
	Distance float64
	ID       int64
}

// VectorIndex is an incrementally updatable nearest-neighbour index over
// (id, vector) pairs. Search returns hits ordered by ascending distance; a
// missing or empty index yields an empty result, not an error.
type VectorIndex interface {
	Add(ids []int64, vectors [][]float32) error
	Search(query []float32, topK int) ([]Hit, error)
	Size() int
}

// Similarity converts an L2 distance into a similarity in [0, 1].
// This is an approximation that holds only because embeddings are
// unit-normalized before indexing; it is not a cosine similarity bound.
func Similarity(distance float64) float64 {
	return 1 - distance
}

// ScoreFromDistance converts a distance into a percentage score, clamped to
// [0, 100] so non-unit vectors cannot push scores out of range.
func ScoreFromDistance(distance float64) float64 {
	return ClampScore(Similarity(distance) * 100)
}
