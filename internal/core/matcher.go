package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/ai"
)

// noMatchID is the sentinel some index implementations return for padded
// result slots.
const noMatchID int64 = -1

// MatcherDeps aggregates everything the matcher needs. Logger and
// OnProgress are optional; the rest is required.
type MatcherDeps struct {
	Docs       DocumentStore
	Matches    MatchRepository
	Jobs       VectorIndex
	Engineers  VectorIndex
	Embedder   ai.Embedder
	Grader     *Grader
	Logger     *zap.Logger
	OnProgress ProgressFunc
}

// Matcher turns raw document text into persisted, graded matches against
// the opposite-side index.
type Matcher struct {
	docs       DocumentStore
	matches    MatchRepository
	jobs       VectorIndex
	engineers  VectorIndex
	embedder   ai.Embedder
	grader     *Grader
	logger     *zap.Logger
	onProgress ProgressFunc
}

// NewMatcher validates the dependencies and builds a matcher.
func NewMatcher(deps *MatcherDeps) (*Matcher, error) {
	if deps == nil {
		return nil, fmt.Errorf("%w: matcher deps are required", ErrInvalidArgument)
	}
	if deps.Docs == nil || deps.Matches == nil {
		return nil, fmt.Errorf("%w: document store and match repository are required", ErrInvalidArgument)
	}
	if deps.Jobs == nil || deps.Engineers == nil {
		return nil, fmt.Errorf("%w: both vector indexes are required", ErrInvalidArgument)
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidArgument)
	}

	grader := deps.Grader
	if grader == nil {
		grader = MustDefaultGrader()
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		docs:       deps.Docs,
		matches:    deps.Matches,
		jobs:       deps.Jobs,
		engineers:  deps.Engineers,
		embedder:   deps.Embedder,
		grader:     grader,
		logger:     logger,
		onProgress: deps.OnProgress,
	}, nil
}

func (m *Matcher) indexFor(kind Kind) VectorIndex {
	if kind == KindJob {
		return m.jobs
	}
	return m.engineers
}

// IngestAndMatch registers a single new document, indexes its vector and
// persists graded matches found on the opposite side.
func (m *Matcher) IngestAndMatch(ctx context.Context, doc *Document) (*Matches, error) {
	return m.IngestBatch(ctx, []*Document{doc})
}

// IngestBatch processes documents sequentially in arrival order. Each
// document is indexed before the next one is matched, so two documents
// submitted in the same batch can match each other regardless of order.
func (m *Matcher) IngestBatch(ctx context.Context, docs []*Document) (*Matches, error) {
	if len(docs) == 0 {
		return &Matches{}, nil
	}

	existing := map[Kind]map[int64]struct{}{}
	for _, kind := range []Kind{KindJob, KindEngineer} {
		ids, err := m.listExisting(ctx, kind)
		if err != nil {
			return nil, err
		}
		existing[kind] = ids
	}

	batchID := uuid.NewString()
	all := &Matches{}

	for _, doc := range docs {
		matched, err := m.ingestAndMatch(ctx, batchID, doc, existing[doc.Kind.Opposite()])
		if err != nil {
			return all, err
		}
		// Make the new document discoverable by the rest of the batch.
		existing[doc.Kind][doc.ID] = struct{}{}
		all.Items = append(all.Items, matched.Items...)
	}

	return all, nil
}

func (m *Matcher) ingestAndMatch(ctx context.Context, batchID string, doc *Document, existingOpposite map[int64]struct{}) (*Matches, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: document text must not be empty", ErrInvalidArgument)
	}

	// Embedding comes first: a provider failure must abort before anything
	// is written.
	vector, err := m.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return nil, fmt.Errorf("embed %s document: %w", doc.Kind, err)
	}
	m.emit(Event{Kind: EventEmbedded, BatchID: batchID, DocumentID: doc.ID})

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	// Stored as pending until the vector is durably indexed, so a failure
	// between the two writes stays discoverable.
	doc.PendingIndex = true

	id, err := m.docs.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("store %s document: %w", doc.Kind, err)
	}
	doc.ID = id

	if err := m.indexFor(doc.Kind).Add([]int64{id}, [][]float32{vector}); err != nil {
		m.logger.Error("document stored but not indexed; left pending for reconciliation",
			zap.Int64("document_id", id),
			zap.String("kind", string(doc.Kind)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("index %s document %d: %w", doc.Kind, id, err)
	}

	if err := m.docs.SetPendingIndex(ctx, id, false); err != nil {
		// The vector is indexed; a stale pending flag only causes a
		// harmless re-add on the next reconciliation.
		m.logger.Warn("clearing pending-index flag failed",
			zap.Int64("document_id", id),
			zap.Error(err),
		)
	} else {
		doc.PendingIndex = false
	}
	m.emit(Event{Kind: EventIndexed, BatchID: batchID, DocumentID: id})

	topK := len(existingOpposite)
	if topK < 1 {
		topK = 1
	}

	hits, err := m.indexFor(doc.Kind.Opposite()).Search(vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s index: %w", doc.Kind.Opposite(), err)
	}

	matched := &Matches{}
	for _, hit := range hits {
		if hit.ID == noMatchID {
			continue
		}
		if _, ok := existingOpposite[hit.ID]; !ok {
			// Index/store drift: skip the candidate instead of failing
			// the whole batch.
			m.logger.Warn("skipping candidate unknown to the document store",
				zap.Int64("candidate_id", hit.ID),
				zap.Float64("distance", hit.Distance),
			)
			m.emit(Event{Kind: EventSkipped, BatchID: batchID, DocumentID: hit.ID, Reason: "unknown candidate id"})
			continue
		}

		jobID, engineerID := pairFor(doc, hit.ID)

		occupied, err := m.matches.ExistsLive(ctx, jobID, engineerID)
		if err != nil {
			return matched, fmt.Errorf("check existing match: %w", err)
		}
		if occupied {
			m.emit(Event{Kind: EventSkipped, BatchID: batchID, JobID: jobID, EngineerID: engineerID, Reason: "pair occupied"})
			continue
		}

		score := ScoreFromDistance(hit.Distance)
		match := &Match{
			JobID:      jobID,
			EngineerID: engineerID,
			Score:      score,
			Grade:      m.grader.Grade(score),
			CreatedAt:  time.Now().UTC(),
			Status:     StatusNew,
		}

		matchID, err := m.matches.Insert(ctx, match)
		if err != nil {
			return matched, fmt.Errorf("insert match (job %d, engineer %d): %w", jobID, engineerID, err)
		}
		match.ID = matchID

		m.logger.Info("match created",
			zap.Int64("job_id", jobID),
			zap.Int64("engineer_id", engineerID),
			zap.Float64("score", match.Score),
			zap.String("grade", string(match.Grade)),
		)
		m.emit(Event{Kind: EventMatched, BatchID: batchID, JobID: jobID, EngineerID: engineerID, Score: match.Score, Grade: match.Grade})

		matched.Items = append(matched.Items, match)
	}

	return matched, nil
}

// RematchOptions bound a clear-and-rematch run.
type RematchOptions struct {
	// TargetRank is the worst acceptable grade. Empty means accept any.
	TargetRank Grade
	// TargetCount stops the run once this many matches are accepted.
	TargetCount int
}

// RematchResult reports what a rematch run produced. Complete is false when
// the candidate pool was exhausted before TargetCount was reached.
type RematchResult struct {
	Matches  *Matches
	Complete bool
}

// Rematch clears all matches for the given job and regenerates them against
// the full engineer population, keyword-narrowed, stopping as soon as
// TargetCount matches at or above TargetRank are collected.
func (m *Matcher) Rematch(ctx context.Context, jobID int64, opts RematchOptions) (*RematchResult, error) {
	if opts.TargetCount <= 0 {
		return nil, fmt.Errorf("%w: target count must be positive", ErrInvalidArgument)
	}
	targetRank := opts.TargetRank
	if targetRank == "" {
		targetRank = GradeE
	}
	if _, ok := gradeRanks[targetRank]; !ok {
		return nil, fmt.Errorf("%w: unknown target rank %q", ErrInvalidArgument, targetRank)
	}

	job, err := m.docs.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", jobID, err)
	}
	if job.Kind != KindJob {
		return nil, fmt.Errorf("%w: document %d is not a job", ErrInvalidArgument, jobID)
	}

	vector, err := m.embedder.Embed(ctx, job.Text)
	if err != nil {
		return nil, fmt.Errorf("embed job: %w", err)
	}

	batchID := uuid.NewString()

	if err := m.matches.ClearForJob(ctx, jobID); err != nil {
		return nil, fmt.Errorf("clear matches for job %d: %w", jobID, err)
	}
	m.emit(Event{Kind: EventCleared, BatchID: batchID, JobID: jobID})

	candidates, err := m.collectCandidates(ctx, vector, KindEngineer)
	if err != nil {
		return nil, err
	}

	deps := FilterDeps{Job: job, Logger: m.logger}
	candidates, err = RunFilters(deps, []Filter{NewVisibilityFilter(), NewKeywordFilter()}, candidates)
	if err != nil {
		return nil, err
	}

	result := &RematchResult{Matches: &Matches{}}
	for _, candidate := range candidates.Items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Candidates arrive in descending similarity and grading is
		// monotonic, so the first miss ends the scan.
		if !candidate.Grade.AtLeast(targetRank) {
			break
		}

		occupied, err := m.matches.ExistsLive(ctx, jobID, candidate.ID)
		if err != nil {
			return result, fmt.Errorf("check existing match: %w", err)
		}
		if occupied {
			continue
		}

		match := &Match{
			JobID:      jobID,
			EngineerID: candidate.ID,
			Score:      candidate.Score,
			Grade:      candidate.Grade,
			CreatedAt:  time.Now().UTC(),
			Status:     StatusNew,
		}
		matchID, err := m.matches.Insert(ctx, match)
		if err != nil {
			return result, fmt.Errorf("insert match (job %d, engineer %d): %w", jobID, candidate.ID, err)
		}
		match.ID = matchID

		m.emit(Event{Kind: EventMatched, BatchID: batchID, JobID: jobID, EngineerID: candidate.ID, Score: match.Score, Grade: match.Grade})
		result.Matches.Items = append(result.Matches.Items, match)

		if result.Matches.Len() >= opts.TargetCount {
			result.Complete = true
			return result, nil
		}
	}

	m.logger.Info("rematch exhausted the candidate pool",
		zap.Int64("job_id", jobID),
		zap.Int("accepted", result.Matches.Len()),
		zap.Int("target_count", opts.TargetCount),
		zap.String("target_rank", string(targetRank)),
	)
	return result, nil
}

// QueryOptions shape an ad-hoc, non-persisting match query.
type QueryOptions struct {
	// Side selects which index to search.
	Side Kind
	TopK int
}

// Query embeds raw text and returns ranked candidates from one side without
// persisting anything.
func (m *Matcher) Query(ctx context.Context, text string, opts QueryOptions) (*Candidates, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text must not be empty", ErrInvalidArgument)
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive", ErrInvalidArgument)
	}
	if opts.Side != KindJob && opts.Side != KindEngineer {
		return nil, fmt.Errorf("%w: unknown query side %q", ErrInvalidArgument, opts.Side)
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := m.collectCandidates(ctx, vector, opts.Side)
	if err != nil {
		return nil, err
	}
	if candidates.Len() > opts.TopK {
		candidates.Items = candidates.Items[:opts.TopK]
	}
	return candidates, nil
}

// collectCandidates searches one side for the full known population and
// resolves hits into scored, graded candidates, skipping drifted ids.
func (m *Matcher) collectCandidates(ctx context.Context, vector []float32, side Kind) (*Candidates, error) {
	existing, err := m.listExisting(ctx, side)
	if err != nil {
		return nil, err
	}

	topK := len(existing)
	if topK < 1 {
		topK = 1
	}

	hits, err := m.indexFor(side).Search(vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s index: %w", side, err)
	}

	candidates := &Candidates{}
	for _, hit := range hits {
		if hit.ID == noMatchID {
			continue
		}
		if _, ok := existing[hit.ID]; !ok {
			m.logger.Warn("skipping candidate unknown to the document store",
				zap.Int64("candidate_id", hit.ID),
				zap.Float64("distance", hit.Distance),
			)
			continue
		}

		doc, err := m.docs.Get(ctx, hit.ID)
		if err != nil {
			m.logger.Warn("skipping candidate that failed to load",
				zap.Int64("candidate_id", hit.ID),
				zap.Error(err),
			)
			continue
		}

		score := ScoreFromDistance(hit.Distance)
		candidates.Items = append(candidates.Items, &Candidate{
			ID:       hit.ID,
			Doc:      doc,
			Distance: hit.Distance,
			Score:    score,
			Grade:    m.grader.Grade(score),
		})
	}

	return candidates, nil
}

func (m *Matcher) listExisting(ctx context.Context, kind Kind) (map[int64]struct{}, error) {
	ids, err := m.docs.ListIDs(ctx, DocumentFilter{Kind: kind, IncludeHidden: true})
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", kind, err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func pairFor(doc *Document, otherID int64) (jobID, engineerID int64) {
	if doc.Kind == KindJob {
		return doc.ID, otherID
	}
	return otherID, doc.ID
}

// IsRetryable reports whether an error is worth retrying at the caller's
// discretion.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
