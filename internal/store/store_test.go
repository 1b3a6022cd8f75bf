package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createDoc(t *testing.T, s *Store, kind core.Kind, text string) int64 {
	t.Helper()

	id, err := s.Documents().Create(context.Background(), &core.Document{Kind: kind, Text: text})
	if err != nil {
		t.Fatalf("creating %s document: %v", kind, err)
	}
	return id
}

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	doc := &core.Document{
		Kind:         core.KindJob,
		Text:         "senior go engineer wanted",
		Keywords:     []string{"go", "backend"},
		PendingIndex: true,
	}
	id, err := s.Documents().Create(ctx, doc)
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected a positive id, got %d", id)
	}

	got, err := s.Documents().Get(ctx, id)
	if err != nil {
		t.Fatalf("loading document: %v", err)
	}

	if got.Kind != core.KindJob || got.Text != doc.Text {
		t.Fatalf("unexpected document: %+v", got)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "go" {
		t.Fatalf("keywords did not survive the round trip: %v", got.Keywords)
	}
	if !got.PendingIndex {
		t.Fatal("pending flag did not survive the round trip")
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at should be populated")
	}
}

func TestDocumentUpdates(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	id := createDoc(t, s, core.KindEngineer, "initial text")

	if err := s.Documents().UpdateText(ctx, id, "revised text"); err != nil {
		t.Fatalf("updating text: %v", err)
	}
	if err := s.Documents().SetKeywords(ctx, id, []string{"rust"}); err != nil {
		t.Fatalf("setting keywords: %v", err)
	}
	if err := s.Documents().SetHidden(ctx, id, true); err != nil {
		t.Fatalf("hiding: %v", err)
	}
	if err := s.Documents().SetPendingIndex(ctx, id, true); err != nil {
		t.Fatalf("setting pending: %v", err)
	}

	got, err := s.Documents().Get(ctx, id)
	if err != nil {
		t.Fatalf("loading document: %v", err)
	}
	if got.Text != "revised text" || got.Keywords[0] != "rust" || !got.IsHidden || !got.PendingIndex {
		t.Fatalf("updates did not stick: %+v", got)
	}
}

func TestDocumentValidation(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Documents().Create(ctx, &core.Document{Kind: "manager", Text: "x"}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown kind, got %v", err)
	}
	if _, err := s.Documents().Create(ctx, &core.Document{Kind: core.KindJob}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty text, got %v", err)
	}
	if _, err := s.Documents().Get(ctx, 42); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for a missing id, got %v", err)
	}
	if err := s.Documents().SetHidden(ctx, 42, true); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument updating a missing id, got %v", err)
	}
}

func TestListIDsFilters(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	j1 := createDoc(t, s, core.KindJob, "job one")
	j2 := createDoc(t, s, core.KindJob, "job two")
	e1 := createDoc(t, s, core.KindEngineer, "engineer one")

	if err := s.Documents().SetHidden(ctx, j2, true); err != nil {
		t.Fatal(err)
	}
	if err := s.Documents().SetPendingIndex(ctx, e1, true); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter core.DocumentFilter
		expect []int64
	}{
		{
			name:   "visible jobs",
			filter: core.DocumentFilter{Kind: core.KindJob},
			expect: []int64{j1},
		},
		{
			name:   "all jobs",
			filter: core.DocumentFilter{Kind: core.KindJob, IncludeHidden: true},
			expect: []int64{j1, j2},
		},
		{
			name:   "pending only",
			filter: core.DocumentFilter{PendingOnly: true},
			expect: []int64{e1},
		},
		{
			name:   "limit and offset",
			filter: core.DocumentFilter{IncludeHidden: true, Limit: 1, Offset: 1},
			expect: []int64{j2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := s.Documents().ListIDs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("listing: %v", err)
			}
			if len(ids) != len(tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, ids)
			}
			for i := range ids {
				if ids[i] != tt.expect[i] {
					t.Fatalf("expected %v, got %v", tt.expect, ids)
				}
			}
		})
	}
}

func TestMatchInsertAndList(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	jobID := createDoc(t, s, core.KindJob, "job")
	engineerID := createDoc(t, s, core.KindEngineer, "engineer")

	match := &core.Match{JobID: jobID, EngineerID: engineerID, Score: 87.5, Grade: core.GradeA}
	id, err := s.Matches().Insert(ctx, match)
	if err != nil {
		t.Fatalf("inserting match: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected a positive match id, got %d", id)
	}

	byJob, err := s.Matches().ListForJob(ctx, jobID)
	if err != nil {
		t.Fatalf("listing by job: %v", err)
	}
	if byJob.Len() != 1 {
		t.Fatalf("expected 1 match, got %d", byJob.Len())
	}

	got := byJob.FindByPair(jobID, engineerID)
	if got == nil {
		t.Fatal("pair not found in listing")
	}
	if got.Score != 87.5 || got.Grade != core.GradeA || got.Status != core.StatusNew {
		t.Fatalf("unexpected match row: %+v", got)
	}

	byEngineer, err := s.Matches().ListForEngineer(ctx, engineerID)
	if err != nil {
		t.Fatalf("listing by engineer: %v", err)
	}
	if byEngineer.Len() != 1 {
		t.Fatalf("expected 1 match, got %d", byEngineer.Len())
	}
}

func TestMatchPairUniqueness(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	jobID := createDoc(t, s, core.KindJob, "job")
	engineerID := createDoc(t, s, core.KindEngineer, "engineer")

	if _, err := s.Matches().Insert(ctx, &core.Match{JobID: jobID, EngineerID: engineerID, Score: 90, Grade: core.GradeS}); err != nil {
		t.Fatalf("inserting match: %v", err)
	}
	_, err := s.Matches().Insert(ctx, &core.Match{JobID: jobID, EngineerID: engineerID, Score: 10, Grade: core.GradeE})
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for a duplicate pair, got %v", err)
	}
}

func TestMatchPairKindsValidated(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	jobID := createDoc(t, s, core.KindJob, "job")
	engineerID := createDoc(t, s, core.KindEngineer, "engineer")

	// Swapped sides must be rejected.
	_, err := s.Matches().Insert(ctx, &core.Match{JobID: engineerID, EngineerID: jobID, Score: 50, Grade: core.GradeC})
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for swapped kinds, got %v", err)
	}

	_, err = s.Matches().Insert(ctx, &core.Match{JobID: 99, EngineerID: engineerID, Score: 50, Grade: core.GradeC})
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for a missing job, got %v", err)
	}
}

func TestExistsLiveCountsHiddenRows(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	jobID := createDoc(t, s, core.KindJob, "job")
	engineerID := createDoc(t, s, core.KindEngineer, "engineer")

	occupied, err := s.Matches().ExistsLive(ctx, jobID, engineerID)
	if err != nil {
		t.Fatalf("checking empty pair: %v", err)
	}
	if occupied {
		t.Fatal("empty pair reported as occupied")
	}

	id, err := s.Matches().Insert(ctx, &core.Match{JobID: jobID, EngineerID: engineerID, Score: 60, Grade: core.GradeC})
	if err != nil {
		t.Fatalf("inserting match: %v", err)
	}
	if err := s.Matches().SetHidden(ctx, id, true); err != nil {
		t.Fatalf("hiding match: %v", err)
	}

	occupied, err = s.Matches().ExistsLive(ctx, jobID, engineerID)
	if err != nil {
		t.Fatalf("checking hidden pair: %v", err)
	}
	if !occupied {
		t.Fatal("hidden rows must still occupy the pair")
	}
}

func TestClearFreesPairs(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	jobID := createDoc(t, s, core.KindJob, "job")
	e1 := createDoc(t, s, core.KindEngineer, "engineer one")
	e2 := createDoc(t, s, core.KindEngineer, "engineer two")

	for _, engineerID := range []int64{e1, e2} {
		if _, err := s.Matches().Insert(ctx, &core.Match{JobID: jobID, EngineerID: engineerID, Score: 70, Grade: core.GradeB}); err != nil {
			t.Fatalf("inserting match: %v", err)
		}
	}

	if err := s.Matches().ClearForJob(ctx, jobID); err != nil {
		t.Fatalf("clearing: %v", err)
	}

	listed, err := s.Matches().ListForJob(ctx, jobID)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if listed.Len() != 0 {
		t.Fatalf("expected no matches after clear, got %d", listed.Len())
	}

	// The pair is free again.
	if _, err := s.Matches().Insert(ctx, &core.Match{JobID: jobID, EngineerID: e1, Score: 80, Grade: core.GradeA}); err != nil {
		t.Fatalf("reinserting after clear: %v", err)
	}
}

func TestMatchStatusLifecycle(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	jobID := createDoc(t, s, core.KindJob, "job")
	engineerID := createDoc(t, s, core.KindEngineer, "engineer")

	id, err := s.Matches().Insert(ctx, &core.Match{JobID: jobID, EngineerID: engineerID, Score: 75, Grade: core.GradeB})
	if err != nil {
		t.Fatalf("inserting match: %v", err)
	}

	for _, status := range []core.Status{core.StatusProposalPrepared, core.StatusAwaitingResult, core.StatusAdopted} {
		if err := s.Matches().SetStatus(ctx, id, status); err != nil {
			t.Fatalf("setting status %s: %v", status, err)
		}
	}

	if err := s.Matches().SetStatus(ctx, id, core.Status("done")); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for an unknown status, got %v", err)
	}

	listed, err := s.Matches().ListForJob(ctx, jobID)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if listed.Items[0].Status != core.StatusAdopted {
		t.Fatalf("expected status adopted, got %s", listed.Items[0].Status)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	id := createDoc(t, s, core.KindJob, "survives reopen")
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	got, err := s2.Documents().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("loading after reopen: %v", err)
	}
	if got.Text != "survives reopen" {
		t.Fatalf("unexpected text after reopen: %q", got.Text)
	}
}
