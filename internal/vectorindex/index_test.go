package vectorindex

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.index")
}

func TestAddAndSearchRoundTrip(t *testing.T) {
	t.Parallel()

	ix := Open(testPath(t))

	err := ix.Add(
		[]int64{1, 2, 3},
		[][]float32{{1, 0}, {0, 1}, {0.6, 0.8}},
	)
	if err != nil {
		t.Fatalf("adding vectors: %v", err)
	}

	hits, err := ix.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}

	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ID != 1 || hits[0].Distance > 1e-9 {
		t.Fatalf("the identical vector should come first at distance 0, got id=%d distance=%v", hits[0].ID, hits[0].Distance)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Fatal("hits must be ordered by ascending distance")
		}
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	t.Parallel()

	ix := Open(testPath(t))
	if err := ix.Add([]int64{1, 2, 3}, [][]float32{{1, 0}, {0, 1}, {0.6, 0.8}}); err != nil {
		t.Fatalf("adding vectors: %v", err)
	}

	hits, err := ix.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
}

func TestSearchMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	ix := Open(testPath(t))

	hits, err := ix.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("searching an absent index: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
	if ix.Size() != 0 {
		t.Fatalf("expected size 0, got %d", ix.Size())
	}
}

func TestSearchRejectsInvalidArguments(t *testing.T) {
	t.Parallel()

	ix := Open(testPath(t))
	if err := ix.Add([]int64{1}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("adding vector: %v", err)
	}

	if _, err := ix.Search([]float32{1, 0}, 0); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for top-k 0, got %v", err)
	}
	if _, err := ix.Search([]float32{1, 0, 0}, 1); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for dimension mismatch, got %v", err)
	}
}

func TestAddValidation(t *testing.T) {
	t.Parallel()

	ix := Open(testPath(t))

	if err := ix.Add([]int64{1, 2}, [][]float32{{1, 0}}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for length mismatch, got %v", err)
	}
	if err := ix.Add([]int64{1}, [][]float32{{}}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty vector, got %v", err)
	}

	if err := ix.Add([]int64{1}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("adding the first vector: %v", err)
	}
	if err := ix.Add([]int64{2}, [][]float32{{1, 0, 0}}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for dimension drift, got %v", err)
	}
}

func TestAddReplacesExistingID(t *testing.T) {
	t.Parallel()

	ix := Open(testPath(t))

	if err := ix.Add([]int64{1}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("adding vector: %v", err)
	}
	if err := ix.Add([]int64{1}, [][]float32{{0, 1}}); err != nil {
		t.Fatalf("replacing vector: %v", err)
	}

	if ix.Size() != 1 {
		t.Fatalf("replacement must not grow the index, size is %d", ix.Size())
	}

	hits, err := ix.Search([]float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if hits[0].ID != 1 || hits[0].Distance > 1e-9 {
		t.Fatalf("expected the replaced vector at distance 0, got id=%d distance=%v", hits[0].ID, hits[0].Distance)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	t.Parallel()

	path := testPath(t)

	ix := Open(path)
	if err := ix.Add([]int64{1, 2}, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("adding vectors: %v", err)
	}

	first, err := ix.Search([]float32{0.6, 0.8}, 2)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}

	reopened := Open(path)
	second, err := reopened.Search([]float32{0.6, 0.8}, 2)
	if err != nil {
		t.Fatalf("searching the reopened index: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("hit counts differ after reopen: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || math.Abs(first[i].Distance-second[i].Distance) > 1e-12 {
			t.Fatalf("hit %d differs after reopen: %+v vs %+v", i, first[i], second[i])
		}
	}

	if !reopened.Contains(1) || !reopened.Contains(2) {
		t.Fatal("reopened index lost vectors")
	}
	if reopened.Contains(3) {
		t.Fatal("reopened index contains an unknown id")
	}
}

func TestTiedDistancesOrderByID(t *testing.T) {
	t.Parallel()

	ix := Open(testPath(t))
	if err := ix.Add([]int64{7, 3}, [][]float32{{0, 1}, {0, 1}}); err != nil {
		t.Fatalf("adding vectors: %v", err)
	}

	hits, err := ix.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if hits[0].ID != 3 || hits[1].ID != 7 {
		t.Fatalf("expected deterministic id order on ties, got %d, %d", hits[0].ID, hits[1].ID)
	}
}
