// Package vectorindex implements a flat, file-persisted nearest-neighbour
// index over (id, vector) pairs. Search is an exact L2 scan; the whole index
// is rewritten to disk after every add, so a given sequence of adds always
// replays to the same search results.
package vectorindex

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

const fileVersion = 1

// Index is a persistent flat vector index. A single mutex serializes
// writers; searches share a read lock, so they interleave with each other
// but never with an in-flight add.
type Index struct {
	mu     sync.RWMutex
	path   string
	loaded bool

	dim     int
	ids     []int64
	vectors [][]float32
	byID    map[int64]int
}

type persisted struct {
	Version int
	Dim     int
	IDs     []int64
	Vectors [][]float32
}

// Open prepares an index backed by the given file. The file is read lazily
// on first use; a missing file behaves as an empty index.
func Open(path string) *Index {
	return &Index{path: path, byID: make(map[int64]int)}
}

// Add appends (or replaces) the given id/vector pairs and synchronously
// persists the full index. There is no write-ahead log: a crash mid-write
// can corrupt the file, which the caller accepts per the storage contract.
func (ix *Index) Add(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: got %d ids for %d vectors", core.ErrInvalidArgument, len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.ensureLoaded(); err != nil {
		return err
	}

	if ix.dim == 0 {
		// Dimension is fixed for the index lifetime once the first vector
		// arrives.
		ix.dim = len(vectors[0])
		if ix.dim == 0 {
			return fmt.Errorf("%w: empty vector", core.ErrInvalidArgument)
		}
	}

	for i, vec := range vectors {
		if len(vec) != ix.dim {
			return fmt.Errorf("%w: vector for id %d has dimension %d, index has %d",
				core.ErrInvalidArgument, ids[i], len(vec), ix.dim)
		}
	}

	for i, id := range ids {
		vec := make([]float32, ix.dim)
		copy(vec, vectors[i])

		if pos, ok := ix.byID[id]; ok {
			// Re-evaluation replaces the stored vector in place.
			ix.vectors[pos] = vec
			continue
		}
		ix.byID[id] = len(ix.ids)
		ix.ids = append(ix.ids, id)
		ix.vectors = append(ix.vectors, vec)
	}

	return ix.persist()
}

// Search returns up to min(topK, size) neighbours ordered by ascending L2
// distance. An empty or absent index yields an empty result.
func (ix *Index) Search(query []float32, topK int) ([]core.Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", core.ErrInvalidArgument, topK)
	}

	ix.mu.RLock()
	loaded := ix.loaded
	ix.mu.RUnlock()

	if !loaded {
		ix.mu.Lock()
		err := ix.ensureLoaded()
		ix.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.ids) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			core.ErrInvalidArgument, len(query), ix.dim)
	}

	hits := make([]core.Hit, 0, len(ix.ids))
	for i, id := range ix.ids {
		hits = append(hits, core.Hit{Distance: l2(query, ix.vectors[i]), ID: id})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Distance == hits[b].Distance {
			return hits[a].ID < hits[b].ID
		}
		return hits[a].Distance < hits[b].Distance
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// Size returns the number of stored vectors.
func (ix *Index) Size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.ensureLoaded(); err != nil {
		return 0
	}
	return len(ix.ids)
}

// Contains reports whether the id has a stored vector.
func (ix *Index) Contains(id int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.ensureLoaded(); err != nil {
		return false
	}
	_, ok := ix.byID[id]
	return ok
}

// ensureLoaded reads the backing file once. Callers hold the write lock.
func (ix *Index) ensureLoaded() error {
	if ix.loaded {
		return nil
	}

	file, err := os.Open(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			ix.loaded = true
			return nil
		}
		return fmt.Errorf("%w: open index file %q: %v", core.ErrPersistence, ix.path, err)
	}
	defer file.Close()

	var data persisted
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("%w: decode index file %q: %v", core.ErrPersistence, ix.path, err)
	}
	if data.Version != fileVersion {
		return fmt.Errorf("%w: index file %q has unsupported version %d", core.ErrPersistence, ix.path, data.Version)
	}
	if len(data.IDs) != len(data.Vectors) {
		return fmt.Errorf("%w: index file %q has %d ids for %d vectors",
			core.ErrInconsistentIndex, ix.path, len(data.IDs), len(data.Vectors))
	}

	ix.dim = data.Dim
	ix.ids = data.IDs
	ix.vectors = data.Vectors
	ix.byID = make(map[int64]int, len(data.IDs))
	for i, id := range data.IDs {
		ix.byID[id] = i
	}
	ix.loaded = true
	return nil
}

// persist rewrites the full index file. Callers hold the write lock.
func (ix *Index) persist() error {
	if dir := filepath.Dir(ix.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create index directory: %v", core.ErrPersistence, err)
		}
	}

	file, err := os.Create(ix.path)
	if err != nil {
		return fmt.Errorf("%w: create index file %q: %v", core.ErrPersistence, ix.path, err)
	}

	data := persisted{Version: fileVersion, Dim: ix.dim, IDs: ix.ids, Vectors: ix.vectors}
	if err := gob.NewEncoder(file).Encode(&data); err != nil {
		file.Close()
		return fmt.Errorf("%w: write index file %q: %v", core.ErrPersistence, ix.path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close index file %q: %v", core.ErrPersistence, ix.path, err)
	}
	return nil
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
