// Package vectorindex is an in-memory nearest-neighbor store over embedded
// chunks. Lookup is a brute-force cosine scan, O(n) per query, which is fine
// at the scale of a handful of uploaded documents.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"pdfrag/internal/models"
)

// Index holds one immutable snapshot of (chunk, vector) pairs. Rebuild
// constructs a fresh snapshot and publishes it with a single assignment, so a
// concurrent Search sees either the previous contents or the new ones, never
// a half-written index. Concurrent Rebuilds are last-writer-wins.
type Index struct {
	mu   sync.RWMutex
	snap *snapshot
}

type snapshot struct {
	chunks  []models.Chunk
	vectors [][]float32
	norms   []float64
}

func New() *Index {
	return &Index{}
}

// Rebuild replaces the entire index contents with the given parallel slices.
// On error the previous snapshot stays live.
func (ix *Index) Rebuild(chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("vectorindex: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	snap := &snapshot{
		chunks:  chunks,
		vectors: vectors,
		norms:   make([]float64, len(vectors)),
	}
	dim := 0
	for i, v := range vectors {
		if i == 0 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return fmt.Errorf("vectorindex: vector %d has dimension %d, want %d", i, len(v), dim)
		}
		snap.norms[i] = norm(v)
	}

	ix.mu.Lock()
	ix.snap = snap
	ix.mu.Unlock()
	return nil
}

// Search returns the k chunks most similar to query by cosine similarity,
// descending; ties keep insertion order. An empty index returns nil.
func (ix *Index) Search(query []float32, k int) []models.Scored {
	ix.mu.RLock()
	snap := ix.snap
	ix.mu.RUnlock()

	if snap == nil || len(snap.chunks) == 0 || k <= 0 {
		return nil
	}

	qn := norm(query)
	scored := make([]models.Scored, len(snap.chunks))
	for i := range snap.chunks {
		scored[i] = models.Scored{
			Chunk: snap.chunks[i],
			Score: cosine(snap.vectors[i], query, snap.norms[i], qn),
		}
	}
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// Ready reports whether a rebuild has ever completed.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.snap != nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.snap == nil {
		return 0
	}
	return len(ix.snap.chunks)
}

func cosine(v, q []float32, vn, qn float64) float64 {
	if vn == 0 || qn == 0 {
		return 0
	}
	n := len(v)
	if len(q) < n {
		n = len(q)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(v[i]) * float64(q[i])
	}
	return dot / (vn * qn)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
