package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"vecbench/internal/domain"
	"vecbench/internal/mathutil"
	"vecbench/internal/port"
)

var bucketVectors = []byte("vectors")

// FlatBackend stores vectors as columnar float32 blobs in a bbolt file
// and answers queries with an exact brute-force cosine scan. Every build
// gets its own database file under a temp dir; teardown removes it.
// Exact by construction; equal scores order by document id.
type FlatBackend struct{}

// NewFlatBackend creates the flat backend adapter.
func NewFlatBackend() *FlatBackend {
	return &FlatBackend{}
}

func (b *FlatBackend) Name() string { return "columnar-flat" }

func (b *FlatBackend) Exact() bool { return true }

type flatEntry struct {
	id     string
	vector []float32
}

type flatHandle struct {
	db  *bbolt.DB
	dir string
	dim int

	// mu serializes teardown against in-flight queries. A query that
	// outlives its phase deadline can still hold the handle while
	// teardown runs.
	mu      sync.RWMutex
	entries []flatEntry
	closed  bool
}

func (h *flatHandle) Backend() string { return "columnar-flat" }

func (b *FlatBackend) Build(ctx context.Context, vectors []domain.Embedding) (port.Handle, error) {
	dim, err := checkVectors(vectors)
	if err != nil {
		return nil, domain.WrapError("flat.Build", err)
	}

	dir, err := os.MkdirTemp("", "vecbench-flat-")
	if err != nil {
		return nil, fmt.Errorf("flat.Build: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dir, "index.db"), 0600, nil)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("flat.Build: %w", err)
	}

	h := &flatHandle{
		db:      db,
		dir:     dir,
		dim:     dim,
		entries: make([]flatEntry, 0, len(vectors)),
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketVectors)
		if err != nil {
			return err
		}
		for _, v := range vectors {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := bucket.Put([]byte(v.DocumentID), encodeVector(v.Values)); err != nil {
				return err
			}
			h.entries = append(h.entries, flatEntry{id: v.DocumentID, vector: v.Values})
		}
		return nil
	})
	if err != nil {
		db.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("flat.Build: %w", err)
	}

	return h, nil
}

func (b *FlatBackend) Query(ctx context.Context, handle port.Handle, vector []float32, k int) ([]string, error) {
	h, ok := handle.(*flatHandle)
	if !ok {
		return nil, domain.WrapError("flat.Query", domain.ErrIndexNotBuilt)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, domain.WrapError("flat.Query", domain.ErrIndexNotBuilt)
	}
	if len(vector) != h.dim {
		return nil, domain.WrapError("flat.Query", domain.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		id    string
		score float64
	}
	scores := make([]scored, len(h.entries))
	for i, e := range h.entries {
		scores[i] = scored{id: e.id, score: mathutil.CosineSimilarity(vector, e.vector)}
	}

	// Score descending, id ascending on ties: stable across runs.
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].id < scores[j].id
	})

	if k > len(scores) {
		k = len(scores)
	}
	ids := make([]string, k)
	for i := 0; i < k; i++ {
		ids[i] = scores[i].id
	}
	return ids, nil
}

func (b *FlatBackend) Teardown(handle port.Handle) error {
	h, ok := handle.(*flatHandle)
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.entries = nil
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("flat.Teardown: %w", err)
	}
	return os.RemoveAll(h.dir)
}
