package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"vecbench/internal/domain"
	"vecbench/internal/index"
	"vecbench/internal/port"
)

// NativeBackend is the embedded vector database: an HNSW graph serves
// queries while vectors and a graph snapshot are persisted to SQLite.
// Search is approximate cosine; it may miss the true top-1. Results are
// deterministic for a given built index because construction and search
// are both deterministic.
type NativeBackend struct {
	cfg index.Config
}

// NewNativeBackend creates the native backend with the given HNSW
// parameters. Zero values fall back to the index defaults.
func NewNativeBackend(cfg index.Config) *NativeBackend {
	return &NativeBackend{cfg: cfg}
}

func (b *NativeBackend) Name() string { return "native-hnsw" }

func (b *NativeBackend) Exact() bool { return false }

type nativeHandle struct {
	db  *sql.DB
	dir string
	dim int

	// mu serializes teardown against in-flight queries. A query that
	// outlives its phase deadline can still hold the handle while
	// teardown runs.
	mu     sync.RWMutex
	graph  *index.HNSW
	closed bool
}

func (h *nativeHandle) Backend() string { return "native-hnsw" }

func (b *NativeBackend) Build(ctx context.Context, vectors []domain.Embedding) (port.Handle, error) {
	dim, err := checkVectors(vectors)
	if err != nil {
		return nil, domain.WrapError("native.Build", err)
	}

	dir, err := os.MkdirTemp("", "vecbench-native-")
	if err != nil {
		return nil, fmt.Errorf("native.Build: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "vectors.db"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("native.Build: %w", err)
	}

	h := &nativeHandle{db: db, dir: dir, dim: dim}
	if err := h.init(ctx); err != nil {
		db.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("native.Build: %w", err)
	}

	entries := make([]index.Entry, len(vectors))
	for i, v := range vectors {
		entries[i] = index.Entry{ID: v.DocumentID, Vector: v.Values}
	}
	graph := index.New(b.cfg)
	graph.Add(entries)

	snapshot, err := graph.Marshal()
	if err != nil {
		db.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("native.Build: %w", err)
	}
	if err := h.persist(ctx, vectors, snapshot); err != nil {
		db.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("native.Build: %w", err)
	}

	// Queries are served from the restored snapshot, not the graph that
	// was just built: what gets measured is the index as stored.
	h.graph = index.New(b.cfg)
	if err := h.graph.Unmarshal(snapshot); err != nil {
		db.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("native.Build: %w", err)
	}

	return h, nil
}

func (h *nativeHandle) init(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := h.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS vectors (
			id TEXT PRIMARY KEY,
			embedding BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS graph (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data BLOB NOT NULL
		);
	`
	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	return nil
}

func (h *nativeHandle) persist(ctx context.Context, vectors []domain.Embedding, snapshot []byte) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO vectors (id, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range vectors {
		if _, err := stmt.ExecContext(ctx, v.DocumentID, encodeVector(v.Values)); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO graph (id, data) VALUES (1, ?)", snapshot); err != nil {
		return err
	}

	return tx.Commit()
}

func (b *NativeBackend) Query(ctx context.Context, handle port.Handle, vector []float32, k int) ([]string, error) {
	h, ok := handle.(*nativeHandle)
	if !ok {
		return nil, domain.WrapError("native.Query", domain.ErrIndexNotBuilt)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, domain.WrapError("native.Query", domain.ErrIndexNotBuilt)
	}
	if len(vector) != h.dim {
		return nil, domain.WrapError("native.Query", domain.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := h.graph.Search(vector, k)
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids, nil
}

func (b *NativeBackend) Teardown(handle port.Handle) error {
	h, ok := handle.(*nativeHandle)
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.graph = nil
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("native.Teardown: %w", err)
	}
	return os.RemoveAll(h.dir)
}
