package port

import (
	"context"

	"vecbench/internal/domain"
)

// Handle scopes the lifetime of one built index. Owned by exactly one
// sweep combination; must be torn down before the next combination of
// the same backend starts.
type Handle interface {
	// Backend returns the name of the backend that built this handle.
	Backend() string
}

// Backend wraps one vector storage/query engine.
type Backend interface {
	// Name identifies the backend in samples and reports.
	Name() string

	// Exact reports whether Query performs exact nearest-neighbor search.
	// Approximate backends may miss the true top-1.
	Exact() bool

	// Build bulk-loads vectors into a fresh index. All vectors must share
	// one dimensionality (domain.ErrDimensionMismatch otherwise).
	Build(ctx context.Context, vectors []domain.Embedding) (Handle, error)

	// Query returns the ids of the k nearest stored vectors by cosine
	// similarity, best first. Equal scores order stably across calls on
	// the same built index. Fails with domain.ErrIndexNotBuilt after
	// teardown.
	Query(ctx context.Context, h Handle, vector []float32, k int) ([]string, error)

	// Teardown releases all resources held by the handle. Idempotent.
	Teardown(h Handle) error
}
