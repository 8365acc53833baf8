package port

import (
	"context"

	"vecbench/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns one vector per input text, in input order. An empty input
	// fails with domain.ErrInvalidInput rather than returning zero vectors.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Profile returns the model's static descriptor. It never triggers
	// a model load.
	Profile() domain.ModelProfile
}
