// Package embedding provides the embedder adapters the sweep measures:
// a deterministic mock, an in-process TF-IDF model, and a remote
// OpenAI-compatible client.
package embedding

import (
	"fmt"

	"vecbench/internal/domain"
	"vecbench/internal/port"
)

// New constructs an embedder for a registry entry. corpus is the document
// text set, needed only by providers that fit locally (tfidf). Unknown
// providers are reported as unavailable so the sweep can record and skip
// them.
func New(profile domain.ModelProfile, corpus []string) (port.Embedder, error) {
	switch profile.Provider {
	case "mock":
		return NewMockEmbedder(profile), nil
	case "tfidf":
		return NewTFIDFEmbedder(profile, corpus)
	case "openai", "ollama":
		return NewRemoteEmbedder(profile)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrModelUnavailable, profile.Provider)
	}
}
