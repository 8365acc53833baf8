package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"

	"vecbench/internal/domain"
	"vecbench/internal/mathutil"
)

// MockEmbedder produces deterministic pseudo-random vectors. Each text is
// hashed and the hash seeds a PRNG, so the same text maps to the same
// vector across runs and processes. Used for fast harness iteration
// without loading a real model.
type MockEmbedder struct {
	profile domain.ModelProfile
}

// NewMockEmbedder creates a mock embedder for the given registry entry.
func NewMockEmbedder(profile domain.ModelProfile) *MockEmbedder {
	profile.Kind = domain.KindMock
	return &MockEmbedder{profile: profile}
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, domain.WrapError("mock.Embed", domain.ErrInvalidInput)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.vectorFor(text)
	}
	return vectors, nil
}

func (e *MockEmbedder) vectorFor(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, e.profile.Dim)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return mathutil.Normalize(vec)
}

func (e *MockEmbedder) Profile() domain.ModelProfile {
	return e.profile
}
