package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vecbench/config"
	"vecbench/internal/adapter/backend"
	"vecbench/internal/domain"
	"vecbench/internal/index"
	"vecbench/internal/port"
)

func testCorpus(n int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{
			ID:   fmt.Sprintf("doc_%d", i),
			Text: fmt.Sprintf("document %d talks about topic %d and subject %d", i, i%5, i%3),
		}
	}
	return docs
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Models = []domain.ModelProfile{
		{Name: "mock-small", Provider: "mock", Dim: 384},
		{Name: "mock-large", Provider: "mock", Dim: 768},
	}
	cfg.Bench.QueryCount = 5
	cfg.Bench.TopK = 3
	cfg.Bench.PhaseTimeoutSec = 60
	cfg.Quality.SamplePairs = 50
	return cfg
}

func testBackends() []port.Backend {
	return []port.Backend{
		backend.NewFlatBackend(),
		backend.NewNativeBackend(index.Config{M: 8, EfConstruction: 50, EfSearch: 40}),
	}
}

func newTestRunner(cfg *config.Config) *Runner {
	return NewRunner(cfg, testBackends(), slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestSweep_FullMatrix(t *testing.T) {
	// 20 docs, 2 mock models (384 and 768 dims), 2 backends: every one of
	// the 4 combinations completes.
	r := newTestRunner(testConfig())
	sweep, err := r.Sweep(context.Background(), testCorpus(20))
	require.NoError(t, err)

	require.Len(t, sweep.Results, 4)
	for _, res := range sweep.Results {
		assert.Equal(t, domain.StateDone, res.State, "%s/%s: %s", res.Model, res.Backend, res.Err)
		require.Len(t, res.Samples, 3)
		for _, s := range res.Samples {
			assert.Equal(t, res.Model, s.Model)
			assert.Greater(t, s.ElapsedSec, 0.0)
			assert.False(t, math.IsInf(s.ElapsedSec, 0) || math.IsNaN(s.ElapsedSec))
			assert.GreaterOrEqual(t, s.PeakMemoryMB, 0.0)
		}
		embed, ok := res.Sample(domain.PhaseEmbed)
		require.True(t, ok)
		assert.Equal(t, 20, embed.DocCount)

		// Exact backend must retrieve every query document as its own
		// top-1 result.
		if res.Backend == "columnar-flat" {
			assert.Equal(t, 1.0, res.Top1HitRate)
		}
	}

	assert.ElementsMatch(t, []string{"mock-small", "mock-large"}, sweep.SuccessfulModels)
	assert.Empty(t, sweep.FailedModels)
	require.Len(t, sweep.Quality, 2)

	report := BuildReport(sweep, time.Now())
	require.Len(t, report.Rankings.Speed, 4)
	for i := 1; i < len(report.Rankings.Speed); i++ {
		assert.GreaterOrEqual(t, report.Rankings.Speed[i-1].Value, report.Rankings.Speed[i].Value)
	}
	assert.Len(t, report.Recommendations, 3)
}

func TestSweep_UnavailableModelRecorded(t *testing.T) {
	cfg := testConfig()
	cfg.Models = []domain.ModelProfile{
		{Name: "broken", Provider: "mock", Dim: 128},
		{Name: "mock-small", Provider: "mock", Dim: 384},
	}

	r := newTestRunner(cfg)
	orig := r.newEmbedder
	r.newEmbedder = func(p domain.ModelProfile, corpus []string) (port.Embedder, error) {
		if p.Name == "broken" {
			return nil, domain.ErrModelUnavailable
		}
		return orig(p, corpus)
	}

	sweep, err := r.Sweep(context.Background(), testCorpus(10))
	require.NoError(t, err, "a model load failure must not abort the sweep")

	require.Len(t, sweep.FailedModels, 1)
	require.Len(t, sweep.SuccessfulModels, 1)
	require.Len(t, sweep.Results, 4)

	var failed, done int
	for _, res := range sweep.Results {
		switch res.State {
		case domain.StateFailed:
			failed++
			assert.Equal(t, "broken", res.Model)
			assert.NotEmpty(t, res.Err)
		case domain.StateDone:
			done++
		}
	}
	assert.Equal(t, 2, failed)
	assert.Equal(t, 2, done)
}

// countingBackend records calls so tests can prove the runner never
// touched an adapter.
type countingBackend struct {
	builds int
}

func (c *countingBackend) Name() string { return "counting" }
func (c *countingBackend) Exact() bool  { return true }
func (c *countingBackend) Build(ctx context.Context, vectors []domain.Embedding) (port.Handle, error) {
	c.builds++
	return nil, domain.ErrInvalidInput
}
func (c *countingBackend) Query(ctx context.Context, h port.Handle, v []float32, k int) ([]string, error) {
	return nil, domain.ErrIndexNotBuilt
}
func (c *countingBackend) Teardown(h port.Handle) error { return nil }

func TestSweep_EmptyCorpusFailsBeforeAdapters(t *testing.T) {
	cb := &countingBackend{}
	cfg := testConfig()
	r := NewRunner(cfg, []port.Backend{cb}, slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	factoryCalls := 0
	r.newEmbedder = func(p domain.ModelProfile, corpus []string) (port.Embedder, error) {
		factoryCalls++
		return nil, domain.ErrModelUnavailable
	}

	_, err := r.Sweep(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrEmptyCorpus)
	assert.Zero(t, factoryCalls)
	assert.Zero(t, cb.builds)
}

func TestSweep_EmptyRegistry(t *testing.T) {
	cfg := testConfig()
	cfg.Models = nil
	r := newTestRunner(cfg)

	_, err := r.Sweep(context.Background(), testCorpus(5))
	require.ErrorIs(t, err, domain.ErrEmptyRegistry)
}

// slowEmbedder blocks past the phase timeout.
type slowEmbedder struct {
	profile domain.ModelProfile
}

func (s *slowEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case <-time.After(10 * time.Second):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

func (s *slowEmbedder) Profile() domain.ModelProfile { return s.profile }

func TestSweep_PhaseTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Models = []domain.ModelProfile{{Name: "slow", Provider: "mock", Dim: 8}}
	cfg.Bench.PhaseTimeoutSec = 1

	r := newTestRunner(cfg)
	r.newEmbedder = func(p domain.ModelProfile, corpus []string) (port.Embedder, error) {
		return &slowEmbedder{profile: p}, nil
	}

	start := time.Now()
	sweep, err := r.Sweep(context.Background(), testCorpus(5))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "timeout must cut the phase short")

	require.Len(t, sweep.Results, 2)
	for _, res := range sweep.Results {
		assert.Equal(t, domain.StateFailed, res.State)
		assert.True(t, strings.Contains(res.Err, "timed out"), "error %q should mention the timeout", res.Err)
	}
	assert.Equal(t, []string{"slow"}, sweep.FailedModels)
}

// stallingBackend delegates to a real backend but parks every query until
// its context expires, then issues one last query against the handle, the
// way an abandoned phase goroutine does while teardown runs.
type stallingBackend struct {
	port.Backend
}

func (s *stallingBackend) Query(ctx context.Context, h port.Handle, v []float32, k int) ([]string, error) {
	<-ctx.Done()
	return s.Backend.Query(ctx, h, v, k)
}

func TestSweep_QueryPhaseTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Models = []domain.ModelProfile{{Name: "mock-small", Provider: "mock", Dim: 32}}
	cfg.Bench.PhaseTimeoutSec = 1

	var bs []port.Backend
	for _, b := range testBackends() {
		bs = append(bs, &stallingBackend{Backend: b})
	}
	r := NewRunner(cfg, bs, slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	start := time.Now()
	sweep, err := r.Sweep(context.Background(), testCorpus(8))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second, "timeout must cut the query phase short")

	require.Len(t, sweep.Results, 2)
	for _, res := range sweep.Results {
		assert.Equal(t, domain.StateFailed, res.State)
		assert.Contains(t, res.Err, "query phase")
		assert.Contains(t, res.Err, "timed out")
		// Embed and index both finished before the query phase stalled.
		_, ok := res.Sample(domain.PhaseIndex)
		assert.True(t, ok)
	}
}
