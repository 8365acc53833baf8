// Package usecase drives the benchmark sweep and aggregates its results.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/schollz/progressbar/v3"

	"vecbench/config"
	"vecbench/internal/adapter/embedding"
	"vecbench/internal/domain"
	"vecbench/internal/port"
)

// SweepResult is everything one sweep produced, ready for reporting.
type SweepResult struct {
	DocCount         int
	Results          []domain.CombinationResult
	Quality          []domain.QualityMetrics
	SuccessfulModels []string
	FailedModels     []string
}

// Runner measures every (model, backend) combination over one corpus,
// strictly one combination at a time so samples don't pollute each other.
type Runner struct {
	cfg      *config.Config
	backends []port.Backend
	log      *slog.Logger
	progress bool

	// newEmbedder is swapped in tests to inject failing models.
	newEmbedder func(domain.ModelProfile, []string) (port.Embedder, error)
}

// NewRunner creates a runner over the configured registry and the given
// backends.
func NewRunner(cfg *config.Config, backends []port.Backend, log *slog.Logger, progress bool) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:         cfg,
		backends:    backends,
		log:         log,
		progress:    progress,
		newEmbedder: embedding.New,
	}
}

// Sweep runs the full matrix. Only initialization problems (empty corpus,
// empty registry) return an error; adapter failures become FAILED rows in
// the result and the sweep keeps going.
func (r *Runner) Sweep(ctx context.Context, docs []domain.Document) (*SweepResult, error) {
	if len(docs) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if len(r.cfg.Models) == 0 {
		return nil, domain.ErrEmptyRegistry
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	queryIdx := r.queryIndices(len(docs))

	var bar *progressbar.ProgressBar
	if r.progress {
		bar = progressbar.NewOptions(len(r.cfg.Models)*len(r.backends),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Benchmarking[reset]"),
		)
	}
	step := func() {
		if bar != nil {
			bar.Add(1)
		}
	}

	out := &SweepResult{DocCount: len(docs)}

	for _, profile := range r.cfg.Models {
		vectors, embedSample, err := r.embedModel(ctx, profile, docs, texts)
		if err != nil {
			r.log.Error("model failed", "model", profile.Name, "error", err)
			out.FailedModels = append(out.FailedModels, profile.Name)
			for _, b := range r.backends {
				out.Results = append(out.Results, domain.CombinationResult{
					Model:   profile.Name,
					Backend: b.Name(),
					State:   domain.StateFailed,
					Err:     err.Error(),
				})
				step()
			}
			continue
		}
		out.SuccessfulModels = append(out.SuccessfulModels, profile.Name)
		out.Quality = append(out.Quality,
			EvaluateQuality(profile.Name, vectors, r.cfg.Quality.SamplePairs, r.cfg.Quality.Seed))

		for _, b := range r.backends {
			res := r.runCombination(ctx, profile, b, vectors, embedSample, queryIdx)
			out.Results = append(out.Results, res)
			step()
		}
	}

	return out, nil
}

// queryIndices picks a fixed, deterministic set of corpus positions to
// replay as queries, so the expected top-1 answer is knowable.
func (r *Runner) queryIndices(docCount int) []int {
	n := r.cfg.Bench.QueryCount
	if n <= 0 || n > docCount {
		n = docCount
	}
	perm := rand.New(rand.NewSource(r.cfg.Quality.Seed)).Perm(docCount)
	return perm[:n]
}

// embedModel loads one model and embeds the whole corpus, timed and
// memory-sampled. Any failure here fails every combination of the model.
func (r *Runner) embedModel(ctx context.Context, profile domain.ModelProfile, docs []domain.Document, texts []string) ([]domain.Embedding, domain.TimingSample, error) {
	var none domain.TimingSample

	emb, err := r.newEmbedder(profile, texts)
	if err != nil {
		return nil, none, err
	}

	r.log.Info("embedding corpus", "model", profile.Name, "docs", len(docs))

	var raw [][]float32
	elapsed, peak, err := r.runPhase(ctx, func(c context.Context) error {
		v, e := emb.Embed(c, texts)
		raw = v
		return e
	})
	if err != nil {
		return nil, none, err
	}
	if len(raw) != len(docs) {
		return nil, none, fmt.Errorf("%w: got %d vectors for %d documents",
			domain.ErrInvalidInput, len(raw), len(docs))
	}

	vectors := make([]domain.Embedding, len(docs))
	for i := range docs {
		if len(raw[i]) != len(raw[0]) {
			return nil, none, fmt.Errorf("%w: model %q returned mixed dimensions %d and %d",
				domain.ErrDimensionMismatch, profile.Name, len(raw[0]), len(raw[i]))
		}
		vectors[i] = domain.Embedding{
			DocumentID: docs[i].ID,
			Values:     raw[i],
			Dim:        len(raw[i]),
		}
	}

	sample := domain.TimingSample{
		Phase:        domain.PhaseEmbed,
		Model:        profile.Name,
		ElapsedSec:   elapsed,
		PeakMemoryMB: peak,
		DocCount:     len(docs),
	}
	return vectors, sample, nil
}

// runCombination walks one (model, backend) pair through the state
// machine. Teardown always runs once a handle exists, even after a query
// failure or timeout.
func (r *Runner) runCombination(ctx context.Context, profile domain.ModelProfile, b port.Backend, vectors []domain.Embedding, embedSample domain.TimingSample, queryIdx []int) domain.CombinationResult {
	res := domain.CombinationResult{
		Model:   profile.Name,
		Backend: b.Name(),
		State:   domain.StateEmbedding,
	}
	embedSample.Backend = b.Name()
	res.Samples = append(res.Samples, embedSample)

	r.log.Info("benchmarking", "model", profile.Name, "backend", b.Name())

	// Index phase
	res.State = domain.StateIndexing
	var handle port.Handle
	elapsed, peak, err := r.runPhase(ctx, func(c context.Context) error {
		h, e := b.Build(c, vectors)
		if e != nil {
			return e
		}
		if c.Err() != nil {
			// Phase already abandoned: never leak a partially built store.
			r.teardown(b, h)
			return c.Err()
		}
		handle = h
		return nil
	})
	if err != nil {
		return failCombination(res, domain.PhaseIndex, err)
	}
	defer r.teardown(b, handle)

	res.Samples = append(res.Samples, domain.TimingSample{
		Phase:        domain.PhaseIndex,
		Model:        profile.Name,
		Backend:      b.Name(),
		ElapsedSec:   elapsed,
		PeakMemoryMB: peak,
		DocCount:     len(vectors),
	})

	// Query phase
	res.State = domain.StateQuerying
	hits := 0
	elapsed, peak, err = r.runPhase(ctx, func(c context.Context) error {
		for _, qi := range queryIdx {
			ids, e := b.Query(c, handle, vectors[qi].Values, r.cfg.Bench.TopK)
			if e != nil {
				return e
			}
			if len(ids) > 0 && ids[0] == vectors[qi].DocumentID {
				hits++
			}
		}
		return nil
	})
	if err != nil {
		return failCombination(res, domain.PhaseQuery, err)
	}

	res.Samples = append(res.Samples, domain.TimingSample{
		Phase:        domain.PhaseQuery,
		Model:        profile.Name,
		Backend:      b.Name(),
		ElapsedSec:   elapsed,
		PeakMemoryMB: peak,
		DocCount:     len(queryIdx),
	})
	if len(queryIdx) > 0 {
		res.Top1HitRate = float64(hits) / float64(len(queryIdx))
	}

	res.State = domain.StateDone
	return res
}

func (r *Runner) teardown(b port.Backend, h port.Handle) {
	if err := b.Teardown(h); err != nil {
		r.log.Error("teardown failed", "backend", b.Name(), "error", err)
	}
}

func failCombination(res domain.CombinationResult, phase domain.Phase, err error) domain.CombinationResult {
	res.State = domain.StateFailed
	res.Err = fmt.Sprintf("%s phase: %v", phase, err)
	return res
}

// runPhase times and memory-samples one phase, bounding it with the
// configured timeout. On expiry the phase goroutine is abandoned (its
// result lands in a buffered channel) and ErrPhaseTimeout is returned.
func (r *Runner) runPhase(ctx context.Context, fn func(context.Context) error) (float64, float64, error) {
	pctx := ctx
	cancel := func() {}
	if r.cfg.Bench.PhaseTimeoutSec > 0 {
		pctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.Bench.PhaseTimeoutSec)*time.Second)
	}
	defer cancel()

	sampler := startMemSample()
	start := time.Now()

	done := make(chan error, 1)
	go func() {
		done <- fn(pctx)
	}()

	select {
	case err := <-done:
		elapsed := time.Since(start).Seconds()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = domain.ErrPhaseTimeout
			}
			return elapsed, 0, err
		}
		return elapsed, sampler.peakMB(), nil
	case <-pctx.Done():
		elapsed := time.Since(start).Seconds()
		if errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return elapsed, 0, domain.ErrPhaseTimeout
		}
		return elapsed, 0, pctx.Err()
	}
}
