package usecase

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vecbench/internal/domain"
)

func sampleSweep() *SweepResult {
	mk := func(model, backend string, embedSec, peakMB float64) domain.CombinationResult {
		return domain.CombinationResult{
			Model:   model,
			Backend: backend,
			State:   domain.StateDone,
			Samples: []domain.TimingSample{
				{Phase: domain.PhaseEmbed, Model: model, Backend: backend, ElapsedSec: embedSec, PeakMemoryMB: peakMB, DocCount: 100},
				{Phase: domain.PhaseIndex, Model: model, Backend: backend, ElapsedSec: 0.5, PeakMemoryMB: peakMB / 2, DocCount: 100},
				{Phase: domain.PhaseQuery, Model: model, Backend: backend, ElapsedSec: 0.1, PeakMemoryMB: 1, DocCount: 10},
			},
			Top1HitRate: 1,
		}
	}

	return &SweepResult{
		DocCount: 100,
		Results: []domain.CombinationResult{
			mk("fast", "flat", 1.0, 20),   // 100 docs/s
			mk("fast", "native", 1.0, 10), // 100 docs/s, leaner
			mk("slowm", "flat", 4.0, 5),   // 25 docs/s, leanest
			{
				Model:   "dead",
				Backend: "flat",
				State:   domain.StateFailed,
				Err:     "embed phase: model unavailable",
			},
		},
		Quality: []domain.QualityMetrics{
			{Model: "fast", Diversity: 0.8, AvgPairwiseSim: 0.2, SimilarityStdev: 0.05, AvgNorm: 1},
			{Model: "slowm", Diversity: 0.6, AvgPairwiseSim: 0.4, SimilarityStdev: 0.1, AvgNorm: 1},
		},
		SuccessfulModels: []string{"fast", "slowm"},
		FailedModels:     []string{"dead"},
	}
}

func TestBuildReport_Rankings(t *testing.T) {
	report := BuildReport(sampleSweep(), time.Now())

	require.Len(t, report.Rankings.Speed, 3)
	assert.Equal(t, "fast", report.Rankings.Speed[0].Model)
	// Equal throughput ties break on the combination key.
	assert.Equal(t, "flat", report.Rankings.Speed[0].Backend)
	assert.Equal(t, "native", report.Rankings.Speed[1].Backend)
	assert.Equal(t, "slowm", report.Rankings.Speed[2].Model)

	require.Len(t, report.Rankings.Memory, 3)
	assert.Equal(t, "slowm", report.Rankings.Memory[0].Model)

	// The failed combination stays in the table and is never ranked.
	assert.Len(t, report.Table, 4)
}

func TestBuildReport_Recommendations(t *testing.T) {
	report := BuildReport(sampleSweep(), time.Now())

	assert.Equal(t, "fast + flat", report.Recommendations["fastest"])
	assert.Equal(t, "slowm + flat", report.Recommendations["most_memory_efficient"])
	// Every combination's rank sum is 2 here, so the tie breaks on the
	// lowest peak memory.
	assert.Equal(t, "slowm + flat", report.Recommendations["best_balance"])
}

func TestBuildReport_NoSuccesses(t *testing.T) {
	sweep := &SweepResult{
		DocCount: 10,
		Results: []domain.CombinationResult{
			{Model: "dead", Backend: "flat", State: domain.StateFailed, Err: "boom"},
		},
		FailedModels: []string{"dead"},
	}
	report := BuildReport(sweep, time.Now())
	assert.Empty(t, report.Rankings.Speed)
	assert.Empty(t, report.Recommendations)
	assert.Len(t, report.Table, 1)
}

func TestRenderers_Agree(t *testing.T) {
	// JSON and Markdown derive from one in-memory report: same models,
	// same ranking order, same success/fail counts.
	report := BuildReport(sampleSweep(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	data, err := RenderJSON(report)
	require.NoError(t, err)

	var decoded domain.ComparisonReport
	require.NoError(t, json.Unmarshal(data, &decoded))

	md := RenderMarkdown(report)

	assert.Equal(t, report.SuccessfulModels, decoded.SuccessfulModels)
	assert.Equal(t, report.FailedModels, decoded.FailedModels)
	require.Len(t, decoded.Rankings.Speed, len(report.Rankings.Speed))
	for i := range report.Rankings.Speed {
		assert.Equal(t, report.Rankings.Speed[i].Model, decoded.Rankings.Speed[i].Model)
		assert.Equal(t, report.Rankings.Speed[i].Backend, decoded.Rankings.Speed[i].Backend)
	}

	for _, res := range report.Table {
		assert.Contains(t, md, res.Model)
	}
	assert.Contains(t, md, "Models: 2 succeeded, 1 failed")

	// Ranking rows appear in ranking order in the Markdown.
	speedSection := md[strings.Index(md, "## Speed ranking"):strings.Index(md, "## Query speed ranking")]
	prev := -1
	for _, e := range report.Rankings.Speed {
		pos := strings.Index(speedSection, e.Model+" | "+e.Backend)
		require.GreaterOrEqual(t, pos, 0)
		assert.Greater(t, pos, prev)
		prev = pos
	}
}

func TestWriteReportFiles(t *testing.T) {
	dir := t.TempDir()
	report := BuildReport(sampleSweep(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	jsonPath, mdPath, err := WriteReportFiles(dir, report)
	require.NoError(t, err)
	assert.Contains(t, jsonPath, "20260830T120000")
	assert.Contains(t, mdPath, "20260830T120000")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded domain.ComparisonReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 100, decoded.DocCount)
}
