package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vecbench/internal/domain"
)

// BuildReport aggregates a sweep into the final comparison report. Pure:
// it never re-runs anything, and both renderers below work off the same
// value so they cannot disagree.
func BuildReport(sweep *SweepResult, now time.Time) domain.ComparisonReport {
	report := domain.ComparisonReport{
		GeneratedAt:      now,
		DocCount:         sweep.DocCount,
		SuccessfulModels: append([]string(nil), sweep.SuccessfulModels...),
		FailedModels:     append([]string(nil), sweep.FailedModels...),
		Table:            append([]domain.CombinationResult(nil), sweep.Results...),
		Quality:          append([]domain.QualityMetrics(nil), sweep.Quality...),
		Recommendations:  map[string]string{},
	}

	var done []domain.CombinationResult
	for _, res := range sweep.Results {
		if !res.Failed() {
			done = append(done, res)
		}
	}

	report.Rankings.Speed = rankByPhaseThroughput(done, domain.PhaseEmbed)
	report.Rankings.QuerySpeed = rankByPhaseThroughput(done, domain.PhaseQuery)
	report.Rankings.Memory = rankByPeakMemory(done)

	if len(done) > 0 {
		speedRank := rankPositions(report.Rankings.Speed)
		memRank := rankPositions(report.Rankings.Memory)
		memValue := map[string]float64{}
		for _, e := range report.Rankings.Memory {
			memValue[comboKey(e.Model, e.Backend)] = e.Value
		}

		best := ""
		bestSum := 0
		for _, res := range done {
			key := comboKey(res.Model, res.Backend)
			sum := speedRank[key] + memRank[key]
			better := best == "" || sum < bestSum ||
				(sum == bestSum && memValue[key] < memValue[best])
			if better {
				best = key
				bestSum = sum
			}
		}

		fastest := report.Rankings.Speed[0]
		leanest := report.Rankings.Memory[0]
		report.Recommendations["fastest"] = comboKey(fastest.Model, fastest.Backend)
		report.Recommendations["most_memory_efficient"] = comboKey(leanest.Model, leanest.Backend)
		report.Recommendations["best_balance"] = best
	}

	return report
}

func comboKey(model, backend string) string {
	return model + " + " + backend
}

func rankByPhaseThroughput(done []domain.CombinationResult, phase domain.Phase) []domain.RankingEntry {
	var entries []domain.RankingEntry
	for _, res := range done {
		if s, ok := res.Sample(phase); ok {
			entries = append(entries, domain.RankingEntry{
				Model:   res.Model,
				Backend: res.Backend,
				Value:   s.Throughput(),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return comboKey(entries[i].Model, entries[i].Backend) < comboKey(entries[j].Model, entries[j].Backend)
	})
	return entries
}

func rankByPeakMemory(done []domain.CombinationResult) []domain.RankingEntry {
	var entries []domain.RankingEntry
	for _, res := range done {
		peak := 0.0
		for _, s := range res.Samples {
			if s.PeakMemoryMB > peak {
				peak = s.PeakMemoryMB
			}
		}
		entries = append(entries, domain.RankingEntry{
			Model:   res.Model,
			Backend: res.Backend,
			Value:   peak,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value < entries[j].Value
		}
		return comboKey(entries[i].Model, entries[i].Backend) < comboKey(entries[j].Model, entries[j].Backend)
	})
	return entries
}

func rankPositions(entries []domain.RankingEntry) map[string]int {
	ranks := make(map[string]int, len(entries))
	for i, e := range entries {
		ranks[comboKey(e.Model, e.Backend)] = i
	}
	return ranks
}

// RenderJSON serializes the report for machine consumption.
func RenderJSON(report domain.ComparisonReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// RenderMarkdown renders the same report as headed tables.
func RenderMarkdown(report domain.ComparisonReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Embedding + Vector Backend Benchmark\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Documents: %d\n\n", report.DocCount)
	fmt.Fprintf(&b, "Models: %d succeeded, %d failed\n\n",
		len(report.SuccessfulModels), len(report.FailedModels))

	fmt.Fprintf(&b, "## Speed ranking (embed, docs/sec)\n\n")
	writeRankingTable(&b, report.Rankings.Speed, "docs/sec")

	fmt.Fprintf(&b, "## Query speed ranking (queries/sec)\n\n")
	writeRankingTable(&b, report.Rankings.QuerySpeed, "queries/sec")

	fmt.Fprintf(&b, "## Memory ranking (peak MB, lower is better)\n\n")
	writeRankingTable(&b, report.Rankings.Memory, "peak MB")

	fmt.Fprintf(&b, "## Results\n\n")
	fmt.Fprintf(&b, "| Model | Backend | State | Embed (s) | Index (s) | Query (s) | Peak MB | Top-1 hits | Error |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|---|---|---|\n")
	for _, res := range report.Table {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %.2f | %.0f%% | %s |\n",
			res.Model, res.Backend, res.State,
			phaseSeconds(res, domain.PhaseEmbed),
			phaseSeconds(res, domain.PhaseIndex),
			phaseSeconds(res, domain.PhaseQuery),
			peakOf(res), res.Top1HitRate*100, res.Err)
	}
	b.WriteString("\n")

	if len(report.Quality) > 0 {
		fmt.Fprintf(&b, "## Embedding quality\n\n")
		fmt.Fprintf(&b, "| Model | Diversity | Avg pairwise sim | Sim stddev | Avg norm |\n")
		fmt.Fprintf(&b, "|---|---|---|---|---|\n")
		for _, q := range report.Quality {
			fmt.Fprintf(&b, "| %s | %.4f | %.4f | %.4f | %.4f |\n",
				q.Model, q.Diversity, q.AvgPairwiseSim, q.SimilarityStdev, q.AvgNorm)
		}
		b.WriteString("\n")
	}

	if len(report.FailedModels) > 0 {
		fmt.Fprintf(&b, "## Failed models\n\n")
		for _, m := range report.FailedModels {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintf(&b, "## Recommendations\n\n")
		for _, key := range []string{"fastest", "most_memory_efficient", "best_balance"} {
			if v, ok := report.Recommendations[key]; ok {
				fmt.Fprintf(&b, "- **%s**: %s\n", key, v)
			}
		}
	}

	return b.String()
}

func writeRankingTable(b *strings.Builder, entries []domain.RankingEntry, unit string) {
	if len(entries) == 0 {
		b.WriteString("No successful combinations.\n\n")
		return
	}
	fmt.Fprintf(b, "| Rank | Model | Backend | %s |\n", unit)
	fmt.Fprintf(b, "|---|---|---|---|\n")
	for i, e := range entries {
		fmt.Fprintf(b, "| %d | %s | %s | %.2f |\n", i+1, e.Model, e.Backend, e.Value)
	}
	b.WriteString("\n")
}

func phaseSeconds(res domain.CombinationResult, phase domain.Phase) string {
	if s, ok := res.Sample(phase); ok {
		return fmt.Sprintf("%.4f", s.ElapsedSec)
	}
	return "-"
}

func peakOf(res domain.CombinationResult) float64 {
	peak := 0.0
	for _, s := range res.Samples {
		if s.PeakMemoryMB > peak {
			peak = s.PeakMemoryMB
		}
	}
	return peak
}

// WriteReportFiles writes the JSON and Markdown renderings into dir with
// timestamped names, returning both paths.
func WriteReportFiles(dir string, report domain.ComparisonReport) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", err
	}

	stamp := report.GeneratedAt.Format("20060102T150405")
	jsonPath := filepath.Join(dir, fmt.Sprintf("vecbench_%s.json", stamp))
	mdPath := filepath.Join(dir, fmt.Sprintf("vecbench_%s.md", stamp))

	data, err := RenderJSON(report)
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(report)), 0644); err != nil {
		return "", "", err
	}

	return jsonPath, mdPath, nil
}
