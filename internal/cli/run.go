package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vecbench/internal/adapter/backend"
	"vecbench/internal/adapter/fs"
	"vecbench/internal/domain"
	"vecbench/internal/index"
	"vecbench/internal/port"
	"vecbench/internal/usecase"
)

var (
	runMock       bool
	runReal       bool
	runQuick      bool
	runOut        string
	runNoProgress bool
)

var runCmd = &cobra.Command{
	Use:   "run [corpus-dir]",
	Short: "Run the benchmark sweep over a corpus directory",
	Long: `Run every (model, backend) combination over the documents found in
the corpus directory and write a JSON and a Markdown report.

The command exits 0 whenever the sweep completes, even if individual
combinations failed; failures are listed in the report. A non-zero exit
means the harness itself could not start (missing corpus, empty
registry).

Examples:
  vecbench run ./corpus --mock          # all models mocked, fast
  vecbench run ./corpus --real          # real models only
  vecbench run ./corpus --quick --mock  # truncated corpus`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runMock, "mock", false, "replace every model with a deterministic mock")
	runCmd.Flags().BoolVar(&runReal, "real", false, "benchmark only real (non-mock) models")
	runCmd.Flags().BoolVar(&runQuick, "quick", false, "cap the corpus for fast iteration")
	runCmd.Flags().StringVar(&runOut, "out", "", "report output directory (default from config)")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "disable the progress bar")
}

func runSweep(cmd *cobra.Command, args []string) error {
	corpusDir := "."
	if len(args) > 0 {
		corpusDir = args[0]
	}

	info, err := os.Stat(corpusDir)
	if err != nil {
		return fmt.Errorf("corpus directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus path is not a directory: %s", corpusDir)
	}

	limit := 0
	if runQuick {
		limit = cfg.Corpus.QuickLimit
	}
	loader := fs.NewLoader(cfg.Corpus.Includes, cfg.Corpus.Excludes, limit)
	docs, err := loader.Load(corpusDir)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	logger.Info("corpus loaded", "dir", corpusDir, "docs", len(docs))

	cfg.Models = selectModels(cfg.Models)

	backends := []port.Backend{
		backend.NewFlatBackend(),
		backend.NewNativeBackend(index.Config{
			M:              cfg.Bench.HNSWM,
			EfConstruction: cfg.Bench.HNSWEfConstruction,
			EfSearch:       cfg.Bench.HNSWEfSearch,
		}),
	}

	runner := usecase.NewRunner(cfg, backends, logger, !runNoProgress)
	sweep, err := runner.Sweep(cmd.Context(), docs)
	if err != nil {
		return err
	}

	report := usecase.BuildReport(sweep, time.Now())

	outDir := cfg.Report.OutputDir
	if runOut != "" {
		outDir = runOut
	}
	jsonPath, mdPath, err := usecase.WriteReportFiles(outDir, report)
	if err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}

	logger.Info("sweep complete",
		"combinations", len(report.Table),
		"succeeded_models", len(report.SuccessfulModels),
		"failed_models", len(report.FailedModels),
	)
	fmt.Printf("JSON report:     %s\n", filepath.Clean(jsonPath))
	fmt.Printf("Markdown report: %s\n", filepath.Clean(mdPath))
	if best, ok := report.Recommendations["best_balance"]; ok {
		fmt.Printf("Best balance:    %s\n", best)
	}

	return nil
}

// selectModels applies --mock/--real to the registry. --mock turns every
// entry into a mock of the same name and dimension so the full matrix
// still runs; --real keeps only non-mock providers.
func selectModels(models []domain.ModelProfile) []domain.ModelProfile {
	switch {
	case runMock:
		out := make([]domain.ModelProfile, len(models))
		for i, m := range models {
			m.Provider = "mock"
			out[i] = m
		}
		return out
	case runReal:
		var out []domain.ModelProfile
		for _, m := range models {
			if m.Provider != "mock" {
				out = append(out, m)
			}
		}
		return out
	default:
		return models
	}
}
