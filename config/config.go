package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vecbench/internal/domain"
)

// Config holds all configuration for the benchmark harness.
type Config struct {
	Corpus  CorpusConfig          `yaml:"corpus"`
	Bench   BenchConfig           `yaml:"bench"`
	Quality QualityConfig         `yaml:"quality"`
	Report  ReportConfig          `yaml:"report"`
	Logging LoggingConfig         `yaml:"logging"`
	Models  []domain.ModelProfile `yaml:"models"`
}

// CorpusConfig controls which files become benchmark documents.
type CorpusConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	// QuickLimit caps the document count when --quick is set.
	QuickLimit int `yaml:"quick_limit"`
}

// BenchConfig controls the sweep itself.
type BenchConfig struct {
	// QueryCount is how many corpus vectors are replayed as queries.
	QueryCount int `yaml:"query_count"`
	TopK       int `yaml:"top_k"`
	// PhaseTimeoutSec bounds each embed/index/query phase. 0 disables.
	PhaseTimeoutSec int `yaml:"phase_timeout_sec"`
	// HNSW parameters for the native backend.
	HNSWM              int `yaml:"hnsw_m"`
	HNSWEfConstruction int `yaml:"hnsw_ef_construction"`
	HNSWEfSearch       int `yaml:"hnsw_ef_search"`
}

// QualityConfig controls embedding-quality evaluation.
type QualityConfig struct {
	// SamplePairs caps how many vector pairs are compared.
	SamplePairs int   `yaml:"sample_pairs"`
	Seed        int64 `yaml:"seed"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration, including the default
// model registry. Adding a model means adding a registry entry here or in
// the yaml file, never runner code.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Includes:   []string{"**/*.txt", "**/*.md"},
			Excludes:   []string{"**/node_modules/**", "**/vendor/**", "**/.git/**"},
			QuickLimit: 50,
		},
		Bench: BenchConfig{
			QueryCount:         10,
			TopK:               5,
			PhaseTimeoutSec:    120,
			HNSWM:              16,
			HNSWEfConstruction: 200,
			HNSWEfSearch:       50,
		},
		Quality: QualityConfig{
			SamplePairs: 500,
			Seed:        42,
		},
		Report: ReportConfig{
			OutputDir: "reports",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Models: []domain.ModelProfile{
			{
				Name:         "mock-small",
				Provider:     "mock",
				Dim:          384,
				ApproxSizeMB: 0,
				Languages:    []string{"any"},
			},
			{
				Name:         "mock-large",
				Provider:     "mock",
				Dim:          768,
				ApproxSizeMB: 0,
				Languages:    []string{"any"},
			},
			{
				Name:         "tfidf",
				Provider:     "tfidf",
				Dim:          1024,
				ApproxSizeMB: 4,
				Languages:    []string{"en"},
			},
			{
				Name:         "nomic-embed-text",
				Provider:     "ollama",
				Model:        "nomic-embed-text",
				Dim:          768,
				ApproxSizeMB: 274,
				Languages:    []string{"en"},
				BaseURL:      "http://localhost:11434/v1",
			},
		},
	}
}

// Load loads configuration from a YAML file. Missing files yield defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for vecbench.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "vecbench.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
