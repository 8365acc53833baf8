package domain

import "time"

// Document is one corpus entry. Loaded once, never mutated.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Embedding is one (document, model) vector.
type Embedding struct {
	DocumentID string
	Values     []float32
	Dim        int
}

// ModelKind distinguishes real models from deterministic mocks.
type ModelKind string

const (
	KindReal ModelKind = "real"
	KindMock ModelKind = "mock"
)

// ModelProfile is the static descriptor for one registered embedding model.
type ModelProfile struct {
	Name         string    `yaml:"name" json:"name"`
	Provider     string    `yaml:"provider" json:"provider"`
	Model        string    `yaml:"model,omitempty" json:"model,omitempty"`
	Dim          int       `yaml:"dim" json:"dim"`
	ApproxSizeMB float64   `yaml:"approx_size_mb" json:"approx_size_mb"`
	Languages    []string  `yaml:"languages,omitempty" json:"languages,omitempty"`
	Kind         ModelKind `yaml:"-" json:"kind"`
	APIKeyEnv    string    `yaml:"api_key_env,omitempty" json:"-"`
	BaseURL      string    `yaml:"base_url,omitempty" json:"-"`
}

// Phase identifies which part of a combination is being measured.
type Phase string

const (
	PhaseEmbed Phase = "embed"
	PhaseIndex Phase = "index"
	PhaseQuery Phase = "query"
)

// TimingSample is one measurement of one phase of one combination.
// Immutable once recorded.
type TimingSample struct {
	Phase        Phase   `json:"phase"`
	Model        string  `json:"model"`
	Backend      string  `json:"backend"`
	ElapsedSec   float64 `json:"elapsed_seconds"`
	PeakMemoryMB float64 `json:"peak_memory_mb"`
	DocCount     int     `json:"doc_count"`
}

// Throughput returns documents per second for the sample, 0 if elapsed is 0.
func (s TimingSample) Throughput() float64 {
	if s.ElapsedSec <= 0 {
		return 0
	}
	return float64(s.DocCount) / s.ElapsedSec
}

// CombinationState is the lifecycle of one (model, backend) pair.
type CombinationState string

const (
	StatePending   CombinationState = "PENDING"
	StateEmbedding CombinationState = "EMBEDDING"
	StateIndexing  CombinationState = "INDEXING"
	StateQuerying  CombinationState = "QUERYING"
	StateDone      CombinationState = "DONE"
	StateFailed    CombinationState = "FAILED"
)

// CombinationResult is the per-pair outcome of a sweep. A failed pair keeps
// whatever samples were recorded before the failure plus an error string;
// it is never dropped from the report.
type CombinationResult struct {
	Model       string           `json:"model"`
	Backend     string           `json:"backend"`
	State       CombinationState `json:"state"`
	Samples     []TimingSample   `json:"samples"`
	Top1HitRate float64          `json:"top1_hit_rate"`
	Err         string           `json:"error,omitempty"`
}

// Failed reports whether the combination ended in the FAILED state.
func (c CombinationResult) Failed() bool {
	return c.State == StateFailed
}

// Sample returns the sample for a phase, if the phase completed.
func (c CombinationResult) Sample(p Phase) (TimingSample, bool) {
	for _, s := range c.Samples {
		if s.Phase == p {
			return s, true
		}
	}
	return TimingSample{}, false
}

// QualityMetrics are per-model embedding diagnostics, store-independent.
type QualityMetrics struct {
	Model           string  `json:"model"`
	Diversity       float64 `json:"diversity"`
	AvgPairwiseSim  float64 `json:"avg_pairwise_similarity"`
	SimilarityStdev float64 `json:"similarity_stddev"`
	AvgNorm         float64 `json:"avg_norm"`
	SampledPairs    int     `json:"sampled_pairs"`
}

// RankingEntry is one row of a speed or memory ranking.
type RankingEntry struct {
	Model   string  `json:"model"`
	Backend string  `json:"backend"`
	Value   float64 `json:"value"`
}

// Rankings orders combinations by throughput and by memory.
type Rankings struct {
	Speed      []RankingEntry `json:"speed"`
	QuerySpeed []RankingEntry `json:"query_speed"`
	Memory     []RankingEntry `json:"memory"`
}

// ComparisonReport is the single aggregate produced by a run.
type ComparisonReport struct {
	GeneratedAt      time.Time           `json:"generated_at"`
	DocCount         int                 `json:"doc_count"`
	SuccessfulModels []string            `json:"successful_models"`
	FailedModels     []string            `json:"failed_models"`
	Rankings         Rankings            `json:"rankings"`
	Table            []CombinationResult `json:"table"`
	Quality          []QualityMetrics    `json:"quality"`
	Recommendations  map[string]string   `json:"recommendations"`
}
