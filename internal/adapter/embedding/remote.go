package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"vecbench/internal/domain"
)

// RemoteEmbedder calls an OpenAI-compatible /embeddings endpoint. Works
// against OpenAI itself and local servers such as Ollama. Remote models
// may be nondeterministic; the harness treats them as such.
type RemoteEmbedder struct {
	profile domain.ModelProfile
	apiKey  string
	baseURL string
	client  *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewRemoteEmbedder creates an embedder for a remote registry entry. A
// missing API key or base URL means the model cannot be loaded; that is
// reported as domain.ErrModelUnavailable so the sweep records it and
// moves on.
func NewRemoteEmbedder(profile domain.ModelProfile) (*RemoteEmbedder, error) {
	profile.Kind = domain.KindReal

	baseURL := profile.BaseURL
	apiKey := ""
	switch {
	case profile.Provider == "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		apiKey = "ollama"
	case profile.APIKeyEnv != "":
		apiKey = os.Getenv(profile.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: API key not set in %s", domain.ErrModelUnavailable, profile.APIKeyEnv)
		}
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
	default:
		return nil, fmt.Errorf("%w: no api_key_env or base_url for %q", domain.ErrModelUnavailable, profile.Name)
	}

	return &RemoteEmbedder{
		profile: profile,
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

func (e *RemoteEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, domain.WrapError("remote.Embed", domain.ErrInvalidInput)
	}

	const maxBatch = 100
	var all [][]float32

	for i := 0; i < len(texts); i += maxBatch {
		end := i + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}

	return all, nil
}

func (e *RemoteEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: e.profile.Model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview, err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}

	return embeddings, nil
}

func (e *RemoteEmbedder) Profile() domain.ModelProfile {
	return e.profile
}
