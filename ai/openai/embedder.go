package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tessara/groundline/ai"
)

const embedderTimeout = 60 * time.Second

// Embedder implements ai.Embedder against OpenAI-compatible embedding APIs.
//
// It speaks the wire protocol directly instead of going through a client
// wrapper: the API may return embeddings in any order, and the response's
// per-item index is the only reliable way to map them back to their input
// positions.
type Embedder struct {
	endpoint   string
	token      string
	model      string
	dimensions int
	batchSize  int
	httpClient *http.Client
	logger     *slog.Logger
}

// embeddingRequest is the request body for the embeddings endpoint.
type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format"`
}

// embeddingResponse is the response body from the embeddings endpoint.
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Embedder{
		endpoint:   config.EmbeddingHost + "/embeddings",
		token:      config.APIToken,
		model:      config.EmbeddingModel,
		dimensions: config.EmbeddingDimensions,
		batchSize:  config.EmbeddingBatchSize,
		httpClient: &http.Client{Timeout: embedderTimeout},
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ai.ErrNoEmbeddingData
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings. The
// input is split into batches of the configured size; results come back
// in input order. An empty input makes no API call at all.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		if err := e.embedBatch(ctx, texts[start:end], vectors[start:end]); err != nil {
			return nil, err
		}
	}

	for i, v := range vectors {
		if v == nil {
			e.logger.Error("provider returned no embedding for input", "index", i)
			return nil, ai.ErrEmbeddingCountMismatch
		}
	}
	return vectors, nil
}

// embedBatch sends one embedding request and writes the results into out,
// re-ordered by the provider's per-item index.
func (e *Embedder) embedBatch(ctx context.Context, texts []string, out [][]float32) error {
	cleaned := make([]string, len(texts))
	for i, text := range texts {
		cleaned[i] = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	}

	body, err := json.Marshal(embeddingRequest{
		Input:          cleaned,
		Model:          e.model,
		Dimensions:     e.dimensions,
		EncodingFormat: "float",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return &ai.ProviderError{StatusCode: 0, Message: err.Error(), Model: e.model}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e.logger.Error("embedding request failed", "status", resp.StatusCode)
		return &ai.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			Model:      e.model,
		}
	}

	var response embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return err
	}
	if len(response.Data) == 0 {
		return ai.ErrNoEmbeddingData
	}
	if len(response.Data) != len(texts) {
		return ai.ErrEmbeddingCountMismatch
	}

	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return ai.ErrEmbeddingCountMismatch
		}
		out[item.Index] = item.Embedding
	}

	e.logger.Debug("generated embeddings",
		"count", len(texts),
		"tokens", response.Usage.TotalTokens)
	return nil
}
