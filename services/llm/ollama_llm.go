package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// OllamaClient targets a local Ollama daemon. Used for the small on-box
// fallback models (gemma 4b / 1b class) when hosted providers throttle.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewOllamaClient() *OllamaClient {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
		slog.Info("OLLAMA_BASE_URL not set, using default", "base_url", baseURL)
	}
	return &OllamaClient{
		// Local models can be slow to first token on cold load.
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Generate implements the LLMClient interface.
func (o *OllamaClient) Generate(ctx context.Context, model, prompt string, params GenerationParams) (string, error) {
	slog.Debug("Generating text via Ollama", "model", model)

	opts := make(map[string]any)
	if params.Temperature != nil {
		opts["temperature"] = *params.Temperature
	}
	if params.TopK != nil {
		opts["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		opts["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		opts["num_predict"] = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		opts["stop"] = params.Stop
	}

	payload, err := json.Marshal(ollamaGenerateRequest{
		Model:   model,
		Prompt:  prompt,
		System:  params.SystemPrompt,
		Stream:  false,
		Options: opts,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling Ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building Ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", ClassifyProviderError("ollama", model, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading Ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", ClassifyProviderError("ollama", model, resp.StatusCode,
			fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, truncateForLog(string(body))))
	}

	var parsed ollamaGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &GenerationError{Kind: KindMalformed, Provider: "ollama", Model: model,
			Err: fmt.Errorf("decoding Ollama response: %w", err)}
	}
	if parsed.Error != "" {
		return "", ClassifyProviderError("ollama", model, 0, fmt.Errorf("ollama error: %s", parsed.Error))
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", EmptyResponseError("ollama", model)
	}
	return parsed.Response, nil
}
