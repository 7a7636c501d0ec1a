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

const (
	geminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiDefaultTimeout = 60 * time.Second
)

type geminiRequest struct {
	Contents          []geminiContent       `json:"contents"`
	SystemInstruction *geminiContent        `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig      `json:"generationConfig,omitempty"`
	SafetySettings    []geminiSafetySetting `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// permissiveSafety disables content blocking across all harm categories.
var permissiveSafety = []geminiSafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// GeminiClient talks to the Google Generative Language API.
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewGeminiClient loads GEMINI_API_KEY from the environment, falling back
// to the container secret path.
func NewGeminiClient() (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/gemini_api_key"
		if content, err := os.ReadFile(secretPath); err == nil {
			apiKey = strings.TrimSpace(string(content))
			slog.Info("Read the Gemini API Key from container secrets")
		} else {
			slog.Error("GEMINI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = geminiBaseURL
	}

	slog.Info("Initializing Gemini client")
	return &GeminiClient{
		httpClient: &http.Client{Timeout: geminiDefaultTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}, nil
}

// Generate implements the LLMClient interface.
func (g *GeminiClient) Generate(ctx context.Context, model, prompt string, params GenerationParams) (string, error) {
	slog.Debug("Generating text via Gemini", "model", model)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenConfig{
			Temperature:     params.Temperature,
			TopP:            params.TopP,
			TopK:            params.TopK,
			MaxOutputTokens: params.MaxTokens,
			StopSequences:   params.Stop,
		},
	}
	if params.SystemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: params.SystemPrompt}},
		}
	}
	if params.SafetyOff {
		reqBody.SafetySettings = permissiveSafety
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling Gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", g.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building Gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", ClassifyProviderError("gemini", model, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading Gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Gemini API call failed",
			"model", model, "status", resp.StatusCode, "body", truncateForLog(string(body)))
		return "", ClassifyProviderError("gemini", model, resp.StatusCode,
			fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncateForLog(string(body))))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &GenerationError{Kind: KindMalformed, Provider: "gemini", Model: model,
			Err: fmt.Errorf("decoding Gemini response: %w", err)}
	}
	if parsed.Error != nil {
		return "", ClassifyProviderError("gemini", model, parsed.Error.Code,
			fmt.Errorf("gemini error %s: %s", parsed.Error.Status, parsed.Error.Message))
	}

	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", EmptyResponseError("gemini", model)
}

func truncateForLog(s string) string {
	const max = 512
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
