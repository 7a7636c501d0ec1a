package llm

import "context"

// GenerationParams are the tunables passed through to a provider.
type GenerationParams struct {
	Temperature  *float32 `json:"temperature"`
	TopK         *int     `json:"top_k"`
	TopP         *float32 `json:"top_p"`
	MaxTokens    *int     `json:"max_tokens"`
	Stop         []string `json:"stop"`
	SystemPrompt string   `json:"system_prompt,omitempty"`

	// SafetyOff requests the provider's most permissive safety profile.
	// Verification prompts quote the misinformation they are checking, so
	// default profiles tend to block them.
	SafetyOff bool `json:"safety_off,omitempty"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, model, prompt string, params GenerationParams) (string, error)
}
