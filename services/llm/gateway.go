package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("factlens.llm.gateway")

// DefaultTimeout bounds a single generation call unless the caller
// overrides it (flash mode passes 0 to disable the wrap).
const DefaultTimeout = 30 * time.Second

// modelAliases maps user-facing names to canonical provider model ids.
// Unknown aliases are forwarded as-is.
var modelAliases = map[string]string{
	"flash":       "gemini-2.0-flash",
	"gemini":      "gemini-2.0-flash",
	"gemini-pro":  "gemini-2.5-pro",
	"pro":         "gemini-2.5-pro",
	"gemma-4b":    "gemma3:4b",
	"gemma-1b":    "gemma3:1b",
	"gpt":         "gpt-4o-mini",
	"gpt-4o":      "gpt-4o",
	"gpt-4o-mini": "gpt-4o-mini",
}

// ModelRef names one member of a fallback chain.
type ModelRef struct {
	Provider string // "gemini", "ollama", "openai"
	Model    string
}

// Gateway routes generation requests to provider adapters by model name
// prefix and runs compound fallback chains across them.
//
// # Description
//
// A name containing "gemini" or "gemma-hosted" routes to the Gemini
// adapter; a name containing "gemma" or a ":" tag routes to Ollama;
// everything else goes to the OpenAI-compatible adapter. Clients are
// reusable and safe for concurrent use.
type Gateway struct {
	gemini LLMClient
	ollama LLMClient
	openai LLMClient
}

// NewGateway wires whatever adapters can be constructed from the
// environment. Missing credentials disable an adapter rather than
// failing startup; at least one adapter must come up.
func NewGateway() (*Gateway, error) {
	g := &Gateway{}

	if gem, err := NewGeminiClient(); err == nil {
		g.gemini = gem
	} else {
		slog.Warn("Gemini adapter disabled", "error", err)
	}
	g.ollama = NewOllamaClient()
	if oa, err := NewOpenAIClient(); err == nil {
		g.openai = oa
	} else {
		slog.Warn("OpenAI adapter disabled", "error", err)
	}

	if g.gemini == nil && g.openai == nil && g.ollama == nil {
		return nil, fmt.Errorf("no LLM adapter could be initialized")
	}
	return g, nil
}

// NewGatewayWithClients is the dependency-injection constructor used by
// tests and by callers that manage their own adapters.
func NewGatewayWithClients(gemini, ollama, openai LLMClient) *Gateway {
	return &Gateway{gemini: gemini, ollama: ollama, openai: openai}
}

// Resolve normalizes a user-facing model alias to a canonical model id.
func Resolve(alias string) string {
	key := strings.ToLower(strings.TrimSpace(alias))
	if canonical, ok := modelAliases[key]; ok {
		return canonical
	}
	return alias
}

// ProviderFor picks an adapter name by model-id prefix. The
// "gemma-hosted" check runs before the bare "gemma" one so hosted
// gemma variants reach the Gemini adapter.
func ProviderFor(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "gemini"), strings.Contains(lower, "gemma-hosted"):
		return "gemini"
	case strings.Contains(lower, "gemma"), strings.Contains(lower, ":"):
		return "ollama"
	default:
		return "openai"
	}
}

// Generate resolves the alias, routes to the adapter, and enforces the
// timeout. timeout <= 0 leaves the caller's context untouched.
func (g *Gateway) Generate(ctx context.Context, modelAlias, prompt string, params GenerationParams, timeout time.Duration) (string, error) {
	model := Resolve(modelAlias)
	providerName := ProviderFor(model)

	ctx, span := tracer.Start(ctx, "llm.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.String("llm.provider", providerName),
	)

	client := g.clientFor(providerName)
	if client == nil {
		return "", &GenerationError{
			Kind: KindProviderError, Provider: providerName, Model: model,
			Err: fmt.Errorf("provider %s is not configured", providerName),
		}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := client.Generate(ctx, model, prompt, params)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &GenerationError{Kind: KindTimeout, Provider: providerName, Model: model, Err: ctx.Err()}
		}
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", EmptyResponseError(providerName, model)
	}
	return out, nil
}

// GenerateWithFallback attempts each chain member in order and returns
// the first success. A RATE_LIMIT failure skips every later member of
// the same provider; other failures just advance. If all members fail,
// the last error surfaces.
func (g *Gateway) GenerateWithFallback(ctx context.Context, chain []ModelRef, prompt string, params GenerationParams, timeout time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.GenerateWithFallback")
	defer span.End()
	span.SetAttributes(attribute.Int("llm.chain_length", len(chain)))

	var lastErr error
	skippedProviders := make(map[string]bool)

	for _, ref := range chain {
		if skippedProviders[ref.Provider] {
			slog.Debug("Skipping rate-limited provider", "provider", ref.Provider, "model", ref.Model)
			continue
		}
		out, err := g.Generate(ctx, ref.Model, prompt, params, timeout)
		if err == nil {
			span.SetAttributes(attribute.String("llm.winning_model", ref.Model))
			return out, nil
		}
		lastErr = err

		kind := KindOf(err)
		slog.Warn("Fallback chain member failed",
			"provider", ref.Provider, "model", ref.Model, "kind", string(kind), "error", err)
		if kind == KindRateLimit {
			skippedProviders[ref.Provider] = true
		}
		if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
			// Caller cancelled; stop burning providers.
			break
		}
	}

	if lastErr == nil {
		lastErr = &GenerationError{Kind: KindProviderError, Provider: "gateway", Model: "",
			Err: fmt.Errorf("empty fallback chain")}
	}
	return "", fmt.Errorf("all %d chain members failed: %w", len(chain), lastErr)
}

func (g *Gateway) clientFor(provider string) LLMClient {
	switch provider {
	case "gemini":
		return g.gemini
	case "ollama":
		return g.ollama
	default:
		return g.openai
	}
}

// DefaultPlannerChain is the planning fallback order: hosted flash model
// first, then the local gemma models.
func DefaultPlannerChain() []ModelRef {
	return []ModelRef{
		{Provider: "gemini", Model: "gemini-2.0-flash"},
		{Provider: "ollama", Model: "gemma3:4b"},
		{Provider: "ollama", Model: "gemma3:1b"},
	}
}

// DefaultSynthesizerChain prefers the strong reasoning model and degrades
// through the same locals.
func DefaultSynthesizerChain() []ModelRef {
	return []ModelRef{
		{Provider: "gemini", Model: "gemini-2.5-pro"},
		{Provider: "gemini", Model: "gemini-2.0-flash"},
		{Provider: "ollama", Model: "gemma3:4b"},
	}
}
