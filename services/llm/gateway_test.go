package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeClient scripts per-model responses for fallback-chain tests.
type fakeClient struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeClient) Generate(_ context.Context, model, _ string, _ GenerationParams) (string, error) {
	f.calls = append(f.calls, model)
	if err, ok := f.errs[model]; ok {
		return "", err
	}
	return f.responses[model], nil
}

// =============================================================================
// Resolve / ProviderFor Tests
// =============================================================================

func TestResolve(t *testing.T) {
	tests := []struct {
		alias string
		want  string
	}{
		{"flash", "gemini-2.0-flash"},
		{"FLASH", "gemini-2.0-flash"},
		{" pro ", "gemini-2.5-pro"},
		{"gemma-4b", "gemma3:4b"},
		{"gpt", "gpt-4o-mini"},
		{"custom-model-7b", "custom-model-7b"}, // unknown passes through
	}

	for _, tt := range tests {
		if got := Resolve(tt.alias); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.alias, got, tt.want)
		}
	}
}

func TestProviderFor(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gemini-2.0-flash", "gemini"},
		{"gemini-2.5-pro", "gemini"},
		{"gemma-hosted-9b", "gemini"}, // hosted gemma stays on the Gemini adapter
		{"gemma3:4b", "ollama"},
		{"llama3:8b", "ollama"}, // tag syntax routes local
		{"gpt-4o-mini", "openai"},
		{"o3-mini", "openai"},
	}

	for _, tt := range tests {
		if got := ProviderFor(tt.model); got != tt.want {
			t.Errorf("ProviderFor(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGenerate_RoutesByProvider(t *testing.T) {
	gemini := &fakeClient{responses: map[string]string{"gemini-2.0-flash": "from gemini"}}
	ollama := &fakeClient{responses: map[string]string{"gemma3:4b": "from ollama"}}
	g := NewGatewayWithClients(gemini, ollama, nil)

	out, err := g.Generate(context.Background(), "flash", "prompt", GenerationParams{}, 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "from gemini" {
		t.Errorf("Generate() = %q, want routed to gemini", out)
	}

	out, err = g.Generate(context.Background(), "gemma3:4b", "prompt", GenerationParams{}, 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "from ollama" {
		t.Errorf("Generate() = %q, want routed to ollama", out)
	}
}

func TestGenerate_UnconfiguredProvider(t *testing.T) {
	g := NewGatewayWithClients(nil, nil, nil)

	_, err := g.Generate(context.Background(), "flash", "prompt", GenerationParams{}, 0)
	if err == nil {
		t.Fatal("expected error for unconfigured provider")
	}
	if KindOf(err) != KindProviderError {
		t.Errorf("KindOf(err) = %v, want PROVIDER_ERROR", KindOf(err))
	}
}

func TestGenerate_EmptyOutputIsEmptyKind(t *testing.T) {
	gemini := &fakeClient{responses: map[string]string{"gemini-2.0-flash": "   "}}
	g := NewGatewayWithClients(gemini, nil, nil)

	_, err := g.Generate(context.Background(), "flash", "prompt", GenerationParams{}, 0)
	if err == nil {
		t.Fatal("expected error for blank output")
	}
	if KindOf(err) != KindEmpty {
		t.Errorf("KindOf(err) = %v, want EMPTY", KindOf(err))
	}
}

// =============================================================================
// GenerateWithFallback Tests
// =============================================================================

func TestGenerateWithFallback_FirstSuccessWins(t *testing.T) {
	gemini := &fakeClient{responses: map[string]string{"gemini-2.0-flash": "winner"}}
	ollama := &fakeClient{responses: map[string]string{"gemma3:4b": "runner-up"}}
	g := NewGatewayWithClients(gemini, ollama, nil)

	out, err := g.GenerateWithFallback(context.Background(), DefaultPlannerChain(), "p", GenerationParams{}, 0)
	if err != nil {
		t.Fatalf("GenerateWithFallback() error = %v", err)
	}
	if out != "winner" {
		t.Errorf("output = %q, want %q", out, "winner")
	}
	if len(ollama.calls) != 0 {
		t.Errorf("later chain member called despite earlier success: %v", ollama.calls)
	}
}

func TestGenerateWithFallback_AdvancesOnFailure(t *testing.T) {
	gemini := &fakeClient{errs: map[string]error{
		"gemini-2.0-flash": &GenerationError{Kind: KindProviderError, Provider: "gemini", Model: "gemini-2.0-flash", Err: errors.New("boom")},
	}}
	ollama := &fakeClient{responses: map[string]string{"gemma3:4b": "fallback answer"}}
	g := NewGatewayWithClients(gemini, ollama, nil)

	out, err := g.GenerateWithFallback(context.Background(), DefaultPlannerChain(), "p", GenerationParams{}, 0)
	if err != nil {
		t.Fatalf("GenerateWithFallback() error = %v", err)
	}
	if out != "fallback answer" {
		t.Errorf("output = %q, want fallback answer", out)
	}
}

func TestGenerateWithFallback_RateLimitSkipsProvider(t *testing.T) {
	// Both gemini members of the synthesizer chain share a provider;
	// a RATE_LIMIT on the first must skip the second.
	gemini := &fakeClient{errs: map[string]error{
		"gemini-2.5-pro": &GenerationError{Kind: KindRateLimit, Provider: "gemini", Model: "gemini-2.5-pro", Err: errors.New("quota exceeded")},
	}}
	ollama := &fakeClient{responses: map[string]string{"gemma3:4b": "local answer"}}
	g := NewGatewayWithClients(gemini, ollama, nil)

	out, err := g.GenerateWithFallback(context.Background(), DefaultSynthesizerChain(), "p", GenerationParams{}, 0)
	if err != nil {
		t.Fatalf("GenerateWithFallback() error = %v", err)
	}
	if out != "local answer" {
		t.Errorf("output = %q, want local answer", out)
	}
	for _, model := range gemini.calls {
		if model == "gemini-2.0-flash" {
			t.Error("rate-limited provider was called again within the same chain")
		}
	}
}

func TestGenerateWithFallback_AllFail(t *testing.T) {
	gemini := &fakeClient{errs: map[string]error{
		"gemini-2.0-flash": errors.New("gemini down"),
	}}
	ollama := &fakeClient{errs: map[string]error{
		"gemma3:4b": errors.New("ollama down"),
		"gemma3:1b": errors.New("ollama down"),
	}}
	g := NewGatewayWithClients(gemini, ollama, nil)

	_, err := g.GenerateWithFallback(context.Background(), DefaultPlannerChain(), "p", GenerationParams{}, 0)
	if err == nil {
		t.Fatal("expected error when every chain member fails")
	}
	if !strings.Contains(err.Error(), "chain members failed") {
		t.Errorf("error = %v, want chain failure summary", err)
	}
}

func TestGenerateWithFallback_EmptyChain(t *testing.T) {
	g := NewGatewayWithClients(nil, nil, nil)
	_, err := g.GenerateWithFallback(context.Background(), nil, "p", GenerationParams{}, 0)
	if err == nil {
		t.Fatal("expected error for empty chain")
	}
}

// =============================================================================
// Error Classification Tests
// =============================================================================

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		want       ErrorKind
	}{
		{"http 429", 429, errors.New("too many requests"), KindRateLimit},
		{"quota message", 0, errors.New("RESOURCE_EXHAUSTED: quota exceeded"), KindRateLimit},
		{"deadline", 0, context.DeadlineExceeded, KindTimeout},
		{"generic", 500, errors.New("internal error"), KindProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge := ClassifyProviderError("gemini", "gemini-2.0-flash", tt.statusCode, tt.err)
			if ge.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", ge.Kind, tt.want)
			}
		})
	}
}

func TestKindOf_WrappedError(t *testing.T) {
	inner := &GenerationError{Kind: KindRateLimit, Provider: "gemini", Model: "m", Err: errors.New("quota")}
	wrapped := errors.Join(errors.New("outer"), inner)
	if got := KindOf(wrapped); got != KindRateLimit {
		t.Errorf("KindOf(wrapped) = %v, want RATE_LIMIT", got)
	}
}
