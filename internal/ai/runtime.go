package ai

import "context"

// Runtime is a minimal interface implemented by language-model backends
// such as the aiproxy endpoint, hosted SDK clients and local Ollama.
// It aligns to the shared request/response types in this package.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderAIProxy   = "aiproxy"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderOllama:
		return "llama3.1:8b-instruct"
	default:
		return "gpt-4o-mini"
	}
}

// KeyEnv names the environment variable holding the provider's credential.
// Local providers need none and return "".
func KeyEnv(provider string) string {
	switch provider {
	case ProviderAIProxy:
		return "AIPROXY_TOKEN"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}
