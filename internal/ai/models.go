package ai

import (
	"sort"
	"strings"
)

// Model metadata and simple pricing helpers for UX warnings.
// Prices are illustrative; check the provider's price list before relying on them.

type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"gpt-4o-mini": {
		Name:          "gpt-4o-mini",
		ContextTokens: 128000,
		InputPerK:     0.00015,
		OutputPerK:    0.0006,
	},
	"gpt-4o": {
		Name:          "gpt-4o",
		ContextTokens: 128000,
		InputPerK:     0.0025,
		OutputPerK:    0.01,
	},
	"gpt-4.1-mini": {
		Name:          "gpt-4.1-mini",
		ContextTokens: 1047576,
		InputPerK:     0.0004,
		OutputPerK:    0.0016,
	},
	"gpt-4.1-nano": {
		Name:          "gpt-4.1-nano",
		ContextTokens: 1047576,
		InputPerK:     0.0001,
		OutputPerK:    0.0004,
	},
	"claude-3-5-haiku-latest": {
		Name:          "claude-3-5-haiku-latest",
		ContextTokens: 200000,
		InputPerK:     0.0008,
		OutputPerK:    0.004,
	},
	"claude-sonnet-4-0": {
		Name:          "claude-sonnet-4-0",
		ContextTokens: 200000,
		InputPerK:     0.003,
		OutputPerK:    0.015,
	},
	// Common local (Ollama) tags
	"llama3:latest": {
		Name:          "llama3:latest",
		ContextTokens: 8192,
	},
	"llama3.1:8b-instruct": {
		Name:          "llama3.1:8b-instruct",
		ContextTokens: 8192,
	},
	"mistral:7b-instruct": {
		Name:          "mistral:7b-instruct",
		ContextTokens: 8192,
	},
	"phi3:mini-4k-instruct": {
		Name:          "phi3:mini-4k-instruct",
		ContextTokens: 4096,
	},
}

// LookupModel returns ModelInfo and ok flag. A provider prefix such as
// "openai/" is ignored when the full name is not in the catalog.
func LookupModel(name string) (ModelInfo, bool) {
	if mi, ok := models[name]; ok {
		return mi, true
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		mi, ok := models[name[i+1:]]
		return mi, ok
	}
	return ModelInfo{}, false
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// ExceedsContext reports whether prompt plus completion tokens overflow the
// model's context window. Unknown models never overflow.
func ExceedsContext(model string, promptTokens, completionTokens int) (ModelInfo, bool) {
	mi, ok := LookupModel(model)
	if !ok || mi.ContextTokens <= 0 {
		return mi, false
	}
	return mi, promptTokens+completionTokens > mi.ContextTokens
}

// Catalog returns the known models sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
