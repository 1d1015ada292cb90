package unifiedllm

import (
	"slices"
	"strings"
	"sync"
)

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	SupportsTools bool     `json:"supports_tools"`
	Aliases       []string `json:"aliases,omitempty"`
}

// Models is the built-in model catalog. Context windows for local models are
// the defaults published with the model, not what a server may be configured
// to allow.
var Models = []ModelInfo{
	// Ollama
	{
		ID: "llama3.2", Provider: ProviderOllama, DisplayName: "Llama 3.2 3B",
		ContextWindow: 131072, SupportsTools: true,
		Aliases: []string{"llama3.2:latest", "llama3.2:3b"},
	},
	{
		ID: "llama3.1:8b", Provider: ProviderOllama, DisplayName: "Llama 3.1 8B",
		ContextWindow: 131072, SupportsTools: true,
		Aliases: []string{"llama3.1", "llama3.1:latest"},
	},
	{
		ID: "qwen2.5-coder:32b", Provider: ProviderOllama, DisplayName: "Qwen2.5 Coder 32B",
		ContextWindow: 32768, SupportsTools: true,
		Aliases: []string{"qwen2.5-coder"},
	},
	{
		ID: "qwen2.5-coder:7b", Provider: ProviderOllama, DisplayName: "Qwen2.5 Coder 7B",
		ContextWindow: 32768, SupportsTools: true,
	},
	{
		ID: "deepseek-coder-v2:16b", Provider: ProviderOllama, DisplayName: "DeepSeek Coder V2 16B",
		ContextWindow: 163840, SupportsTools: false,
		Aliases: []string{"deepseek-coder-v2"},
	},
	{
		ID: "codellama:13b", Provider: ProviderOllama, DisplayName: "Code Llama 13B",
		ContextWindow: 16384, SupportsTools: false,
		Aliases: []string{"codellama"},
	},

	// OpenAI
	{
		ID: "gpt-4o-mini", Provider: ProviderOpenAI, DisplayName: "GPT-4o mini",
		ContextWindow: 128000, SupportsTools: true,
	},
	{
		ID: "gpt-4o", Provider: ProviderOpenAI, DisplayName: "GPT-4o",
		ContextWindow: 128000, SupportsTools: true,
	},

	// Anthropic
	{
		ID: "claude-sonnet-4-5", Provider: ProviderAnthropic, DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, SupportsTools: true,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},
	{
		ID: "claude-haiku-4-5", Provider: ProviderAnthropic, DisplayName: "Claude Haiku 4.5",
		ContextWindow: 200000, SupportsTools: true,
		Aliases: []string{"haiku"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
// An Ollama tag that is not listed falls back to the bare model name, so
// "qwen2.5-coder:1.5b" resolves to the qwen2.5-coder entry.
func GetModelInfo(modelID string) *ModelInfo {
	index := modelIndex()
	if i, ok := index[modelID]; ok {
		return &Models[i]
	}
	if base, _, ok := strings.Cut(modelID, ":"); ok {
		if i, ok := index[base]; ok {
			return &Models[i]
		}
	}
	return nil
}

// modelIndex maps IDs and aliases to positions in Models. Earlier entries
// win when a name is listed twice.
var modelIndex = sync.OnceValue(func() map[string]int {
	index := make(map[string]int)
	for i, m := range Models {
		for _, name := range append([]string{m.ID}, m.Aliases...) {
			if _, taken := index[name]; !taken {
				index[name] = i
			}
		}
	}
	return index
})

// ListModels returns a copy of the catalog, restricted to provider unless it
// is empty.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		return slices.Clone(Models)
	}
	return slices.DeleteFunc(slices.Clone(Models), func(m ModelInfo) bool {
		return m.Provider != provider
	})
}

// GetLatestModel returns the preferred tool-capable model of a provider,
// which is the first one listed.
func GetLatestModel(provider string) *ModelInfo {
	i := slices.IndexFunc(Models, func(m ModelInfo) bool {
		return m.Provider == provider && m.SupportsTools
	})
	if i < 0 {
		return nil
	}
	return &Models[i]
}
