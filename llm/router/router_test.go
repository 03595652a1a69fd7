package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model string
		want  Provider
	}{
		{"gpt-4o", ProviderOpenAI},
		{"gpt-3.5-turbo", ProviderOpenAI},
		{"o1-mini", ProviderOpenAI},
		{"anthropic/claude-3.5-sonnet", ProviderOpenRouter},
		{"google/gemini-pro", ProviderOpenRouter},
		{"meta-llama/llama-3.1-70b-instruct", ProviderOpenRouter},
		{"claude-3.5-sonnet", ProviderOpenRouter}, // alias
		{"gemini-flash", ProviderOpenRouter},      // alias
		{"llama-3.1-70b-versatile", ProviderGroq},
		{"mixtral-8x7b-32768", ProviderGroq},
		{"deepseek-chat", ProviderDeepSeek},
		{"deepseek-reasoner", ProviderDeepSeek},
		{"deepseek/deepseek-chat", ProviderOpenRouter},
		{"mistral-large-latest", ProviderMistral},
		{"codestral-latest", ProviderMistral},
		{"mistralai/mistral-large", ProviderOpenRouter},
		{"ollama/llama3", ProviderOllama},
		{"local/phi-3", ProviderOllama},
		{"qwen-turbo", ProviderQwen},
		{"qwen/qwen-2.5-72b", ProviderOpenRouter},
		{"some-unknown-model", ProviderOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectProvider(tt.model))
		})
	}
}

func TestDetectProvider_AliasBeatsGroqPrefix(t *testing.T) {
	// "llama-3.1-70b" is both an alias and a Groq prefix match;
	// the alias table wins
	assert.Equal(t, ProviderOpenRouter, DetectProvider("llama-3.1-70b"))
	assert.Equal(t, ProviderOpenRouter, DetectProvider("mixtral-8x7b"))
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "anthropic/claude-3.5-sonnet", ResolveModel("claude-3.5-sonnet"))
	assert.Equal(t, "meta-llama/llama-3.1-405b-instruct", ResolveModel("llama-3.1-405b"))
	assert.Equal(t, "gpt-4o", ResolveModel("gpt-4o"))
}

func testConfig() Config {
	return Config{
		OpenAI:     Endpoint{BaseURL: "https://api.openai.com", APIKey: "sk-openai"},
		OpenRouter: Endpoint{BaseURL: "https://openrouter.ai/api", APIKey: "sk-or"},
		Groq:       Endpoint{BaseURL: "https://api.groq.com/openai", APIKey: "gsk-groq"},
		DeepSeek:   Endpoint{BaseURL: "https://api.deepseek.com", APIKey: "sk-ds"},
		Mistral:    Endpoint{BaseURL: "https://api.mistral.ai", APIKey: "sk-mistral"},
		Ollama:     Endpoint{BaseURL: "http://localhost:11434"},
		Qwen:       Endpoint{BaseURL: "https://dashscope.aliyuncs.com/compatible-mode", APIKey: "sk-qwen"},
	}
}

func TestResolve_OpenAIDefault(t *testing.T) {
	r := NewRouter(testConfig(), zap.NewNop())

	route := r.Resolve("gpt-4o", "")

	assert.Equal(t, ProviderOpenAI, route.Provider)
	assert.Equal(t, "gpt-4o", route.Model)
	assert.Equal(t, "https://api.openai.com", route.BaseURL)
	assert.Equal(t, "sk-openai", route.APIKey)
	assert.Empty(t, route.ExtraHeaders)
}

func TestResolve_AliasGoesToOpenRouterWithHeaders(t *testing.T) {
	r := NewRouter(testConfig(), zap.NewNop())

	route := r.Resolve("claude-3.5-sonnet", "")

	assert.Equal(t, ProviderOpenRouter, route.Provider)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", route.Model)
	assert.Equal(t, "sk-or", route.APIKey)
	assert.Equal(t, "https://agentwall.io", route.ExtraHeaders["HTTP-Referer"])
	assert.Equal(t, "AgentWall", route.ExtraHeaders["X-Title"])
}

func TestResolve_PassThroughCredentialWins(t *testing.T) {
	r := NewRouter(testConfig(), zap.NewNop())

	route := r.Resolve("gpt-4o", "sk-user-own-key")

	assert.Equal(t, "sk-user-own-key", route.APIKey)
}

func TestResolve_OllamaIgnoresCredential(t *testing.T) {
	r := NewRouter(testConfig(), zap.NewNop())

	route := r.Resolve("ollama/llama3", "sk-user-own-key")

	assert.Equal(t, ProviderOllama, route.Provider)
	assert.Equal(t, "ollama", route.APIKey)
	assert.Equal(t, "http://localhost:11434", route.BaseURL)
}
