// =============================================================================
// AgentWall Provider Router
// =============================================================================
// Resolves a model string to (canonical provider, base URL, credential).
// Resolution order:
//   1. alias table (shortcuts like "claude-3.5-sonnet")
//   2. local prefixes (ollama/, local/)
//   3. direct-provider prefixes (native Groq, DeepSeek, Mistral, Qwen)
//   4. aggregator prefixes (anthropic/, google/, meta-llama/, ...)
//   5. fallback: OpenAI
// All providers speak OpenAI-compatible chat completions at
// POST /v1/chat/completions.
// =============================================================================

package router

import (
	"strings"

	"go.uber.org/zap"
)

// Provider is a canonical upstream provider name.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderGroq       Provider = "groq"
	ProviderDeepSeek   Provider = "deepseek"
	ProviderMistral    Provider = "mistral"
	ProviderOllama     Provider = "ollama"
	ProviderQwen       Provider = "qwen"
)

// Aggregator prefixes routed to OpenRouter.
var openRouterPrefixes = []string{
	"anthropic/",
	"google/",
	"meta-llama/",
	"mistralai/",
	"cohere/",
	"perplexity/",
	"deepseek/",
	"qwen/",
	"openrouter/",
	"groq/",
}

// Direct-provider prefixes (bypass the aggregator).
var (
	groqPrefixes     = []string{"llama-3", "mixtral", "gemma"}
	deepseekPrefixes = []string{"deepseek-chat", "deepseek-coder", "deepseek-reasoner"}
	mistralPrefixes  = []string{"mistral-", "codestral", "pixtral", "ministral"}
	ollamaPrefixes   = []string{"ollama/", "local/"}
	qwenPrefixes     = []string{"qwen-"}
)

// modelAliases maps shortcut names to canonical aggregator models.
var modelAliases = map[string]string{
	"claude-3.5-sonnet": "anthropic/claude-3.5-sonnet",
	"claude-3-opus":     "anthropic/claude-3-opus",
	"claude-3-sonnet":   "anthropic/claude-3-sonnet",
	"claude-sonnet-4":   "anthropic/claude-sonnet-4",
	"gemini-pro":        "google/gemini-pro",
	"gemini-flash":      "google/gemini-flash-1.5",
	"llama-3.1-70b":     "meta-llama/llama-3.1-70b-instruct",
	"llama-3.1-405b":    "meta-llama/llama-3.1-405b-instruct",
	"mixtral-8x7b":      "mistralai/mixtral-8x7b-instruct",
	"mistral-large":     "mistralai/mistral-large",
}

// ResolveModel expands a model alias to its canonical name.
func ResolveModel(model string) string {
	if canonical, ok := modelAliases[model]; ok {
		return canonical
	}
	return model
}

// DetectProvider decides the provider for an (already resolved) model name.
func DetectProvider(model string) Provider {
	if _, ok := modelAliases[model]; ok {
		return ProviderOpenRouter
	}

	for _, prefix := range ollamaPrefixes {
		if strings.HasPrefix(model, prefix) {
			return ProviderOllama
		}
	}

	for _, prefix := range groqPrefixes {
		if strings.HasPrefix(model, prefix) && !strings.HasPrefix(model, "meta-llama/") {
			return ProviderGroq
		}
	}

	for _, prefix := range deepseekPrefixes {
		if strings.HasPrefix(model, prefix) {
			return ProviderDeepSeek
		}
	}

	for _, prefix := range mistralPrefixes {
		if strings.HasPrefix(model, prefix) && !strings.HasPrefix(model, "mistralai/") {
			return ProviderMistral
		}
	}

	for _, prefix := range qwenPrefixes {
		if strings.HasPrefix(model, prefix) && !strings.HasPrefix(model, "qwen/") {
			return ProviderQwen
		}
	}

	for _, prefix := range openRouterPrefixes {
		if strings.HasPrefix(model, prefix) {
			return ProviderOpenRouter
		}
	}

	return ProviderOpenAI
}

// =============================================================================
// Router
// =============================================================================

// Endpoint is a configured upstream endpoint.
type Endpoint struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"-"`
}

// Config holds per-provider endpoints.
type Config struct {
	OpenAI     Endpoint `yaml:"openai" json:"openai"`
	OpenRouter Endpoint `yaml:"openrouter" json:"openrouter"`
	Groq       Endpoint `yaml:"groq" json:"groq"`
	DeepSeek   Endpoint `yaml:"deepseek" json:"deepseek"`
	Mistral    Endpoint `yaml:"mistral" json:"mistral"`
	Ollama     Endpoint `yaml:"ollama" json:"ollama"`
	Qwen       Endpoint `yaml:"qwen" json:"qwen"`
}

// Route is a fully resolved upstream destination for one request.
type Route struct {
	Provider Provider
	// Model is the resolved (de-aliased) model name.
	Model   string
	BaseURL string
	APIKey  string
	// ExtraHeaders are provider-specific headers added to the upstream call.
	ExtraHeaders map[string]string
}

// Router maps model names to upstream destinations.
type Router struct {
	config Config
	logger *zap.Logger
}

// NewRouter creates a router over the configured endpoints.
func NewRouter(config Config, logger *zap.Logger) *Router {
	return &Router{
		config: config,
		logger: logger.With(zap.String("component", "router")),
	}
}

// Resolve routes a model to its provider endpoint. overrideKey, when
// non-empty, is the caller's own upstream credential (pass-through mode)
// and wins over the stored one. Ollama never uses a real key.
func (r *Router) Resolve(model, overrideKey string) Route {
	resolved := ResolveModel(model)
	provider := DetectProvider(model)

	endpoint := r.endpointFor(provider)
	apiKey := endpoint.APIKey
	if overrideKey != "" {
		apiKey = overrideKey
	}

	route := Route{
		Provider: provider,
		Model:    resolved,
		BaseURL:  endpoint.BaseURL,
		APIKey:   apiKey,
	}

	switch provider {
	case ProviderOpenRouter:
		route.ExtraHeaders = map[string]string{
			"HTTP-Referer": "https://agentwall.io",
			"X-Title":      "AgentWall",
		}
	case ProviderOllama:
		route.APIKey = "ollama"
	}

	r.logger.Debug("model routed",
		zap.String("model", model),
		zap.String("resolved", resolved),
		zap.String("provider", string(provider)),
	)
	return route
}

func (r *Router) endpointFor(provider Provider) Endpoint {
	switch provider {
	case ProviderOpenRouter:
		return r.config.OpenRouter
	case ProviderGroq:
		return r.config.Groq
	case ProviderDeepSeek:
		return r.config.DeepSeek
	case ProviderMistral:
		return r.config.Mistral
	case ProviderOllama:
		return r.config.Ollama
	case ProviderQwen:
		return r.config.Qwen
	default:
		return r.config.OpenAI
	}
}
