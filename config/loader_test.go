package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 🧪 加载优先级测试
// =============================================================================

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()

	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Firewall.MaxSteps)
	assert.Equal(t, 120, cfg.Firewall.TimeoutSeconds)
	assert.Equal(t, 0.95, cfg.Firewall.SimilarityThreshold)
	assert.Equal(t, "mask", cfg.DLP.Mode)
	assert.Equal(t, 100, cfg.Telemetry.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.FlushInterval)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, "https://api.openai.com", cfg.Providers.OpenAIBaseURL)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentwall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
firewall:
  max_steps: 50
dlp:
  mode: block
providers:
  openai_api_key: sk-from-yaml
`), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Firewall.MaxSteps)
	assert.Equal(t, "block", cfg.DLP.Mode)
	assert.Equal(t, "sk-from-yaml", cfg.Providers.OpenAIAPIKey)
	// 未覆盖的字段保持默认
	assert.Equal(t, 120, cfg.Firewall.TimeoutSeconds)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentwall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("firewall:\n  max_steps: 50\n"), 0o600))

	t.Setenv("MAX_STEPS", "12")
	t.Setenv("SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("DLP_MODE", "shadow_log")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("LOG_FLUSH_INTERVAL", "2s")
	t.Setenv("DEV_MODE", "true")

	cfg, err := NewLoader().WithConfigPath(path).Load()

	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Firewall.MaxSteps)
	assert.Equal(t, 0.8, cfg.Firewall.SimilarityThreshold)
	assert.Equal(t, "shadow_log", cfg.DLP.Mode)
	assert.Equal(t, "sk-from-env", cfg.Providers.OpenAIAPIKey)
	assert.Equal(t, 2*time.Second, cfg.Telemetry.FlushInterval)
	assert.True(t, cfg.Identity.DevMode)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/agentwall.yaml").Load()

	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Firewall.MaxSteps)
}

func TestLoad_ValidatorRejects(t *testing.T) {
	t.Setenv("MAX_STEPS", "0")

	_, err := NewLoader().WithValidator((*Config).Validate).Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_steps")
}

// =============================================================================
// 🧪 校验与派生配置测试
// =============================================================================

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.DLP.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestRouterConfig(t *testing.T) {
	p := DefaultProvidersConfig()
	p.OpenAIAPIKey = "sk-test"

	rc := p.RouterConfig()

	assert.Equal(t, "https://api.openai.com", rc.OpenAI.BaseURL)
	assert.Equal(t, "sk-test", rc.OpenAI.APIKey)
	assert.Equal(t, "http://localhost:11434", rc.Ollama.BaseURL)
	assert.Empty(t, rc.Ollama.APIKey)
}
