// =============================================================================
// 📦 AgentWall 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Redis:     DefaultRedisConfig(),
		Firewall:  DefaultFirewallConfig(),
		DLP:       DefaultDLPConfig(),
		Budget:    DefaultBudgetConfig(),
		Providers: DefaultProvidersConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Dashboard: DefaultDashboardConfig(),
		Identity:  DefaultIdentityConfig(),
		Tracing:   DefaultTracingConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:        "0.0.0.0",
		Port:        8000,
		MetricsPort: 9090,
		ReadTimeout: 30 * time.Second,
		// 流式响应可能长时间写出，不设写超时
		WriteTimeout:    0,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL: "redis://localhost:6379",
	}
}

// DefaultFirewallConfig 返回默认防火墙配置
func DefaultFirewallConfig() FirewallConfig {
	return FirewallConfig{
		MaxSteps:            30,
		TimeoutSeconds:      120,
		SimilarityThreshold: 0.95,
	}
}

// DefaultDLPConfig 返回默认 DLP 配置
func DefaultDLPConfig() DLPConfig {
	return DLPConfig{
		Enabled: true,
		Mode:    "mask",
	}
}

// DefaultBudgetConfig 返回默认预算策略
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		PerRunLimit:    10,
		DailyLimit:     100,
		MonthlyLimit:   3000,
		AlertThreshold: 5,
		AutoKill:       true,
	}
}

// DefaultProvidersConfig 返回默认 Provider 端点配置
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		OpenAIBaseURL:     "https://api.openai.com",
		OpenRouterBaseURL: "https://openrouter.ai/api",
		GroqBaseURL:       "https://api.groq.com/openai",
		DeepSeekBaseURL:   "https://api.deepseek.com",
		MistralBaseURL:    "https://api.mistral.ai",
		OllamaBaseURL:     "http://localhost:11434",
		QwenBaseURL:       "https://dashscope.aliyuncs.com/compatible-mode",
		Timeout:           2 * time.Minute,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		URL:           "http://localhost:8123",
		Database:      "agentwall",
		User:          "default",
		Password:      "",
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		MaxQueue:      10000,
	}
}

// DefaultDashboardConfig 返回默认仪表盘配置
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		URL: "http://localhost:8080",
	}
}

// DefaultIdentityConfig 返回默认身份校验配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		URL:            "http://localhost:8080",
		InternalSecret: "change-me-in-production",
		DevMode:        false,
	}
}

// DefaultTracingConfig 返回默认追踪配置
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentwall",
		SampleRate:   0.1,
	}
}
