// =============================================================================
// 📦 AgentWall 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("agentwall.yaml").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// env tag 即完整环境变量名（与原生部署约定一致，如 REDIS_URL、MAX_STEPS）
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/agentwall/llm/router"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 AgentWall 网关的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server"`

	// Log 日志配置
	Log LogConfig `yaml:"log"`

	// Redis Run 状态存储配置
	Redis RedisConfig `yaml:"redis"`

	// Firewall 防火墙（步数/超时/循环）配置
	Firewall FirewallConfig `yaml:"firewall"`

	// DLP 敏感数据防护配置
	DLP DLPConfig `yaml:"dlp"`

	// Budget 预算默认策略
	Budget BudgetConfig `yaml:"budget"`

	// Providers 上游 Provider 端点
	Providers ProvidersConfig `yaml:"providers"`

	// Telemetry 请求日志分析库（ClickHouse）配置
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Dashboard 仪表盘投递配置
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Identity API Key 校验配置
	Identity IdentityConfig `yaml:"identity"`

	// Tracing 分布式追踪配置
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	// 监听地址
	Host string `yaml:"host" env:"HOST"`
	// 监听端口
	Port int `yaml:"port" env:"PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（流式响应需要长写超时，0 表示不限制）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 限流 QPS（0 关闭限流）
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LOG_LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// RedisConfig Run 状态存储配置
type RedisConfig struct {
	// 连接 URL（redis://host:port/db）
	URL string `yaml:"url" env:"REDIS_URL"`
}

// FirewallConfig 防火墙配置
type FirewallConfig struct {
	// 单个 Run 最大步数
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// 单个 Run 最长持续秒数
	TimeoutSeconds int `yaml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
	// 相似循环判定阈值（Jaccard）
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
}

// DLPConfig 敏感数据防护配置
type DLPConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"DLP_ENABLED"`
	// 模式: mask, block, shadow_log
	Mode string `yaml:"mode" env:"DLP_MODE"`
}

// BudgetConfig 预算默认策略（身份服务未下发限额时生效）
type BudgetConfig struct {
	// 单 Run 上限（USD）
	PerRunLimit float64 `yaml:"per_run_limit" env:"BUDGET_PER_RUN_LIMIT"`
	// 团队日上限（USD）
	DailyLimit float64 `yaml:"daily_limit" env:"BUDGET_DAILY_LIMIT"`
	// 团队月上限（USD）
	MonthlyLimit float64 `yaml:"monthly_limit" env:"BUDGET_MONTHLY_LIMIT"`
	// 告警阈值（USD）
	AlertThreshold float64 `yaml:"alert_threshold" env:"BUDGET_ALERT_THRESHOLD"`
	// 超限是否自动击杀 Run
	AutoKill bool `yaml:"auto_kill" env:"BUDGET_AUTO_KILL"`
}

// ProvidersConfig 各上游 Provider 的端点与凭据
type ProvidersConfig struct {
	OpenAIBaseURL     string `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	OpenAIAPIKey      string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenRouterBaseURL string `yaml:"openrouter_base_url" env:"OPENROUTER_BASE_URL"`
	OpenRouterAPIKey  string `yaml:"openrouter_api_key" env:"OPENROUTER_API_KEY"`
	GroqBaseURL       string `yaml:"groq_base_url" env:"GROQ_BASE_URL"`
	GroqAPIKey        string `yaml:"groq_api_key" env:"GROQ_API_KEY"`
	DeepSeekBaseURL   string `yaml:"deepseek_base_url" env:"DEEPSEEK_BASE_URL"`
	DeepSeekAPIKey    string `yaml:"deepseek_api_key" env:"DEEPSEEK_API_KEY"`
	MistralBaseURL    string `yaml:"mistral_base_url" env:"MISTRAL_BASE_URL"`
	MistralAPIKey     string `yaml:"mistral_api_key" env:"MISTRAL_API_KEY"`
	OllamaBaseURL     string `yaml:"ollama_base_url" env:"OLLAMA_BASE_URL"`
	QwenBaseURL       string `yaml:"qwen_base_url" env:"QWEN_BASE_URL"`
	QwenAPIKey        string `yaml:"qwen_api_key" env:"QWEN_API_KEY"`
	// 上游请求超时
	Timeout time.Duration `yaml:"timeout" env:"UPSTREAM_TIMEOUT"`
}

// TelemetryConfig 请求日志分析库配置
type TelemetryConfig struct {
	// ClickHouse HTTP 接口地址
	URL string `yaml:"url" env:"CLICKHOUSE_URL"`
	// 目标库名
	Database string `yaml:"database" env:"CLICKHOUSE_DATABASE"`
	// HTTP 接口用户
	User string `yaml:"user" env:"CLICKHOUSE_USER"`
	// HTTP 接口密码
	Password string `yaml:"password" env:"CLICKHOUSE_PASSWORD"`
	// 批量写入大小
	BatchSize int `yaml:"batch_size" env:"LOG_BATCH_SIZE"`
	// 定时刷新间隔
	FlushInterval time.Duration `yaml:"flush_interval" env:"LOG_FLUSH_INTERVAL"`
	// 队列上限（含失败重入队）
	MaxQueue int `yaml:"max_queue" env:"LOG_MAX_QUEUE"`
}

// DashboardConfig 仪表盘投递配置
type DashboardConfig struct {
	// 仪表盘根地址
	URL string `yaml:"url" env:"DASHBOARD_URL"`
}

// IdentityConfig API Key 校验配置
type IdentityConfig struct {
	// 控制面根地址
	URL string `yaml:"url" env:"IDENTITY_URL"`
	// 内部接口共享密钥（校验与日志投递共用）
	InternalSecret string `yaml:"internal_secret" env:"INTERNAL_SECRET"`
	// 开发模式：跳过后端校验
	DevMode bool `yaml:"dev_mode" env:"DEV_MODE"`
}

// TracingConfig 分布式追踪配置
type TracingConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"TRACING_ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"TRACING_SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"TRACING_SAMPLE_RATE"`
}

// RouterConfig 将 Provider 配置展开为路由表配置。
func (p ProvidersConfig) RouterConfig() router.Config {
	return router.Config{
		OpenAI:     router.Endpoint{BaseURL: p.OpenAIBaseURL, APIKey: p.OpenAIAPIKey},
		OpenRouter: router.Endpoint{BaseURL: p.OpenRouterBaseURL, APIKey: p.OpenRouterAPIKey},
		Groq:       router.Endpoint{BaseURL: p.GroqBaseURL, APIKey: p.GroqAPIKey},
		DeepSeek:   router.Endpoint{BaseURL: p.DeepSeekBaseURL, APIKey: p.DeepSeekAPIKey},
		Mistral:    router.Endpoint{BaseURL: p.MistralBaseURL, APIKey: p.MistralAPIKey},
		Ollama:     router.Endpoint{BaseURL: p.OllamaBaseURL},
		Qwen:       router.Endpoint{BaseURL: p.QwenBaseURL, APIKey: p.QwenAPIKey},
	}
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := setFieldsFromEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// setFieldsFromEnv 递归设置结构体字段。
// env tag 即完整环境变量名，不做前缀拼接。
func setFieldsFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 嵌套结构体递归处理（time.Duration 等标量类型除外）
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			if err := setFieldsFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envKey := fieldType.Tag.Get("env")
		if envKey == "" || envKey == "-" {
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Firewall.MaxSteps <= 0 {
		errs = append(errs, "max_steps must be positive")
	}
	if c.Firewall.TimeoutSeconds <= 0 {
		errs = append(errs, "timeout_seconds must be positive")
	}
	if c.Firewall.SimilarityThreshold <= 0 || c.Firewall.SimilarityThreshold > 1 {
		errs = append(errs, "similarity_threshold must be in (0, 1]")
	}
	switch c.DLP.Mode {
	case "mask", "block", "shadow_log":
	default:
		errs = append(errs, "dlp mode must be mask, block or shadow_log")
	}
	if c.Telemetry.BatchSize <= 0 {
		errs = append(errs, "log batch size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
