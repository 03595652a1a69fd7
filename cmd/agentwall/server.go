package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BaSui01/agentwall/api/handlers"
	"github.com/BaSui01/agentwall/config"
	"github.com/BaSui01/agentwall/firewall/budget"
	"github.com/BaSui01/agentwall/firewall/dlp"
	"github.com/BaSui01/agentwall/firewall/loopdetect"
	"github.com/BaSui01/agentwall/firewall/runstate"
	"github.com/BaSui01/agentwall/identity"
	"github.com/BaSui01/agentwall/internal/metrics"
	"github.com/BaSui01/agentwall/internal/server"
	"github.com/BaSui01/agentwall/internal/telemetry"
	"github.com/BaSui01/agentwall/llm/router"
	"github.com/BaSui01/agentwall/llm/upstream"
	"github.com/BaSui01/agentwall/logstore"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 AgentWall 网关的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 核心组件
	tracker *runstate.Tracker
	sink    *logstore.Sink
	shipper *logstore.Shipper

	// Handlers
	chatHandler   *handlers.ChatHandler
	healthHandler *handlers.HealthHandler
	runsHandler   *handlers.RunsHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// 追踪 Provider
	otelProviders *telemetry.Providers

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("agentwall", s.logger)

	// 2. 初始化核心组件与 Handlers
	if err := s.initComponents(); err != nil {
		return fmt.Errorf("failed to init components: %w", err)
	}

	// 3. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 4. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.Port),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("dlp_mode", s.cfg.DLP.Mode),
		zap.Bool("dev_mode", s.cfg.Identity.DevMode),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initComponents 初始化治理管线组件与 handlers
func (s *Server) initComponents() error {
	// Run 状态追踪器（Redis 不可达时自动降级）
	s.tracker = runstate.NewTracker(runstate.Config{
		RedisURL: s.cfg.Redis.URL,
		DefaultLimits: runstate.Limits{
			MaxSteps:       s.cfg.Firewall.MaxSteps,
			MaxBudget:      decimal.NewFromFloat(s.cfg.Budget.PerRunLimit),
			TimeoutSeconds: s.cfg.Firewall.TimeoutSeconds,
		},
	}, s.logger)

	// 身份校验客户端（复用同一 Redis 作为校验缓存，解析失败则不启用缓存）
	var identityCache *redis.Client
	if opts, err := redis.ParseURL(s.cfg.Redis.URL); err == nil {
		identityCache = redis.NewClient(opts)
	} else {
		s.logger.Warn("invalid redis url, identity cache disabled", zap.Error(err))
	}
	idc := identity.NewClient(identity.Config{
		BaseURL:        s.cfg.Identity.URL,
		InternalSecret: s.cfg.Identity.InternalSecret,
		DevMode:        s.cfg.Identity.DevMode,
	}, identityCache, s.logger)

	// 防火墙组件
	dlpEngine := dlp.NewEngine(dlp.ParseMode(s.cfg.DLP.Mode), s.logger)
	loops := loopdetect.NewDetector(s.cfg.Firewall.SimilarityThreshold, s.logger)
	enforcer := budget.NewEnforcer(budget.Policy{
		PerRunLimit:    decimal.NewFromFloat(s.cfg.Budget.PerRunLimit),
		DailyLimit:     decimal.NewFromFloat(s.cfg.Budget.DailyLimit),
		MonthlyLimit:   decimal.NewFromFloat(s.cfg.Budget.MonthlyLimit),
		AlertThreshold: decimal.NewFromFloat(s.cfg.Budget.AlertThreshold),
		AutoKill:       s.cfg.Budget.AutoKill,
	}, s.logger)

	// 上游路由与客户端
	rt := router.NewRouter(s.cfg.Providers.RouterConfig(), s.logger)
	up := upstream.NewClient(s.cfg.Providers.Timeout, s.logger)

	// 遥测落库与仪表盘投递
	s.sink = logstore.NewSink(logstore.SinkConfig{
		BaseURL:       s.cfg.Telemetry.URL,
		Database:      s.cfg.Telemetry.Database,
		User:          s.cfg.Telemetry.User,
		Password:      s.cfg.Telemetry.Password,
		BatchSize:     s.cfg.Telemetry.BatchSize,
		FlushInterval: s.cfg.Telemetry.FlushInterval,
		MaxQueue:      s.cfg.Telemetry.MaxQueue,
	}, s.logger)
	s.sink.Start()

	s.shipper = logstore.NewShipper(logstore.ShipperConfig{
		DashboardURL:   s.cfg.Dashboard.URL,
		InternalSecret: s.cfg.Identity.InternalSecret,
	}, s.logger)
	s.shipper.Start()

	// Handlers
	s.chatHandler = handlers.NewChatHandler(handlers.ChatConfig{
		MaxSteps:       s.cfg.Firewall.MaxSteps,
		TimeoutSeconds: s.cfg.Firewall.TimeoutSeconds,
		DLPEnabled:     s.cfg.DLP.Enabled,
	}, handlers.ChatDeps{
		Identity: idc,
		Tracker:  s.tracker,
		DLP:      dlpEngine,
		Loops:    loops,
		Budget:   enforcer,
		Router:   rt,
		Upstream: up,
		Sink:     s.sink,
		Shipper:  s.shipper,
		Metrics:  s.metricsCollector,
	}, s.logger)

	s.healthHandler = handlers.NewHealthHandler(
		s.tracker, s.sink, upstreamConfigured(s.cfg.Providers), Version, s.logger)

	s.runsHandler = handlers.NewRunsHandler(idc, s.tracker, s.logger)

	s.logger.Info("Components initialized")
	return nil
}

// upstreamConfigured 判断是否至少有一个上游凭据可用。
// Ollama 本地端点无需凭据，单独判断。
func upstreamConfigured(p config.ProvidersConfig) bool {
	switch {
	case p.OpenAIAPIKey != "", p.OpenRouterAPIKey != "", p.GroqAPIKey != "",
		p.DeepSeekAPIKey != "", p.MistralAPIKey != "", p.QwenAPIKey != "":
		return true
	case p.OllamaBaseURL != "":
		return true
	}
	return false
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动网关 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("GET /health", s.healthHandler.Health)
	mux.HandleFunc("GET /health/live", s.healthHandler.Live)
	mux.HandleFunc("GET /health/ready", s.healthHandler.Ready)
	mux.HandleFunc("GET /health/detailed", s.healthHandler.Detailed)

	// ========================================
	// OpenAI 兼容代理
	// ========================================
	mux.HandleFunc("POST /v1/chat/completions", s.chatHandler.Completions)

	// ========================================
	// Run 状态管理
	// ========================================
	mux.HandleFunc("GET /v1/runs/{id}", s.runsHandler.Get)
	mux.HandleFunc("POST /v1/runs/{id}/kill", s.runsHandler.Kill)

	// ========================================
	// 构建中间件链
	// ========================================
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		ProcessTime(),
		RequestLogger(s.logger, s.metricsCollector),
	}
	if s.cfg.Tracing.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
		s.rateLimiterCancel = rateLimiterCancel
		middlewares = append(middlewares,
			RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger))
	}
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout, // 0：SSE 长流不限制写超时
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.Port))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metricsCollector.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 关闭 HTTP 服务器（停止接收新请求）
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 3. 刷新遥测队列（请求全部结束后再做最终 flush）
	if s.sink != nil {
		flushCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		s.sink.Stop(flushCtx)
		cancel()
	}
	if s.shipper != nil {
		s.shipper.Stop()
	}

	// 4. 刷新追踪导出器
	if s.otelProviders != nil {
		traceCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.otelProviders.Shutdown(traceCtx); err != nil {
			s.logger.Error("Tracing shutdown error", zap.Error(err))
		}
		cancel()
	}

	// 5. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
