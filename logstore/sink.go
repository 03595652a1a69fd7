package logstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentwall/internal/tlsutil"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 遥测汇
// =============================================================================

// SinkConfig 遥测汇配置
type SinkConfig struct {
	// BaseURL 分析库 HTTP 接口（如 http://clickhouse:8123）
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Database 目标库名
	Database string `yaml:"database" json:"database"`

	// User / Password HTTP 接口凭据
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`

	// BatchSize 达到该深度立即刷新（默认 100）
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// FlushInterval 定时刷新间隔（默认 5s）
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`

	// MaxQueue 队列/重入队上限（默认 10000）
	MaxQueue int `yaml:"max_queue" json:"max_queue"`

	// Timeout 单次刷新 HTTP 超时（默认 10s）
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

func (c *SinkConfig) withDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.MaxQueue <= 0 {
		c.MaxQueue = 10000
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Database == "" {
		c.Database = "agentwall"
	}
}

// Sink 有界队列 + 后台 worker 的遥测落盘。
type Sink struct {
	config SinkConfig
	client *http.Client
	logger *zap.Logger

	mu    sync.Mutex
	queue []RequestLog

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	dropped   atomic.Uint64
	unhealthy atomic.Bool
	lastError atomic.Value // string
}

// NewSink 创建遥测汇（需调用 Start 启动 worker）。
func NewSink(config SinkConfig, logger *zap.Logger) *Sink {
	config.withDefaults()
	return &Sink{
		config: config,
		client: tlsutil.SecureHTTPClient(config.Timeout),
		logger: logger.With(zap.String("component", "logstore")),
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start 启动后台刷新 worker。
func (s *Sink) Start() {
	s.wg.Add(1)
	go s.flushLoop()
	s.logger.Info("遥测汇已启动",
		zap.Int("batch_size", s.config.BatchSize),
		zap.Duration("flush_interval", s.config.FlushInterval),
	)
}

// Stop 停止 worker 并做最后一次刷新。
func (s *Sink) Stop(ctx context.Context) {
	close(s.done)
	s.wg.Wait()
	s.flush(ctx)
	s.logger.Info("遥测汇已停止", zap.Uint64("dropped", s.dropped.Load()))
}

// Push 非阻塞入队。队列满时丢弃最旧一条并计数，绝不失败。
func (s *Sink) Push(log RequestLog) {
	s.mu.Lock()
	if len(s.queue) >= s.config.MaxQueue {
		s.queue = s.queue[1:]
		s.dropped.Add(1)
	}
	s.queue = append(s.queue, log)
	depth := len(s.queue)
	s.mu.Unlock()

	if depth >= s.config.BatchSize {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// Healthy 上次刷新是否成功。
func (s *Sink) Healthy() bool {
	return !s.unhealthy.Load()
}

// LastError 上次刷新失败的错误文本。
func (s *Sink) LastError() string {
	if v := s.lastError.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Dropped 因队列满被丢弃的行数。
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// QueueDepth 当前队列深度（健康检查用）。
func (s *Sink) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Sink) flushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.flush(context.Background())
		case <-s.kick:
			s.flush(context.Background())
		}
	}
}

// flush 取出整个批次并投递；失败时重新入队（受 MaxQueue 约束）。
func (s *Sink) flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()

	if err := s.insertBatch(ctx, batch); err != nil {
		s.logger.Error("遥测批次刷新失败",
			zap.Int("batch", len(batch)),
			zap.Error(err),
		)
		s.unhealthy.Store(true)
		s.lastError.Store(err.Error())

		s.mu.Lock()
		if len(s.queue)+len(batch) <= s.config.MaxQueue {
			s.queue = append(batch, s.queue...)
		} else {
			s.dropped.Add(uint64(len(batch)))
		}
		s.mu.Unlock()
		return
	}

	s.unhealthy.Store(false)
	s.lastError.Store("")
	s.logger.Debug("遥测批次已写入", zap.Int("rows", len(batch)))
}

// insertBatch 以 JSONEachRow 格式 POST 批次。
func (s *Sink) insertBatch(ctx context.Context, batch []RequestLog) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, row := range batch {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode log row: %w", err)
		}
	}

	query := url.Values{}
	query.Set("query", fmt.Sprintf("INSERT INTO %s.request_logs FORMAT JSONEachRow", s.config.Database))
	if s.config.User != "" {
		query.Set("user", s.config.User)
		query.Set("password", s.config.Password)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/?"+query.Encode(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("log store returned status %d", resp.StatusCode)
	}
	return nil
}
