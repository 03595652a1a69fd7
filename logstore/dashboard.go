package logstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentwall/internal/tlsutil"
	"go.uber.org/zap"
)

// =============================================================================
// 📺 仪表盘 Shipper
// =============================================================================

// shipperQueueSize 投递队列容量，溢出即丢弃
const shipperQueueSize = 1000

// shipperTimeout 单条投递超时，不能拖慢任何路径
const shipperTimeout = 2 * time.Second

// ShipperConfig 仪表盘投递配置
type ShipperConfig struct {
	// DashboardURL 仪表盘根地址（POST <url>/api/internal/logs）
	DashboardURL string `yaml:"dashboard_url" json:"dashboard_url"`

	// InternalSecret 内部接口共享密钥
	InternalSecret string `yaml:"internal_secret" json:"-"`
}

// Shipper 进程内 fire-and-forget 仪表盘投递。
type Shipper struct {
	config ShipperConfig
	client *http.Client
	logger *zap.Logger

	queue chan DashboardLog
	done  chan struct{}
	wg    sync.WaitGroup

	dropped atomic.Uint64
}

// NewShipper 创建 Shipper（需调用 Start 启动 worker）。
func NewShipper(config ShipperConfig, logger *zap.Logger) *Shipper {
	return &Shipper{
		config: config,
		client: tlsutil.SecureHTTPClient(shipperTimeout),
		logger: logger.With(zap.String("component", "dashboard")),
		queue:  make(chan DashboardLog, shipperQueueSize),
		done:   make(chan struct{}),
	}
}

// Start 启动投递 worker。
func (s *Shipper) Start() {
	s.wg.Add(1)
	go s.worker()
	s.logger.Info("仪表盘投递已启动", zap.String("url", s.config.DashboardURL))
}

// Stop 停止 worker，放弃未投递的队列内容。
func (s *Shipper) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Push 非阻塞入队，队列满时丢弃并计数。
func (s *Shipper) Push(log DashboardLog) {
	select {
	case s.queue <- log:
	default:
		s.dropped.Add(1)
		s.logger.Warn("仪表盘队列已满，丢弃日志", zap.String("request_id", log.RequestID))
	}
}

// Dropped 被丢弃的行数。
func (s *Shipper) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Shipper) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case log := <-s.queue:
			if err := s.send(log); err != nil {
				s.logger.Warn("仪表盘投递失败",
					zap.String("request_id", log.RequestID),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *Shipper) send(log DashboardLog) error {
	payload, err := json.Marshal(log)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost,
		s.config.DashboardURL+"/api/internal/logs", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Secret", s.config.InternalSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("dashboard returned status %d", resp.StatusCode)
	}
	return nil
}
