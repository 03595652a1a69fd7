package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentwall/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// 🔑 身份模型
// =============================================================================

// ErrMissingAPIKey 请求未携带 API Key
var ErrMissingAPIKey = errors.New("missing API key")

// ErrInvalidAPIKey API Key 校验未通过
var ErrInvalidAPIKey = errors.New("invalid API key")

// cacheTTL 校验结果缓存时长
const cacheTTL = 5 * time.Minute

// validateTimeout 控制面校验调用超时
const validateTimeout = 5 * time.Second

// Limits 身份携带的 Run 限额
type Limits struct {
	MaxSteps    int             `json:"max_steps"`
	DailyBudget decimal.Decimal `json:"daily_budget"`
}

// Identity 一次成功校验的结果
type Identity struct {
	UserID   string `json:"user_id"`
	TeamID   string `json:"team_id"`
	APIKeyID string `json:"api_key_id"`
	Limits   Limits `json:"limits"`

	// PassThrough 为 true 时，调用方的 Bearer 凭据原样转发给上游
	PassThrough bool `json:"pass_through,omitempty"`
}

// ExtractAPIKey 按优先级从请求提取 API Key：
// Authorization Bearer → X-API-Key 头 → api_key 查询参数。
func ExtractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	return r.URL.Query().Get("api_key")
}

// =============================================================================
// ✅ 校验客户端
// =============================================================================

// Config 身份客户端配置
type Config struct {
	// BaseURL 控制面根地址（POST <url>/api/internal/validate-key）
	BaseURL string `yaml:"base_url" json:"base_url"`

	// InternalSecret 内部接口共享密钥
	InternalSecret string `yaml:"internal_secret" json:"-"`

	// DevMode 为 true 时跳过后端校验，返回固定开发身份
	DevMode bool `yaml:"dev_mode" json:"dev_mode"`
}

// Client 身份校验客户端：后端校验 + Redis 缓存 + singleflight 合并。
type Client struct {
	config Config
	http   *http.Client
	cache  *redis.Client
	group  singleflight.Group
	logger *zap.Logger
}

// NewClient 创建身份客户端。cache 可为 nil（不启用缓存）。
func NewClient(config Config, cache *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		http:   tlsutil.SecureHTTPClient(validateTimeout),
		cache:  cache,
		logger: logger.With(zap.String("component", "identity")),
	}
}

// Validate 校验 API Key 并返回身份。无效或后端不可达时返回错误。
func (c *Client) Validate(ctx context.Context, apiKey string) (*Identity, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if c.config.DevMode {
		return devIdentity(), nil
	}

	if id := c.cachedIdentity(ctx, apiKey); id != nil {
		return id, nil
	}

	// 同一 Key 的并发校验合并为一次后端调用
	v, err, _ := c.group.Do(apiKey, func() (any, error) {
		id, err := c.validateRemote(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		c.storeCache(ctx, apiKey, id)
		return id, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Identity), nil
}

func cacheKey(apiKey string) string {
	return "agentwall:apikey:" + apiKey
}

func (c *Client) cachedIdentity(ctx context.Context, apiKey string) *Identity {
	if c.cache == nil {
		return nil
	}

	data, err := c.cache.Get(ctx, cacheKey(apiKey)).Result()
	if err != nil {
		return nil
	}

	var id Identity
	if err := json.Unmarshal([]byte(data), &id); err != nil {
		return nil
	}
	return &id
}

func (c *Client) storeCache(ctx context.Context, apiKey string, id *Identity) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(id)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(apiKey), data, cacheTTL).Err(); err != nil {
		c.logger.Warn("身份缓存写入失败", zap.Error(err))
	}
}

func (c *Client) validateRemote(ctx context.Context, apiKey string) (*Identity, error) {
	payload, err := json.Marshal(map[string]string{"api_key": apiKey})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/api/internal/validate-key", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Secret", c.config.InternalSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusNotFound {
		return nil, ErrInvalidAPIKey
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("invalid identity response: %w", err)
	}
	return &id, nil
}

// devIdentity 开发模式固定身份。
func devIdentity() *Identity {
	return &Identity{
		UserID:   "dev-user-1",
		TeamID:   "dev-team-1",
		APIKeyID: "dev-key-1",
		Limits: Limits{
			MaxSteps:    30,
			DailyBudget: decimal.RequireFromString("10.0"),
		},
	}
}
