package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 API Key 提取测试
// =============================================================================

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{
			"bearer header",
			func(r *http.Request) { r.Header.Set("Authorization", "Bearer aw-key-1") },
			"aw-key-1",
		},
		{
			"x-api-key header",
			func(r *http.Request) { r.Header.Set("X-API-Key", "aw-key-2") },
			"aw-key-2",
		},
		{
			"query param",
			func(r *http.Request) { r.URL.RawQuery = "api_key=aw-key-3" },
			"aw-key-3",
		},
		{
			"bearer wins over x-api-key",
			func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer first")
				r.Header.Set("X-API-Key", "second")
			},
			"first",
		},
		{
			"missing",
			func(r *http.Request) {},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
			tt.setup(r)
			assert.Equal(t, tt.want, ExtractAPIKey(r))
		})
	}
}

// =============================================================================
// 🧪 校验测试
// =============================================================================

func validateServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("X-Internal-Secret") != "shh" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{
			"user_id": "user-1", "team_id": "team-1", "api_key_id": "key-1",
			"limits": {"max_steps": 30, "daily_budget": "10.0"}
		}`)
	}))
}

func TestValidate_Success(t *testing.T) {
	var calls atomic.Int64
	server := validateServer(t, &calls)
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, InternalSecret: "shh"}, nil, zap.NewNop())
	id, err := c.Validate(context.Background(), "aw-key-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "team-1", id.TeamID)
	assert.Equal(t, 30, id.Limits.MaxSteps)
}

func TestValidate_MissingKey(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil, zap.NewNop())

	_, err := c.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestValidate_InvalidKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, nil, zap.NewNop())
	_, err := c.Validate(context.Background(), "bogus")

	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestValidate_BackendUnreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil, zap.NewNop())

	_, err := c.Validate(context.Background(), "aw-key-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidAPIKey)
}

func TestValidate_CachesResult(t *testing.T) {
	var calls atomic.Int64
	server := validateServer(t, &calls)
	defer server.Close()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	c := NewClient(Config{BaseURL: server.URL, InternalSecret: "shh"}, cache, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := c.Validate(ctx, "aw-key-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", id.UserID)
	}

	assert.Equal(t, int64(1), calls.Load(), "repeated validations must hit the cache")
	assert.True(t, mr.Exists("agentwall:apikey:aw-key-1"))
}

func TestValidate_SingleflightDedupes(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-started // 扣住第一个请求，让并发校验堆积
		fmt.Fprint(w, `{"user_id":"user-1","team_id":"team-1","api_key_id":"key-1","limits":{"max_steps":30,"daily_budget":"10"}}`)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, nil, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Validate(ctx, "aw-key-1")
			assert.NoError(t, err)
		}()
	}

	close(started)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int64(2), "concurrent validations should collapse")
}

func TestValidate_DevMode(t *testing.T) {
	c := NewClient(Config{DevMode: true}, nil, zap.NewNop())

	id, err := c.Validate(context.Background(), "anything")

	require.NoError(t, err)
	assert.Equal(t, "dev-user-1", id.UserID)
	assert.Equal(t, 30, id.Limits.MaxSteps)
}
