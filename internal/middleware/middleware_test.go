package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

var wallet = common.HexToAddress("0x00000000000000000000000000000000000000c4")

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func serve(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("/v1", JWTAuth("secret", nil))
	g.GET("/me", func(c echo.Context) error {
		addr, ok := Caller(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, addr.Hex())
	})
	g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole(utils.RoleAdmin))

	user, err := utils.NewAccessToken("secret", wallet, utils.RoleUser, time.Hour, time.Now())
	require.NoError(t, err)
	admin, err := utils.NewAccessToken("secret", wallet, utils.RoleAdmin, time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		bearer string
		status int
	}{
		{"missing token", "/v1/me", "", http.StatusUnauthorized},
		{"garbage token", "/v1/me", "abc", http.StatusUnauthorized},
		{"user", "/v1/me", user.Token, http.StatusOK},
		{"user on admin route", "/v1/admin", user.Token, http.StatusForbidden},
		{"admin", "/v1/admin", admin.Token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, tt.path, tt.bearer)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, wallet.Hex(), rec.Body.String())
			}
		})
	}
}

func TestJWTAuthChecksExpiryAgainstClock(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))
	tok, err := utils.NewAccessToken("secret", wallet, utils.RoleUser, time.Hour, mock.Now())
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, JWTAuth("secret", mock))

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/me", tok.Token).Code)
	mock.Add(2 * time.Hour)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", tok.Token).Code)
}

func TestRedisCacheHitAndInvalidate(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "test:cache",
	}
	calls := 0
	e := echo.New()
	e.GET("/v1/events/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "calls": calls})
	}, NewRedisCache(cfg, rdb))

	first := serve(e, http.MethodGet, "/v1/events/1", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := serve(e, http.MethodGet, "/v1/events/1", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	other := serve(e, http.MethodGet, "/v1/events/2", "")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	NewCacheInvalidator(cfg, rdb, zap.NewNop()).Notify(context.Background(), model.Activity{Kind: model.ActivityTicketPurchased})
	third := serve(e, http.MethodGet, "/v1/events/1", "")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestTokenBucketSeparatesWrites(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       3,
		WriteCapacity:  1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, zap.NewNop()))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/r", ok)
	e.POST("/w", ok)

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/w", "").Code)
	blocked := serve(e, http.MethodPost, "/w", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/r", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/r", "").Code)
}
