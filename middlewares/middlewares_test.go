package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/models"
	"github.com/sitebooks/backoffice/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupLoaderDB(t *testing.T) context.Context {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "loaders.db") + "?_pragma=busy_timeout(5000)"
	conn, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	require.NoError(t, err)
	require.NoError(t, config.RegisterPlugins(conn))
	require.NoError(t, models.AutoMigrate(conn))
	previous := config.GetDB()
	config.SetDB(conn)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
		config.SetDB(previous)
	})
	return utils.SetBusinessIdInContext(context.Background(), "biz-loader")
}

func TestAuthMiddlewareResolvesTenant(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := utils.JwtGenerate(7, "site.manager", "biz-auth", "owner", time.Hour)
	require.NoError(t, err)

	var seen struct {
		businessId, userName, role, correlationId string
		userId                                    int
	}
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/whoami", RequireTenant(), func(c *gin.Context) {
		ctx := c.Request.Context()
		seen.businessId, _ = utils.GetBusinessIdFromContext(ctx)
		seen.userId, _ = utils.GetUserIdFromContext(ctx)
		seen.userName, _ = utils.GetUserNameFromContext(ctx)
		seen.role, _ = utils.GetRoleFromContext(ctx)
		seen.correlationId, _ = utils.GetCorrelationIdFromContext(ctx)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(CorrelationIdHeader, "corr-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "biz-auth", seen.businessId)
	assert.Equal(t, 7, seen.userId)
	assert.Equal(t, "site.manager", seen.userName)
	assert.Equal(t, "owner", seen.role)
	assert.Equal(t, "corr-1", seen.correlationId)
	assert.Equal(t, "corr-1", w.Header().Get(CorrelationIdHeader))
}

func TestAuthMiddlewareRejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/private", RequireTenant(), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name   string
		header string
	}{
		{"no token", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", tc.name, w.Code)
		}
		if w.Header().Get(CorrelationIdHeader) == "" {
			t.Fatalf("%s: correlation id header missing", tc.name)
		}
	}
}

func TestLoadersBatchAndKeepOrder(t *testing.T) {
	ctx := setupLoaderDB(t)
	alpha, err := models.CreateClient(ctx, &models.NewClient{Name: "Alpha Builders"})
	require.NoError(t, err)
	beta, err := models.CreateClient(ctx, &models.NewClient{Name: "Beta Homes"})
	require.NoError(t, err)
	project, err := models.CreateProject(ctx, &models.NewProject{Name: "Harbour Lofts"})
	require.NoError(t, err)

	shared, err := models.CreateFinancialDocument(ctx, models.DocumentKindQuote, &models.NewFinancialDocument{ClientIds: []int{alpha.ID, beta.ID}})
	require.NoError(t, err)
	single, err := models.CreateFinancialDocument(ctx, models.DocumentKindQuote, &models.NewFinancialDocument{ClientIds: []int{beta.ID}})
	require.NoError(t, err)
	bare, err := models.CreateFinancialDocument(ctx, models.DocumentKindQuote, &models.NewFinancialDocument{})
	require.NoError(t, err)

	ctx = context.WithValue(ctx, loadersKey, NewLoaders(config.GetDB()))

	clients, errs := GetDocumentClientsMany(ctx, []int{single.ID, shared.ID, bare.ID})
	for _, e := range errs {
		require.NoError(t, e)
	}
	require.Len(t, clients, 3)
	require.Len(t, clients[0], 1)
	assert.Equal(t, "Beta Homes", clients[0][0].Name)
	require.Len(t, clients[1], 2)
	assert.Empty(t, clients[2])

	got, err := GetClient(ctx, alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Builders", got.Name)

	many, errs := GetClients(ctx, []int{beta.ID, 9999, alpha.ID})
	for _, e := range errs {
		require.NoError(t, e)
	}
	require.Len(t, many, 3)
	assert.Equal(t, beta.ID, many[0].ID)
	assert.Nil(t, many[1])
	assert.Equal(t, alpha.ID, many[2].ID)

	p, err := GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harbour Lofts", p.Name)
}

func TestRateLimiterPerBusiness(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRateLimiter(client, 2, time.Minute)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := utils.SetBusinessIdInContext(c.Request.Context(), c.GetHeader("X-Test-Business"))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(limiter.RateLimitMiddleware)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(business string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Test-Business", business)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("biz-a"))
	assert.Equal(t, http.StatusOK, hit("biz-a"))
	assert.Equal(t, http.StatusTooManyRequests, hit("biz-a"))
	assert.Equal(t, http.StatusOK, hit("biz-b"))

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusOK, hit("biz-a"))
}

func TestRateLimiterAlwaysSetsWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	// a counter that lost its TTL must not block the tenant forever
	require.NoError(t, mr.Set("ratelimit:biz:biz-stuck", "5"))

	limiter := NewRateLimiter(client, 2, time.Minute)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(utils.SetBusinessIdInContext(c.Request.Context(), "biz-stuck"))
		c.Next()
	})
	r.Use(limiter.RateLimitMiddleware)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, hit())
	ttl := mr.TTL("ratelimit:biz:biz-stuck")
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl = %s", ttl)

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:biz:biz-stuck"))
}
