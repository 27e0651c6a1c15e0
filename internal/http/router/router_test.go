package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

type testConfig struct{}

func (testConfig) GetHTTPAddr() string          { return ":0" }
func (testConfig) GetCORSAllowAll() bool        { return false }
func (testConfig) GetCORSOrigins() []string     { return []string{"http://localhost:3000"} }
func (testConfig) GetCORSAllowCreds() bool      { return false }
func (testConfig) GetJWTAccessSecret() string   { return "jwt-secret" }
func (testConfig) GetInternalAPISecret() string { return "internal-secret" }
func (testConfig) GetAppBaseURL() string        { return "http://localhost:8080" }

type testHealth struct{ err error }

func (h testHealth) Ping(context.Context) error { return h.err }

type testModule struct{}

func (testModule) Name() string { return "test" }

func (testModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/internal-thing", ctx.InternalAuth, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Admin.GET("/thing", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Webhooks.POST("/thing", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func newTestEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.NewWithWriter("test", io.Discard),
		Health:  health,
		Modules: []apphttp.Module{testModule{}},
	})
}

func TestReadyReflectsHealthCheck(t *testing.T) {
	engine := newTestEngine(testHealth{err: errors.New("db down")})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestInternalRoutesRequireSecret(t *testing.T) {
	engine := newTestEngine(testHealth{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/internal-thing", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal-thing", nil)
	req.Header.Set("x-internal-secret", "internal-secret")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with secret, got %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	engine := newTestEngine(testHealth{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/thing", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	cases := []struct {
		roles []string
		want  int
	}{
		{[]string{"viewer"}, http.StatusForbidden},
		{[]string{"admin"}, http.StatusNoContent},
	}
	for _, tc := range cases {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":   "operator-1",
			"type":  "access",
			"roles": tc.roles,
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("jwt-secret"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/thing", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("roles %v: expected %d, got %d", tc.roles, tc.want, rec.Code)
		}
	}
}

func TestWebhookLimiterThrottlesPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewWithWriter("test", io.Discard)
	engine := New(&apphttp.App{
		Config:         testConfig{},
		Logger:         log,
		WebhookLimiter: httpkit.NewIPRateLimiter(rate.Every(time.Hour), 2, time.Minute, log),
		Modules:        []apphttp.Module{testModule{}},
	})

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/thing", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("192.0.2.1:4000"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := send("192.0.2.1:4000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}
	if code := send("192.0.2.2:4000"); code != http.StatusOK {
		t.Fatalf("other clients must not be throttled, got %d", code)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health must not be throttled, got %d", rec.Code)
	}
}
