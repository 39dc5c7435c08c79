package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/privado", ValidateToken(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, GuestID(c))
	})
	return r
}

func TestValidateToken(t *testing.T) {
	valid := signedToken(t, testSecret, jwt.MapClaims{"user_id": "guest_1", "exp": time.Now().Add(time.Hour).Unix()})
	expired := signedToken(t, testSecret, jwt.MapClaims{"user_id": "guest_1", "exp": time.Now().Add(-time.Hour).Unix()})
	noExp := signedToken(t, testSecret, jwt.MapClaims{"user_id": "guest_1"})
	otherKey := signedToken(t, "other", jwt.MapClaims{"user_id": "guest_1", "exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer", "Bearer " + valid, "", http.StatusOK},
		{"raw header", valid, "", http.StatusOK},
		{"query param", "", "?token=" + valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"without expiry", "Bearer " + noExp, "", http.StatusUnauthorized},
		{"wrong key", "Bearer " + otherKey, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/privado"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			protectedRouter().ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "guest_1", w.Body.String())
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	r := gin.New()
	r.GET("/admin", ValidateAPIKey("k3y"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for key, status := range map[string]int{"k3y": http.StatusNoContent, "nope": http.StatusUnauthorized, "": http.StatusUnauthorized} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("X-API-KEY", key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, "key %q", key)
	}
}

func webhookRouter(mode string) *gin.Engine {
	r := gin.New()
	r.POST("/webhook", PaymentWebhookAuth(testSecret, mode, zap.NewNop()), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})
	return r
}

func TestPaymentWebhookAuth(t *testing.T) {
	body := `{"pedido_id": 17, "status": "approved"}`

	send := func(r *gin.Engine, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		if signature != "" {
			req.Header.Set("X-Signature", signature)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(webhookRouter("live"), SignPayload(testSecret, []byte(body)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String(), "the handler still sees the body")

	assert.Equal(t, http.StatusForbidden, send(webhookRouter("live"), "").Code)
	assert.Equal(t, http.StatusForbidden, send(webhookRouter("live"), SignPayload("other", []byte(body))).Code)
	assert.Equal(t, http.StatusForbidden, send(webhookRouter("live"), "zz-not-hex").Code)
	assert.Equal(t, http.StatusOK, send(webhookRouter("sandbox"), "").Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.POST("/carrito", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/carrito", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/carrito", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, "buckets are per client")

	assert.Equal(t, 0, limiter.Prune(time.Hour))
	assert.Equal(t, 2, limiter.Prune(0))
}
