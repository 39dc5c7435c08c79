package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// PaymentWebhookAuth verifies the X-Signature header, the hex HMAC-SHA256 of the raw
// body. The check is skipped in sandbox/dev mode.
func PaymentWebhookAuth(secret, mode string, logger *zap.Logger) gin.HandlerFunc {
	mode = strings.ToLower(mode)

	return func(c *gin.Context) {
		if mode == "sandbox" || mode == "dev" {
			logger.Debug("sandbox/dev mode: skipping payment webhook signature verification")
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body for signature verification"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		provided := strings.TrimSpace(c.GetHeader("X-Signature"))
		if provided == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "missing webhook signature"})
			c.Abort()
			return
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := mac.Sum(nil)

		got, err := hex.DecodeString(provided)
		if err != nil || secret == "" || !hmac.Equal(got, expected) {
			logger.Warn("payment webhook signature mismatch", zap.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid webhook signature"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SignPayload returns the X-Signature value for body.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
