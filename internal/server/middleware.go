package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/glowface/pointgate/internal/identity"
	"github.com/glowface/pointgate/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const deviceIDKey = "device_id"

// deviceAuthRequired resolves the bearer token to a device id and stores
// it on the context for handlers and the request logger.
func deviceAuthRequired(issuer *identity.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, identity.ErrInvalidToken)
			return
		}

		deviceID, err := issuer.Verify(strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(deviceIDKey, deviceID)
		c.Next()
	}
}

// adminKeyRequired compares X-Api-Key against the configured bcrypt hash.
// With no hash configured the admin surface is closed outright.
func adminKeyRequired(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		key := strings.TrimSpace(c.GetHeader("X-Api-Key"))
		if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			respondError(c, identity.ErrInvalidToken)
			return
		}
		c.Next()
	}
}

// activateRateLimit slows code guessing per client address. A nil bucket
// (redis not configured) passes everything through.
func activateRateLimit(bucket *ratelimit.TokenBucket, log *zap.Logger) gin.HandlerFunc {
	const (
		rate  = 0.5
		burst = 5
	)
	return func(c *gin.Context) {
		if bucket == nil {
			c.Next()
			return
		}

		res, err := bucket.Allow(c.Request.Context(), "activate:"+c.ClientIP(), rate, burst)
		if err != nil {
			// redis trouble does not block activation
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}
