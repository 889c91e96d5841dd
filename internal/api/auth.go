package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────
// API Key Authentication Middleware
//
// Mutation endpoints require: X-API-Key: <key>
// If no key is configured, all requests are allowed (dev mode).
// Health and root endpoints are public and never pass through this.
// ──────────────────────────────────────────────────────────────────

// APIKeyAuth returns a Gin middleware that validates the X-API-Key header
// against key. An empty key disables authentication.
// WARNING: in GIN_MODE=release, leaving API_KEY unset exposes all mutation
// endpoints to the public internet. Always set a strong key in prod.
func APIKeyAuth(key string) gin.HandlerFunc {
	if key == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("[SECURITY WARNING] API_KEY is not set in release mode. " +
			"All mutation endpoints are publicly accessible. " +
			"Set API_KEY in your environment to enforce authentication.")
	}

	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		supplied := c.GetHeader("X-API-Key")
		if supplied == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
			c.Abort()
			return
		}

		// Constant-time comparison to prevent timing-based key enumeration.
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
