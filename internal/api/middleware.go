package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint of every role.
const Version = "1.2.0"

// CORS enables cross-origin access, configurable via allowedOrigins
// (comma-separated; empty or "*" allows everything, for development).
func CORS(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-API-Key, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// RootHandler returns the minimal service identity payload. Deliberately
// nothing else: no capabilities, no config echo.
func RootHandler(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": service,
			"version": Version,
			"status":  "operational",
		})
	}
}

// HealthHandler reports liveness plus whatever extra fields the role
// supplies (algorithm name, cache occupancy, target counts).
func HealthHandler(service string, extra func() gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{
			"status":  "operational",
			"service": service,
		}
		if extra != nil {
			for k, v := range extra() {
				payload[k] = v
			}
		}
		c.JSON(http.StatusOK, payload)
	}
}
