package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls which origins may call the API from a browser.
type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

const (
	corsMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsHeaders = "Accept, Authorization, Cache-Control, Content-Length, Content-Type, Origin, X-Requested-With"
)

// CORS returns a middleware applying the configured cross-origin policy.
// Disallowed origins receive no CORS headers; the browser enforces the rest.
func CORS(config CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}

		// The response differs per origin, caches must key on it.
		c.Header("Vary", "Origin")

		if allowed, credentials := resolveOrigin(origin, config); allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", corsMethods)
			c.Header("Access-Control-Allow-Headers", corsHeaders)
			c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
			if credentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// resolveOrigin maps a request origin to the Allow-Origin header value. A
// wildcard response cannot carry credentials, an echoed origin can.
func resolveOrigin(origin string, config CORSConfig) (string, bool) {
	if config.AllowAllOrigins {
		return "*", false
	}
	for _, candidate := range config.AllowedOrigins {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return origin, true
		}
	}
	return "", false
}
