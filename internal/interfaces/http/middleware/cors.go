package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls cross-origin access to the dashboard API.
type CORSConfig struct {
	// AllowedOrigins lists origins permitted to call the API.  "*" allows
	// everyone; "*.example.com" allows subdomains.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	// MaxAge is how long, in seconds, browsers may cache preflights.
	MaxAge int
}

// DefaultCORSConfig allows any origin without credentials, which suits a
// dashboard served from the same deployment.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		MaxAge:         600,
	}
}

// CORS answers preflights and stamps the Access-Control headers on matching
// origins.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		allowed := matchOrigin(cfg.AllowedOrigins, origin)
		if allowed != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			if allowed != "" {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func matchOrigin(allowed []string, origin string) string {
	for _, a := range allowed {
		switch {
		case a == "*":
			return "*"
		case a == origin:
			return origin
		case strings.HasPrefix(a, "*."):
			host := origin
			if i := strings.Index(host, "://"); i >= 0 {
				host = host[i+3:]
			}
			if strings.HasSuffix(host, a[1:]) {
				return origin
			}
		}
	}
	return ""
}
