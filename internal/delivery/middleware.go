package delivery

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_ip":   c.ClientIP(),
			"latency_ms":  time.Since(startTime).Milliseconds(),
		})

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		case statusCode >= 500:
			entry.Error("Request completed with server error")
		case statusCode >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

func sameToken(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// BearerAuth guards the dashboard routes. An empty token disables the check.
// Browsers cannot set headers on a websocket handshake, so a "token" query
// parameter is accepted as well.
func BearerAuth(token string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if q := c.Query("token"); q != "" && sameToken(q, token) {
				c.Next()
				return
			}
			log.Warn("Middleware: Authorization header is missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Authorization header required"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || !sameToken(parts[1], token) {
			log.Warn("Middleware: Invalid dashboard token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Invalid token"})
			return
		}
		c.Next()
	}
}

// HeaderToken checks a shared secret carried in a custom header.
func HeaderToken(header, token string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if !sameToken(c.GetHeader(header), token) {
			log.Warnf("Middleware: Missing or invalid %s", header)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Invalid or missing " + header})
			return
		}
		c.Next()
	}
}
