package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"resume-matcher/internal/domain"
	"resume-matcher/internal/repository"
)

const (
	ctxCurrentUser = "currentUser"
	ctxRequestID   = "requestID"
	headerRequest  = "X-Request-ID"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, WWW-Authenticate")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger tags each request with an id and logs one entry once it completes.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequest))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequest, id)

		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

func requestLog(c *gin.Context, logger *logrus.Logger) *logrus.Entry {
	return logger.WithField("request_id", c.GetString(ctxRequestID))
}

// requireUser resolves the bearer token to an account and aborts with 401 otherwise.
// It runs before the handler reads the request body.
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abortUnauthorized(c)
			return
		}

		email, err := h.tokens.Validate(token)
		if err != nil {
			requestLog(c, h.logger).WithError(err).Debug("rejected bearer token")
			abortUnauthorized(c)
			return
		}

		user, err := h.users.GetByEmail(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				abortUnauthorized(c)
				return
			}
			requestLog(c, h.logger).WithError(err).Error("load current user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": detailInternal})
			return
		}

		c.Set(ctxCurrentUser, user)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailBadToken})
}

func currentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(ctxCurrentUser); ok {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return nil
}
