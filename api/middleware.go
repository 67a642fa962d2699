package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promise-tracker/models"
	"promise-tracker/services"
)

const actorKey = "actor"

// Header des vorgelagerten Gateways
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
	HeaderAPIKey = "X-API-KEY"
)

func apiKeyAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		if c.GetHeader(HeaderAPIKey) != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// roleLookup liefert die gespeicherte Rolle eines Nutzers.
type roleLookup func(ctx context.Context, userID string) (models.Role, error)

// identityMiddleware übernimmt den Nutzer aus den Gateway-Headern. Für bekannte
// Nutzer gilt die Rolle aus dem Verzeichnis. Unbekannte Nutzer erhalten die
// Header-Rolle, eine vertrauenswürdige aber nur, wenn sie defaultRole ist.
// Fehlt die Header-Rolle oder ist sie unbekannt, gilt defaultRole.
func identityMiddleware(defaultRole models.Role, lookup roleLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		role := models.Role(c.GetHeader(HeaderRole))
		if !role.Valid() {
			role = defaultRole
		}

		var stored models.Role
		err := error(services.ErrUserNotFound)
		if userID != "" {
			stored, err = lookup(c.Request.Context(), userID)
		}
		switch {
		case err == nil && stored.Valid():
			role = stored
		case role.Trusted() && role != defaultRole:
			role = defaultRole
		}
		if err != nil && !errors.Is(err, services.ErrUserNotFound) {
			logger.Warn("role lookup failed", zap.String("user_id", userID), zap.Error(err))
		}

		c.Set(actorKey, services.Actor{
			UserID: userID,
			Role:   role,
		})
		c.Next()
	}
}

func actorFrom(c *gin.Context) services.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(services.Actor); ok {
			return a
		}
	}
	return services.Actor{}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorFrom(c).UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func requireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorFrom(c).Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// requestLogger protokolliert jede Anfrage strukturiert. Pfade werden als
// Routenmuster geloggt, damit keine IDs im Log landen.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.Int("bytes_sent", c.Writer.Size()),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
