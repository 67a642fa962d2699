package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"promise-tracker/models"
	"promise-tracker/services"
)

// HealthCheck prüft eine Abhängigkeit (Datenbank, Redis).
type HealthCheck func(ctx context.Context) error

type Options struct {
	APIKey         string
	DefaultRole    models.Role
	MaxUploadBytes int64
	Checks         map[string]HealthCheck
}

// NewRouter baut die HTTP-Oberfläche. /healthz ist ohne API-Key erreichbar.
func NewRouter(svc *services.EvidenceService, opts Options, log *zap.Logger) *gin.Engine {
	if !opts.DefaultRole.Valid() {
		opts.DefaultRole = models.RoleCitizen
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/healthz", healthHandler(opts.Checks))

	protected := router.Group("", apiKeyAuthMiddleware(opts.APIKey))
	protected.GET("/metrics", gin.WrapH(promhttp.Handler()))

	evidence := protected.Group("/api/evidence", identityMiddleware(opts.DefaultRole, svc.StoredRole, log))
	setupEvidenceRoutes(evidence, svc, log, opts.MaxUploadBytes)

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := "healthy"
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = "unhealthy"
				continue
			}
			results[name] = "ok"
		}
		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "checks": results})
	}
}
