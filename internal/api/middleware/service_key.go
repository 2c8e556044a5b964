package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/repository"
)

// ServiceKeyMiddleware authenticates internal operational callers (cron
// jobs, ops dashboards) by an X-Service-Key header checked against the
// stored key hashes.
func ServiceKeyMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Service-Key")
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing service key"})
			return
		}

		serviceKey, err := repos.ServiceKey.VerifyKey(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Service key verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid service key"})
			return
		}

		c.Set("service_key_name", serviceKey.Name)
		c.Next()
	}
}
