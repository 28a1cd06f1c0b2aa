package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/cache"
	"github.com/aruzhans/oppora/pkg/response"
)

const healthCheckTimeout = 5 * time.Second

// Health reports readiness of the database and, when configured, Redis.
// The endpoint answers 200 with per-dependency status; a failing dependency
// flips the overall status and the HTTP code to 503.
func Health(db *gorm.DB, redis *cache.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{}

		dbStatus := "ok"
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}
		checks["database"] = dbStatus

		if redis != nil {
			redisStatus := "ok"
			if err := redis.Ping(ctx); err != nil {
				redisStatus = "down"
				status = http.StatusServiceUnavailable
			}
			checks["redis"] = redisStatus
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		response.Success(c, status, gin.H{"status": overall, "checks": checks})
	}
}
