package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/weekplate/backend/internal/middleware"
	"github.com/weekplate/backend/internal/service"
)

// SetupAPI wires the v1 route group. The orchestrator is started by the
// server; handlers only enqueue work on it.
func SetupAPI(router *gin.Engine, db *gorm.DB, redisClient *redis.Client, jwtSecret string, queue PlanEnqueuer) {
	v1 := router.Group("/api/v1")
	{
		authService := service.NewAuthService(jwtSecret)
		cache := service.NewRedisCoordinator(redisClient)
		planService := service.NewPlanService(db, cache)
		ratingService := service.NewRatingService(db)
		catalogService := service.NewCatalogService(db)

		var limiter *middleware.RateLimiter
		if redisClient != nil {
			limiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
				Window:    defaultRateLimitWindow,
				Limit:     defaultRateLimitCount,
				KeyPrefix: "ratelimit:plans",
			})
		}

		planHandler := NewPlanHandler(planService, queue, authService, limiter)
		ratingHandler := NewRatingHandler(ratingService, catalogService, authService)

		planHandler.RegisterRoutes(v1)
		ratingHandler.RegisterRoutes(v1)
	}
}
