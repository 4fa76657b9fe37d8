package app

import (
	"rewards_backend/internal/config"
	"rewards_backend/internal/middleware"
	"rewards_backend/internal/model"
	"rewards_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	// 公共接口
	router.GET("/api/health", c.health.HealthCheck)
	router.POST("/api/register", c.auth.Register)
	router.POST("/api/login", c.auth.Login)
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 需要登录的接口
	auth := router.Group("/api")
	auth.Use(middleware.AuthMiddleware(cfg))
	{
		auth.GET("/me", c.auth.Me)

		auth.GET("/games/:gameId/checkin/claimable", c.checkin.GetClaimable)
		auth.POST("/games/:gameId/checkin/claim", c.checkin.ClaimDay)
		auth.POST("/games/:gameId/checkin/complete-reward", c.checkin.ClaimCompleteReward)

		auth.GET("/games/:gameId/coupons", c.coupon.List)
		auth.POST("/games/:gameId/coupons/redeem", c.coupon.Redeem)

		auth.GET("/balance", c.balance.GetBalance)
		auth.POST("/balance/adjust", c.balance.Adjust)
	}

	// 管理接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.POST("/games", c.admin.SaveGame)
		admin.POST("/games/:gameId/day-rewards", c.admin.SaveDayReward)
		admin.GET("/games/:gameId/day-rewards", c.admin.ListDayRewards)
		admin.POST("/games/:gameId/coupon-items", c.admin.SaveCouponItem)
		admin.GET("/games/:gameId/pools/:slotId", c.admin.GetPool)
		admin.POST("/games/:gameId/migrate", c.admin.Migrate)
	}
}
