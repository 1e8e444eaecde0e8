package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, handler *AgentHandler, jwtSecret string) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/auth/token", handler.Login)

		// Agent routes (protected)
		agent := api.Group("/agent")
		agent.Use(AuthMiddleware(jwtSecret))
		{
			agent.POST("/run", handler.TriggerRun)
			agent.GET("/stats", handler.GetStats)
			agent.GET("/index", handler.ListIndex)
			agent.GET("/actions", handler.ListActions)
			agent.GET("/summaries", handler.ListSummaries)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(AuthMiddleware(jwtSecret))
		{
			fcm.POST("/register", handler.RegisterFCMToken)
			fcm.DELETE("/:token", handler.UnregisterFCMToken)
		}
	}
}
