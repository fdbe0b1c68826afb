package routes

import (
	"github.com/tobi-04/srm-be-sub001/controllers"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Email Automation API is running",
				})
			})

			// Business event intake feeding the trigger dispatcher
			public.POST("/events", controllers.IngestEvent)
		}

		// Administrative surface
		admin := v1.Group("")
		{
			// Automations and their steps
			automations := admin.Group("/automations")
			{
				automations.GET("", controllers.GetAutomations)
				automations.GET("/:id", controllers.GetAutomation)
				automations.POST("", controllers.CreateAutomation)
				automations.PUT("/:id", controllers.UpdateAutomation)
				automations.DELETE("/:id", controllers.DeleteAutomation)
				automations.POST("/:id/toggle", controllers.ToggleAutomation)
				automations.POST("/:id/steps", controllers.CreateStep)
			}

			steps := admin.Group("/steps")
			{
				steps.PUT("/:step_id", controllers.UpdateStep)
				steps.DELETE("/:step_id", controllers.DeleteStep)
			}

			// Template tooling
			templates := admin.Group("/templates")
			{
				templates.POST("/preview", controllers.PreviewTemplate)
				templates.GET("/variables", controllers.GetTemplateVariables)
			}

			// Send history (notification log)
			history := admin.Group("/send-history")
			{
				history.GET("", controllers.GetSendHistory)
				history.GET("/:id", controllers.GetSendHistoryEntry)
			}

			// Queue census for operators
			admin.GET("/queue/status", controllers.GetQueueStatus)
		}
	}
}
