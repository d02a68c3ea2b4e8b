package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/bib-pipeline/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Starting runs spends customer quota and requires authentication
		v1.POST("/runs", middleware.Auth(authCfg), handler.StartRun)
		v1.GET("/runs/:id", handler.GetRun)

		v1.GET("/customers/:id/usage", middleware.Auth(authCfg), handler.GetCustomerUsage)
		v1.PUT("/customers/:id/contract", middleware.Auth(authCfg), handler.UpsertContract)

		v1.GET("/pending", handler.ListPending)
	}
}
