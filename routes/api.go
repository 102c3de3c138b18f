package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/evotools/evo-dispatch/environments"
	"github.com/evotools/evo-dispatch/handlers"
	"github.com/evotools/evo-dispatch/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	jobHandler *handlers.JobHandler,
	campaignHandler *handlers.CampaignHandler,
	dispatcherHandler *handlers.DispatcherHandler,
	instanceHandler *handlers.InstanceHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 base group
	v1 := e.Group("/api/v1")

	// Job and campaign routes share the jobs API key
	jobs := v1.Group("/jobs", middlewares.APIKeyAuth(cfg.Auth.JobsAPIKey))

	jobs.GET("", jobHandler.ListJobs)
	jobs.POST("/text", jobHandler.ScheduleText)
	jobs.POST("/media", jobHandler.ScheduleMedia)
	jobs.GET("/stats", jobHandler.GetStats)
	jobs.GET("/cached", jobHandler.GetCachedJobs)
	jobs.DELETE("/:id", jobHandler.RemoveJob)

	campaigns := v1.Group("/campaigns", middlewares.APIKeyAuth(cfg.Auth.JobsAPIKey))

	campaigns.GET("/template", campaignHandler.GetTemplate)
	campaigns.POST("/import", campaignHandler.ImportContacts)
	campaigns.POST("/preview", campaignHandler.Preview)
	campaigns.POST("", campaignHandler.ScheduleCampaign)

	instances := v1.Group("/instances", middlewares.APIKeyAuth(cfg.Auth.JobsAPIKey))

	instances.GET("", instanceHandler.ListInstances)
	instances.GET("/:name/state", instanceHandler.ConnectionState)

	// Dispatcher routes with their own API key
	dispatcherGroup := v1.Group("/dispatcher", middlewares.APIKeyAuth(cfg.Auth.DispatcherAPIKey))

	dispatcherGroup.POST("/start", dispatcherHandler.Start)
	dispatcherGroup.POST("/stop", dispatcherHandler.Stop)
	dispatcherGroup.GET("/status", dispatcherHandler.Status)
}
