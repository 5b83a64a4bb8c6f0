package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/meal-analyzer/internal/config"
	"github.com/phambaophuc/meal-analyzer/internal/http/handlers"
	"github.com/phambaophuc/meal-analyzer/internal/http/middleware"
	"go.uber.org/zap"
)

type Router struct {
	mealHandler   *handlers.MealHandler
	systemHandler *handlers.SystemHandler
	gateway       *handlers.ShellGateway
	config        *config.Config
	logger        *zap.Logger
}

func NewRouter(
	mealHandler *handlers.MealHandler,
	systemHandler *handlers.SystemHandler,
	gateway *handlers.ShellGateway,
	config *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		mealHandler:   mealHandler,
		systemHandler: systemHandler,
		gateway:       gateway,
		config:        config,
		logger:        logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.systemHandler.HealthCheck)
		v1.GET("/cache", r.systemHandler.CacheStatus)

		meals := v1.Group("/meals")
		{
			meals.POST("/analyze", middleware.RequireMultipart(r.config.Storage.MaxFileSize), r.mealHandler.AnalyzeMeal)
			meals.GET("/recent", r.mealHandler.RecentMeals)
		}

		stats := v1.Group("/stats")
		{
			stats.GET("/today", r.mealHandler.TodayStats)
			stats.DELETE("/today", r.mealHandler.ResetTodayStats)
		}
	}

	// everything else is the app shell
	router.NoRoute(r.gateway.Serve)

	return router
}
