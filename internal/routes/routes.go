// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pilite-service/internal/config"
	"pilite-service/internal/handler"
	"pilite-service/internal/middleware"
	"pilite-service/internal/service"
	"pilite-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config         *config.Config
	logger         *zap.Logger
	display        handler.DisplayStatus
	db             handler.DatabaseChecker
	displayService *service.DisplayService
	eventBus       *handler.EventBus
}

// NewRouter creates a new router instance. db may be nil.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	display handler.DisplayStatus,
	db handler.DatabaseChecker,
	displayService *service.DisplayService,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		config:         config,
		logger:         logger,
		display:        display,
		db:             db,
		displayService: displayService,
		eventBus:       eventBus,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	gin.SetMode(r.ginMode())

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

func (r *Router) ginMode() string {
	switch {
	case r.config.IsProduction():
		return gin.ReleaseMode
	case r.config.App.Environment == "test":
		return gin.TestMode
	case r.config.IsDebugEnabled():
		return gin.DebugMode
	default:
		return gin.ReleaseMode
	}
}

func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(r.logger))

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Debug("Middleware configured")
}

func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.display, r.db, r.config, r.logger)
	displayHandler := handler.NewDisplayHandler(r.displayService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.eventBus, r.config.Security.AllowedOrigins, r.logger)

	health := router.Group("")
	{
		health.GET("/health", healthHandler.HealthCheck)
		health.GET("/ready", healthHandler.ReadinessCheck)
		health.GET("/live", healthHandler.LivenessCheck)
	}

	apiV1 := router.Group("/api/v1")
	displayHandler.RegisterRoutes(apiV1)

	ws := router.Group("/ws")
	{
		ws.GET("/events", wsHandler.HandleEventConnection)
		ws.GET("/stats", wsHandler.HandleStats)
	}

	r.logger.Info("All routes configured successfully")
}
