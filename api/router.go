package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/api/handlers"
	"github.com/yourusername/tubetrove-go/api/middleware"
	"github.com/yourusername/tubetrove-go/pkg/logger"
)

// Dependencies are the services exposed over HTTP
type Dependencies struct {
	Downloads   handlers.DownloadService
	Queue       handlers.QueueStatus
	Transcoder  handlers.TranscoderStatus
	Library     handlers.LibraryService
	Settings    handlers.SettingsService
	Events      handlers.EventSource
	Logger      *zap.Logger
	MultiLogger *logger.MultiLogger
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logger, deps.MultiLogger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.Queue, deps.Transcoder)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(deps.Downloads, deps.Logger)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
		}
		v1.GET("/formats", downloadHandler.GetFormats)

		libraryHandler := handlers.NewLibraryHandler(deps.Library, deps.Logger)
		library := v1.Group("/library")
		{
			library.GET("", libraryHandler.GetLibrary)
			library.POST("/refresh", libraryHandler.Refresh)
			library.POST("/:category/:index/open", libraryHandler.Open)
			library.GET("/:category/:index/thumbnail", libraryHandler.Thumbnail)
		}

		settingsHandler := handlers.NewSettingsHandler(deps.Settings, deps.Logger)
		v1.GET("/settings", settingsHandler.GetSettings)
		v1.PUT("/settings", settingsHandler.UpdateSettings)
		v1.GET("/themes", settingsHandler.GetThemes)

		eventsHandler := handlers.NewEventsWebSocketHandler(deps.Events, deps.Library, deps.Settings, deps.Logger)
		v1.GET("/events", eventsHandler.HandleWebSocket)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
