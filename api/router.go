package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/tikdown-go/api/handlers"
	"github.com/yourusername/tikdown-go/api/middleware"
	"github.com/yourusername/tikdown-go/internal/app"
	"github.com/yourusername/tikdown-go/internal/domain"
	"github.com/yourusername/tikdown-go/pkg/logger"
	"go.uber.org/zap"
)

// Dependencies groups what the router serves. Repo, Events and Gatherer
// are optional.
type Dependencies struct {
	Pipeline    *app.Pipeline
	DownloadMgr *app.DownloadManager
	Repo        domain.RecordRepository
	Events      *logger.MultiLogger
	Gatherer    prometheus.Gatherer
	Config      *domain.Config
	Logger      *zap.Logger
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(deps.Logger, deps.Events))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.DownloadMgr, deps.Repo)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if deps.Config.Metrics.Enabled && deps.Gatherer != nil {
		router.GET(deps.Config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		resolveHandler := handlers.NewResolveHandler(deps.Pipeline)
		v1.POST("/resolve", resolveHandler.Resolve)

		downloadHandler := handlers.NewDownloadHandler(deps.DownloadMgr, deps.Repo, deps.Logger)
		progressHandler := handlers.NewProgressWebSocketHandler(deps.DownloadMgr, deps.Config.Download.ProgressInterval, deps.Logger)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.StartDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/current", downloadHandler.CurrentDownload)
			downloads.GET("/current/ws", progressHandler.HandleWebSocket)
			downloads.POST("/current/cancel", downloadHandler.CancelDownload)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
		}

		if deps.Config.Logging.LogsDir != "" {
			logHandler := handlers.NewLogHandler(deps.Config.Logging.LogsDir)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/export", logHandler.ExportLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	return router
}
