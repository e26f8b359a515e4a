// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sunpath-tracker/backend/internal/config"
	"github.com/sunpath-tracker/backend/internal/dataset"
	"github.com/sunpath-tracker/backend/internal/playback"
	"github.com/sunpath-tracker/backend/internal/storage"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Config   *config.AppConfig
	Store    storage.Store
	Loader   LoadController
	Settings *playback.Settings
	Series   *dataset.Series
	Hub      *Hub
	Metrics  http.Handler
	Log      *zap.Logger
	Version  string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Files     FileHandler
	Load      LoadHandler
	Series    SeriesHandler
	Config    ConfigHandler
	WebSocket *WebSocketHandler
	Metrics   http.Handler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	cfg := deps.Config
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Loader),
		Files:  NewFileHandler(deps.Store, cfg.Storage.AllowedFileTypes, deps.Log.Named("files")),
		Load: NewLoadHandler(deps.Store, deps.Loader, deps.Settings,
			deps.Hub.PointAdded, deps.Hub.LoadFinished, cfg.Loader.AllowLocalPaths, deps.Log.Named("load")),
		Series:    NewSeriesHandler(deps.Series, deps.Settings, cfg.Chart.Width, cfg.Chart.Height),
		Config:    NewConfigHandler(deps.Settings, deps.Log.Named("config")),
		WebSocket: NewWebSocketHandler(deps.Hub, deps.Series, deps.Log),
		Metrics:   deps.Metrics,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, metricsPath string) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Input files
	apiGroup.POST("/files/upload", handlers.Files.HandleUploadFile)
	apiGroup.GET("/files/recent", handlers.Files.HandleGetRecentFiles)
	apiGroup.GET("/files/:id", handlers.Files.HandleGetFile)
	apiGroup.DELETE("/files/:id", handlers.Files.HandleDeleteFile)

	// Loading
	apiGroup.POST("/load", handlers.Load.HandleStartLoad)
	apiGroup.DELETE("/load", handlers.Load.HandleCancelLoad)
	apiGroup.GET("/load/status", handlers.Load.HandleLoadStatus)
	apiGroup.GET("/load/progress", handlers.Load.HandleLoadProgressStream)

	// Series
	apiGroup.GET("/series", handlers.Series.HandleGetSeries)
	apiGroup.GET("/series/msgpack", handlers.Series.HandleGetSeriesMsgpack)
	apiGroup.GET("/series/chart.png", handlers.Series.HandleGetChart)
	apiGroup.GET("/ws/series", handlers.WebSocket.HandleWebSocket)

	// Settings
	apiGroup.GET("/config/playback", handlers.Config.HandleGetPlayback)
	apiGroup.PUT("/config/playback", handlers.Config.HandleUpdatePlayback)
	apiGroup.GET("/config/chart", handlers.Config.HandleGetChartStyle)
	apiGroup.PUT("/config/chart", handlers.Config.HandleUpdateChartStyle)

	if handlers.Metrics != nil && metricsPath != "" {
		e.GET(metricsPath, echo.WrapHandler(handlers.Metrics))
	}
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig, log *zap.Logger) {
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(log, cfg.Logging.Level == "debug")

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("handler panicked", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))

	if cfg.Logging.RequestLogging {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper:     skipNoisyPaths,
			LogMethod:   true,
			LogURI:      true,
			LogStatus:   true,
			LogLatency:  true,
			LogRemoteIP: true,
			LogError:    true,
			HandleError: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				fields := []zap.Field{
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.Duration("latency", v.Latency),
					zap.String("remote", v.RemoteIP),
				}
				if v.Error != nil {
					log.Warn("request", append(fields, zap.Error(v.Error))...)
					return nil
				}
				log.Info("request", fields...)
				return nil
			},
		}))
	}

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/progress") ||
				strings.HasPrefix(path, "/api/ws/") ||
				strings.HasSuffix(path, "/upload") ||
				cfg.Server.ReadTimeout <= 0
		},
		ErrorMessage: "Request timeout",
	}))
}

// skipNoisyPaths keeps polling endpoints out of the access log.
func skipNoisyPaths(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasSuffix(path, "/status") ||
		strings.HasSuffix(path, "/progress") ||
		path == "/api/health" ||
		path == "/metrics"
}
