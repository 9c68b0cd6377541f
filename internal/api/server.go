package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/sse"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// Config configures the HTTP layer.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string
	JWTIssuer    string
	CORSOrigins  []string
	Debug        bool
}

// ResetFunc sets every platform back to idle and publishes the table to
// channel.
type ResetFunc func(channel string)

// Dependencies are the services behind the routes. History, Reset and
// Metrics are optional.
type Dependencies struct {
	Tasks     TaskService
	History   OperationHistory
	Schedules ScheduleService
	Events    sse.Subscriber
	Snapshot  sse.SnapshotFunc
	Reset     ResetFunc
	Metrics   http.Handler
	Checks    map[string]HealthCheck
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config, deps Dependencies, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.NewNop()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	router := gin.New()
	router.Use(
		RecoveryMiddleware(log),
		LoggerMiddleware(log),
		CORSMiddleware(cfg.CORSOrigins),
	)

	router.GET("/health", healthHandler(deps.Checks))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	operations := NewOperationsHandler(deps.Tasks, deps.History)
	schedules := NewSchedulesHandler(deps.Schedules)

	v1 := router.Group("/api/v1")
	v1.Use(JWTMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	{
		v1.POST("/operations", operations.Submit)
		v1.GET("/operations", operations.List)
		v1.DELETE("/operations/:id", operations.Delete)
		v1.GET("/tasks/:id", operations.GetTask)

		v1.GET("/platforms", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"platforms": deps.Snapshot()})
		})
		v1.POST("/platforms/reset", resetHandler(deps.Reset, deps.Snapshot))
		v1.GET("/events", sse.Handler(deps.Events, deps.Snapshot, UserFromContext, log))

		v1.GET("/schedules", schedules.List)
		v1.POST("/schedules", schedules.Create)
		v1.PUT("/schedules/:id/enable", schedules.Enable)
		v1.PUT("/schedules/:id/disable", schedules.Disable)
		v1.DELETE("/schedules/:id", schedules.Delete)
	}

	return router
}

// NewServer wraps the router in an http.Server.
func NewServer(cfg Config, deps Dependencies, log logger.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           NewRouter(cfg, deps, log),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

func resetHandler(reset ResetFunc, snapshot sse.SnapshotFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reset == nil {
			respondError(c, http.StatusNotImplemented, "platform reset is not configured")
			return
		}
		reset(UserFromContext(c))
		c.JSON(http.StatusOK, gin.H{"platforms": snapshot()})
	}
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results})
	}
}
