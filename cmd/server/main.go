package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/glucosense/riskmeter/internal/artifact"
	"github.com/glucosense/riskmeter/internal/assessment"
	"github.com/glucosense/riskmeter/internal/cache"
	"github.com/glucosense/riskmeter/internal/errors"
	"github.com/glucosense/riskmeter/internal/monitoring"
	"github.com/glucosense/riskmeter/internal/ratelimit"
	"github.com/glucosense/riskmeter/internal/security"
	"github.com/glucosense/riskmeter/internal/stats"
	"github.com/glucosense/riskmeter/internal/types"
)

// application bundles the long-lived services the handlers close over
type application struct {
	assessor   *assessment.Assessor
	cache      *cache.Cache
	metrics    *monitoring.Metrics
	logger     *monitoring.Logger
	limiter    *ratelimit.RateLimiter
	statsStore *stats.Store
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	artifactDir := getEnvOrDefault("ARTIFACT_DIR", "./artifacts")
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	port := getEnvOrDefault("PORT", "8080")
	redisURL := os.Getenv("REDIS_URL")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	// Load the model artifacts. A broken bundle means the service cannot
	// score anything, so startup fails hard.
	bundle, err := artifact.Load(artifactDir)
	if err != nil {
		slog.Error("Failed to load artifact bundle", "dir", artifactDir, "error", err)
		os.Exit(1)
	}

	assessor, err := assessment.NewAssessor(bundle)
	if err != nil {
		slog.Error("Failed to initialize assessor", "error", err)
		os.Exit(1)
	}

	// Initialize monitoring system
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	// Anonymous severity tallies; the service runs without them if the
	// store cannot open.
	statsStore, err := stats.NewStore(dataDir)
	if err != nil {
		slog.Warn("Stats store unavailable, severity tallies disabled", "error", err)
		statsStore = nil
	} else {
		defer errors.SafeClose(statsStore, "stats store")
	}

	// Redis-backed rate limiting with in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(redisURL, redisPassword, redisDB)
	if err != nil {
		slog.Warn("Redis connection failed, continuing with in-memory rate limiting", "error", err)
	}
	defer errors.SafeClose(redisClient, "redis client")

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	// Initialize cache (15 minutes TTL)
	appCache := cache.NewCache(15 * time.Minute)

	app := &application{
		assessor:   assessor,
		cache:      appCache,
		metrics:    appMetrics,
		logger:     appLogger,
		limiter:    limiter,
		statsStore: statsStore,
	}

	r := setupRouter(app, artifactDir)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port, "artifact_dir", artifactDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// setupRouter wires the middleware stack and routes. artifactDir is the
// default reload location for the admin endpoint.
func setupRouter(app *application, artifactDir string) *gin.Engine {
	r := gin.New()

	// Add monitoring middleware first (to capture all requests)
	r.Use(monitoring.MonitoringMiddleware(app.metrics, app.logger))

	// Add error handling middleware
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	// Security middleware setup
	securityConfig := security.DefaultSecurityConfig()
	securityMiddleware := security.NewSecurityMiddleware(securityConfig)

	r.Use(securityMiddleware.RequestID)
	r.Use(securityMiddleware.SecurityHeaders)
	r.Use(securityMiddleware.RequestTimeout)
	r.Use(securityMiddleware.ValidateContentType)
	r.Use(securityMiddleware.LimitBodySize)

	// CORS for the questionnaire frontend
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = securityConfig.AllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Request-ID")
	r.Use(cors.New(corsConfig))

	// IP rate limiting ahead of any scoring work
	r.Use(app.limiter.IPRateLimitMiddleware())

	// Response cache for repeated identical answer payloads
	r.Use(app.cache.Middleware(app.metrics))

	r.GET("/health", func(c *gin.Context) {
		bundle := app.assessor.Bundle()
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"artifacts": gin.H{
				"dir":       bundle.Dir,
				"features":  bundle.FeatureCount(),
				"trees":     len(bundle.Model.Trees),
				"loaded_at": bundle.LoadedAt.Format(time.RFC3339),
			},
			"metrics": app.metrics.GetStats(),
		})
	})

	r.POST("/assess", app.handleAssess)

	// Admin reload endpoint: stricter per-endpoint limit, no caching
	r.POST("/admin/artifacts/reload",
		app.limiter.EndpointRateLimitMiddleware("artifacts_reload", 5),
		func(c *gin.Context) {
			dir := artifactDir
			if override := c.Query("dir"); override != "" {
				dir = override
			}

			if err := app.assessor.Reload(dir); err != nil {
				appErr := errors.ToAppError(err)
				errors.LogError(c, appErr)
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}

			// Cached responses were produced by the previous model
			app.cache.Clear()
			app.metrics.IncrementArtifactReload()

			bundle := app.assessor.Bundle()
			app.logger.ArtifactLogger("reloaded", dir, bundle.FeatureCount(), len(bundle.Model.Trees))

			c.JSON(http.StatusOK, gin.H{
				"message":   "artifact bundle reloaded",
				"dir":       dir,
				"features":  bundle.FeatureCount(),
				"trees":     len(bundle.Model.Trees),
				"loaded_at": bundle.LoadedAt.Format(time.RFC3339),
			})
		})

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Metrics endpoint
	r.GET("/metrics", func(c *gin.Context) {
		stats := app.metrics.GetStats()
		c.JSON(http.StatusOK, stats)
	})

	// Cache stats endpoint
	r.GET("/cache/stats", func(c *gin.Context) {
		stats := app.cache.Stats()
		c.JSON(http.StatusOK, stats)
	})

	// Rate limiter stats endpoint
	r.GET("/ratelimit/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"limiter": app.limiter.GetStats(),
			"blocks":  app.metrics.GetRateLimitStats(),
		})
	})

	// Aggregate severity tallies endpoint
	r.GET("/stats/severity", func(c *gin.Context) {
		if app.statsStore == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "severity tallies disabled"})
			return
		}

		days := 30
		if daysStr := c.Query("days"); daysStr != "" {
			if d, err := strconv.Atoi(daysStr); err == nil && d > 0 && d <= 365 {
				days = d
			}
		}

		tallies, err := app.statsStore.RecentTallies(days)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		totals, err := app.statsStore.Totals()
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"days":    days,
			"tallies": tallies,
			"totals":  totals,
		})
	})

	return r
}

// handleAssess runs the scoring pipeline for one validated answer payload
func (app *application) handleAssess(c *gin.Context) {
	start := time.Now()

	var req types.AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.NewValidationError("invalid assessment request", err.Error())
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	result, err := app.assessor.Assess(req.Answers())
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	severity := result.Severity.String()
	app.metrics.RecordAssessment(severity, result.MissingAnswers)
	if len(result.Explanations) == 0 {
		app.metrics.IncrementAttributionFailure()
	}

	// Tally severity asynchronously; the response never waits on disk
	if app.statsStore != nil {
		go func() {
			if err := app.statsStore.RecordSeverity(severity); err != nil {
				slog.Error("Failed to record severity tally", "error", err)
			}
		}()
	}

	app.logger.AssessmentLogger(severity, result.Prediction.Probability,
		result.MissingAnswers, time.Since(start), false)

	c.JSON(http.StatusOK, result)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
