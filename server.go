package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/middlewares"
	"github.com/grampanchayat/villagestats_backend/models/reports"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/grampanchayat/villagestats_backend/workflow"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = "8080"

var tracer = otel.Tracer("villagestats-backend")

// app carries the dependencies handlers need beyond the config globals.
type app struct {
	blobs reports.BlobStore
}

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// readinessGate answers 503 until the document store is connected.
func readinessGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/healthz", "/metrics":
			c.Next()
			return
		}
		if config.GetDocStore() == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service is starting"})
			return
		}
		c.Next()
	}
}

func tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.method", c.Request.Method)))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

func corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist; other environments allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if config.IsProduction() {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id", middlewares.TenantHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	return cors.New(corsConfig)
}

// rateLimitFromEnv returns nil unless RATE_LIMIT_ENABLED is set and redis is connected.
func rateLimitFromEnv() gin.HandlerFunc {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		return nil
	}
	limit := int64(600)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	windowSec := int64(60)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			windowSec = n
		}
	}
	return func(c *gin.Context) {
		client := config.GetRedisDB()
		if client == nil {
			c.Next()
			return
		}
		NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second).RateLimitMiddleware(c)
	}
}

func newRouter(a *app) *gin.Engine {
	logger := config.GetLogger()

	r := gin.New()
	r.Use(correlationMiddleware())
	r.Use(readinessGate())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(corsMiddleware())
	if rl := rateLimitFromEnv(); rl != nil {
		r.Use(rl)
	}
	r.Use(tracingMiddleware())
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/auth/login", loginHandler())

	public := r.Group("/public/:tenant", middlewares.PublicTenant())
	public.GET("/logo", a.publicLogoHandler())
	public.GET("/statistics/years", publicYearsHandler())
	public.GET("/statistics/:year", publicStatisticsHandler())
	public.GET("/statistics/:year/report", a.publicReportHandler())

	api := r.Group("/api", middlewares.RequireAuth())
	api.GET("/villages", listVillagesHandler())
	api.POST("/villages", createVillageHandler())
	api.PUT("/villages/:id", updateVillageHandler())
	api.DELETE("/villages/:id", deleteVillageHandler())

	api.GET("/years", listYearsHandler())
	api.POST("/years", addYearHandler())
	api.GET("/years/latest", latestYearHandler())

	api.GET("/statistics/summary/:year", summaryHandler())
	api.GET("/statistics/:table/:year", getStatisticsHandler())
	api.PUT("/statistics/:table/:year", putStatisticsHandler())

	api.GET("/reports", listReportsHandler())
	api.GET("/reports/:year/preview", a.previewReportHandler())
	api.GET("/reports/:year/download", a.downloadReportHandler())
	api.POST("/reports/:year/archive", a.archiveReportHandler())
	api.DELETE("/reports/:id", a.deleteReportHandler())

	api.GET("/maintenance/orphans", listOrphansHandler())
	api.POST("/maintenance/orphans/purge", purgeOrphansHandler())

	api.POST("/tenant/logo", a.uploadLogoHandler())

	r.NoRoute(customNotFoundHandler)
	return r
}

// connectDocStoreWithRetry keeps trying until the store opens or ctx ends.
func connectDocStoreWithRetry(ctx context.Context, logger *logrus.Logger) error {
	for attempt := 1; ; attempt++ {
		err := config.ConnectDocStore()
		if err == nil {
			return nil
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "docstore",
			"attempt": attempt,
		}).Warn("failed to open document store; retrying in " + sleep.String() + ": " + err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	a := &app{}
	if blobs, err := utils.NewGCSBlobStoreFromEnv(); err == nil {
		a.blobs = blobs
	} else {
		logger.WithFields(logrus.Fields{"field": "storage"}).Warn("report archive and logos disabled: " + err.Error())
	}

	// Listen first; the readiness gate returns 503 until the store is up.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newRouter(a),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	if config.RedisConfigured() {
		go config.ConnectRedisWithRetry(sigCtx)
	}
	if err := connectDocStoreWithRetry(sigCtx, logger); err != nil {
		logger.WithFields(logrus.Fields{"field": "docstore"}).Error("document store never became ready: " + err.Error())
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info(fmt.Sprintf("listening on http://localhost:%s/", port))
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
	if err := workflow.WaitForEvents(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "events"}).Warn("pending statistics events dropped: " + err.Error())
	}

	config.CloseDocStore()
	config.ClosePubSub()
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			tenant, _ := utils.GetTenantIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path":           c.FullPath(),
				"status":         c.Writer.Status(),
				"correlation_id": cid,
				"tenant_id":      tenant,
			}).Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware counts requests per client IP in a fixed window.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		// redis trouble must not take the API down
		_ = c.Error(err)
		c.Next()
		return
	}
	if count == 1 {
		if err := rl.client.Expire(c.Request.Context(), key, rl.window).Err(); err != nil {
			_ = c.Error(err)
		}
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
