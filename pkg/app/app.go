// Package app assembles the Ghost Choice server: configuration, Redis,
// caches, the service graph, middleware, and routes, with graceful
// shutdown on interrupt.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/api"
	"github.com/Spower4/ghost-choice-backend/internal/config"
	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/build"
	"github.com/Spower4/ghost-choice-backend/internal/services/cache"
	"github.com/Spower4/ghost-choice-backend/internal/services/circuitbreaker"
	"github.com/Spower4/ghost-choice-backend/internal/services/notify"
	"github.com/Spower4/ghost-choice-backend/internal/services/plan"
	"github.com/Spower4/ghost-choice-backend/internal/services/rank"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"
	"github.com/Spower4/ghost-choice-backend/internal/services/retry"
	"github.com/Spower4/ghost-choice-backend/internal/services/scene"
	"github.com/Spower4/ghost-choice-backend/internal/services/search"
	"github.com/Spower4/ghost-choice-backend/internal/services/setups"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Server represents a Ghost Choice server instance
type Server struct {
	config   *config.Config
	app      *fiber.App
	redis    *redis.Client
	cache    *cache.Cache
	semantic *cache.SemanticCache
	notifier *notify.Notifier
}

// New creates a new Server instance with the given configuration.
// The cfg parameter is required and must not be nil.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create config")
	}
	return &Server{config: cfg}
}

// Run starts the server and blocks until shutdown
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(s.config)

	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	s.app = createFiberApp(s.config)

	redisClient, err := createRedisClient(s.config)
	if err != nil {
		return fmt.Errorf("failed to create Redis client: %w", err)
	}
	s.redis = redisClient
	if s.redis != nil {
		defer func() {
			if err := s.redis.Close(); err != nil {
				fiberlog.Errorf("Failed to close Redis client: %v", err)
			}
		}()
	}

	s.cache = cache.New(s.config.Cache, s.redis)
	defer func() {
		if err := s.cache.Close(); err != nil {
			fiberlog.Errorf("Failed to close cache: %v", err)
		}
	}()

	s.semantic, err = cache.NewSemanticCache(s.config.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize semantic cache: %w", err)
	}
	if s.semantic != nil {
		defer func() {
			if err := s.semantic.Close(); err != nil {
				fiberlog.Errorf("Failed to close semantic cache: %v", err)
			}
		}()
	}

	s.notifier = notify.NewTelegram(s.config.Notifications.Telegram)

	setupMiddleware(s.app, s.config)
	s.setupRoutes()
	s.app.Get("/", welcomeHandler())

	fmt.Printf("Ghost Choice backend starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", s.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	s.notifier.Sendf("Ghost Choice backend started (env: %s)", s.config.Server.Environment)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	fiberlog.Info("Server shutting down gracefully...")
	if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	fiberlog.Info("Server shutdown completed successfully")
	return nil
}

// setupRoutes builds the service graph and registers every endpoint
func (s *Server) setupRoutes() {
	exec := retry.New(s.config.RetryConfig())

	searchSvc := search.NewService(s.config.Providers.SerpAPI, exec,
		circuitbreaker.NewForProvider(s.redis, "serpapi"))
	rankSvc := rank.NewService()

	var planProvider plan.Provider
	switch s.config.PlannerProvider() {
	case config.PlannerGemini:
		planProvider = plan.NewGeminiProvider(s.config.Providers.Gemini)
	case config.PlannerOpenAI:
		planProvider = plan.NewOpenAIProvider(s.config.Providers.OpenAI)
	}
	var planBreakerName string
	if planProvider != nil {
		planBreakerName = planProvider.Name()
	}
	planSvc := plan.NewService(planProvider, exec,
		circuitbreaker.NewForProvider(s.redis, planBreakerName))

	buildSvc := build.NewService(planSvc, searchSvc, rankSvc, s.cache, s.semantic)
	sceneSvc := scene.NewService(s.config.Providers.Gemini, exec,
		circuitbreaker.NewForProvider(s.redis, "gemini-scene"))
	setupsSvc := setups.NewService(s.cache, 0)

	reqSvc := request.NewService()
	respSvc := response.NewService()

	buildHandler := api.NewBuildHandler(buildSvc, reqSvc, respSvc)
	searchHandler := api.NewSearchHandler(searchSvc, rankSvc, s.cache, reqSvc, respSvc)
	rankHandler := api.NewRankHandler(rankSvc, reqSvc, respSvc)
	planHandler := api.NewPlanHandler(planSvc, reqSvc, respSvc)
	sceneHandler := api.NewSceneHandler(sceneSvc, reqSvc, respSvc)
	setupsHandler := api.NewSetupsHandler(setupsSvc, reqSvc, respSvc)
	healthHandler := api.NewHealthHandler(s.config, s.cache)
	adminHandler := api.NewAdminHandler(s.cache, s.notifier, reqSvc, respSvc)

	s.app.Get("/health", healthHandler.HealthCheck)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")
	v1.Post("/build", buildHandler.Build)
	v1.Post("/reroll", buildHandler.Reroll)
	v1.Post("/swap", buildHandler.Swap)
	v1.Post("/search", searchHandler.Search)
	v1.Post("/rank", rankHandler.Rank)
	v1.Post("/plan", planHandler.Plan)
	v1.Post("/ai-scene", sceneHandler.Generate)
	v1.Post("/setups", setupsHandler.Share)
	v1.Get("/setups/:id", setupsHandler.Get)

	s.app.Post("/admin/cache/clear", adminHandler.ClearCache)
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:              "Ghost Choice v1.0",
		EnablePrintRoutes:    !isProd,
		ReadTimeout:          2 * time.Minute,
		WriteTimeout:         2 * time.Minute,
		IdleTimeout:          5 * time.Minute,
		ReadBufferSize:       8192,
		WriteBufferSize:      8192,
		CompressedFileSuffix: ".gz",
		Prefork:              false,
		CaseSensitive:        true,
		StrictRouting:        false,
		Network:              "tcp",
		ServerHeader:         "GhostChoice",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	isProd := cfg.IsProduction()

	// Recover middleware (must be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:               300,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: limitReachedHandler(request.NewService(), response.NewService()),
	}))

	app.Use(requestTimeout())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, User-Agent, X-Request-ID, X-Request-Timeout",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
	}))

	// Profiler (dev only)
	if !isProd {
		app.Use(pprof.New())
	}
}

// limitReachedHandler sends the standard rate-limit envelope when the
// per-IP limiter trips.
func limitReachedHandler(requests *request.Service, resp *response.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return resp.Error(c, requests.GetRequestID(c), models.NewRateLimitError("ghost-choice"))
	}
}

// requestTimeout puts a deadline on the user context. Handlers pass
// c.UserContext() down the service graph, so the build fan-out and every
// provider call observe it.
func requestTimeout() fiber.Handler {
	const (
		defaultTimeout = 60 * time.Second
		maxTimeout     = 2 * time.Minute
	)

	return func(c *fiber.Ctx) error {
		timeout := defaultTimeout
		if customTimeout := c.Get("X-Request-Timeout"); customTimeout != "" {
			if d, err := time.ParseDuration(customTimeout); err == nil && d > 0 {
				timeout = min(d, maxTimeout)
			}
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	}
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info", "":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}
}

func createRedisClient(cfg *config.Config) (*redis.Client, error) {
	redisURL := cfg.Cache.RedisURL
	if redisURL == "" {
		fiberlog.Info("Redis not configured - circuit breakers and redis caching disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.ConnMaxLifetime = 30 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond

	client := redis.NewClient(opt)
	return testRedisConnectionWithRetry(client)
}

func testRedisConnectionWithRetry(client *redis.Client) (*redis.Client, error) {
	const maxAttempts = 3
	const baseDelay = 1 * time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()

		if err == nil {
			fiberlog.Infof("Redis connection established successfully (attempt %d/%d)", attempt, maxAttempts)
			return client, nil
		}

		fiberlog.Warnf("Redis connection failed (attempt %d/%d): %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			delay := time.Duration(attempt) * baseDelay
			fiberlog.Infof("Retrying Redis connection in %v...", delay)
			time.Sleep(delay)
		}
	}

	if err := client.Close(); err != nil {
		fiberlog.Errorf("Failed to close Redis client after connection failures: %v", err)
	}
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts", maxAttempts)
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "Welcome to Ghost Choice!",
			"version":    "1.0.0",
			"go_version": runtime.Version(),
			"status":     "running",
			"endpoints": fiber.Map{
				"build":  "/v1/build",
				"search": "/v1/search",
				"plan":   "/v1/plan",
				"rank":   "/v1/rank",
				"setups": "/v1/setups",
				"health": "/health",
			},
		})
	}
}
