package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/recipeclip/api/internal/auth"
	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/config"
	"github.com/recipeclip/api/internal/dedupe"
	"github.com/recipeclip/api/internal/extractor"
	"github.com/recipeclip/api/internal/handler"
	"github.com/recipeclip/api/internal/middleware"
	"github.com/recipeclip/api/internal/normalizer"
	"github.com/recipeclip/api/internal/progress"
	"github.com/recipeclip/api/internal/service"
	ws "github.com/recipeclip/api/internal/websocket"
	"github.com/recipeclip/api/internal/worker"
)

// @title          RecipeClip API
// @version        1.0
// @description    Extraction API for RecipeClip: turn videos, photos, voice memos, links and pasted text into structured recipes.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	openaiClient := client.NewOpenAIClient(&cfg.OpenAI)
	groqClient := client.NewGroqClient(&cfg.Groq)
	mediaClient := client.NewMediaClient(&cfg.Media)
	ocrClient := client.NewOCRClient(&cfg.OCR)
	pageClient := client.NewPageClient()
	coreClient := client.NewCoreClient(&cfg.Core)
	billingClient := client.NewBillingClient(&cfg.Billing)

	// Initialize R2 client
	r2Client, err := client.NewR2Client(&cfg.R2)
	if err != nil {
		log.Fatalf("Failed to initialize R2 client: %v", err)
	}

	// Initialize Zitadel JWKS verifier (optional - falls back to legacy JWT)
	var jwksVerifier *auth.JWKSVerifier
	if cfg.Zitadel.Issuer != "" {
		var err error
		jwksVerifier, err = auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Printf("Warning: JWKS verifier not initialized: %v", err)
		} else {
			defer jwksVerifier.Close()
		}
	}

	// Build extractors for every source type
	videoExtractor := extractor.NewVideoExtractor(mediaClient, groqClient, ocrClient, r2Client)
	registry, err := extractor.NewRegistry(
		videoExtractor,
		extractor.NewPhotoExtractor(ocrClient, r2Client, cfg.Extraction.PhotoOCRMinChars, cfg.Extraction.PhotoOCRMinLines),
		extractor.NewVoiceExtractor(mediaClient, groqClient, r2Client, cfg.Extraction.MaxAudioDurationSec),
		extractor.NewLinkExtractor(pageClient, videoExtractor),
		extractor.NewPasteExtractor(),
	)
	if err != nil {
		log.Fatalf("Failed to build extractor registry: %v", err)
	}

	// Initialize services
	checker := dedupe.NewChecker(redisClient)
	var biller client.Biller
	if billingClient.IsConfigured() {
		biller = billingClient
	} else {
		log.Println("Info: billing service not configured, extractions are free")
	}
	extractionService := service.NewExtractionService(redisClient, asynqClient, checker, biller, cfg.Extraction.HandoffTTLMinutes)
	uploadService := service.NewUploadService(r2Client)

	// Initialize handlers
	extractHandler := handler.NewExtractHandler(extractionService, validate)
	uploadHandler := handler.NewUploadHandler(uploadService, validate)

	// Initialize middleware (with fallback support)
	var authMiddleware *middleware.AuthMiddleware
	if jwksVerifier != nil && cfg.JWT.Secret != "" {
		authMiddleware = middleware.NewAuthMiddlewareWithFallback(jwksVerifier, cfg.JWT.Secret)
	} else if jwksVerifier != nil {
		authMiddleware = middleware.NewAuthMiddleware(jwksVerifier)
	} else {
		authMiddleware = middleware.NewLegacyAuthMiddleware(cfg.JWT.Secret)
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    100 * 1024 * 1024, // 100MB, client-downloaded videos come through here
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"openai":  openaiClient.IsConfigured(),
				"groq":    groqClient.IsConfigured(),
				"media":   mediaClient.IsConfigured(),
				"ocr":     ocrClient.IsConfigured(),
				"core":    coreClient.IsConfigured(),
				"billing": billingClient.IsConfigured(),
				"r2":      r2Client.IsConfigured(),
				"auth":    jwksVerifier != nil || cfg.JWT.Secret != "",
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Extract routes
	extract := api.Group("/extract")
	extract.Post("/submit", rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerHour), extractHandler.Submit)
	extract.Get("/status/:jobId", extractHandler.Status)
	extract.Get("/result/:jobId", extractHandler.Result)
	extract.Post("/cancel/:jobId", extractHandler.Cancel)
	extract.Post("/resume/:jobId", extractHandler.Resume)

	// Upload routes
	upload := api.Group("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour))
	upload.Post("/media", uploadHandler.Media)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	norm := normalizer.New(openaiClient, groqClient, cfg.Extraction.NormalizeMaxAttempts, cfg.Extraction.NormalizeTimeoutSec)
	extractWorker := worker.NewExtractWorker(
		extractionService,
		registry,
		videoExtractor,
		norm,
		openaiClient,
		coreClient,
		biller,
		r2Client,
		checker,
		progress.NewTracker(extractionService, hub),
		hub,
		cfg.Extraction.ImageTimeoutSec,
	)
	go startWorkerServer(cfg, extractWorker)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, extractWorker *worker.ExtractWorker) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				service.QueueExtract: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeExtract, extractWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeResume, extractWorker.ProcessResume)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
