package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/agent"
	"github.com/review-agent/backend/internal/analysis"
	"github.com/review-agent/backend/internal/api/handlers"
	"github.com/review-agent/backend/internal/cache/redis"
	"github.com/review-agent/backend/internal/ingestion"
	"github.com/review-agent/backend/internal/llm"
	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/internal/middleware/ratelimit"
	"github.com/review-agent/backend/internal/middleware/security"
	"github.com/review-agent/backend/internal/middleware/validation"
	"github.com/review-agent/backend/internal/retrieval"
	"github.com/review-agent/backend/internal/storage/sqlite"
	"github.com/review-agent/backend/internal/vector/milvus"
	"github.com/review-agent/backend/pkg/config"
	appLogger "github.com/review-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Review Agent API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	var embeddingCache retrieval.EmbeddingCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			embeddingCache = redisClient
		}
	}

	accountant := llm.NewAccountant(cfg.LLM.TokenBudget)
	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		accountant,
	)

	retriever := retrieval.NewRetriever(llmClient, milvusClient, embeddingCache, float64(cfg.Retrieval.MMRLambda))
	analyzer := analysis.NewAnalyzer(llmClient)
	toolbox := agent.NewToolbox(retriever, analyzer)
	checkpoints := agent.NewCheckpointStore(sqliteClient)
	controller := agent.NewController(llmClient, toolbox, checkpoints, accountant, cfg.Agent.MaxRounds)
	simpleRAG := agent.NewSimpleRAG(llmClient, retriever)
	processor := ingestion.NewProcessor(llmClient, milvusClient, sqliteClient, cfg.Ingest.BatchSize)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	chatHandler := handlers.NewChatHandler(controller, simpleRAG)
	wsHandler := handlers.NewWebSocketHandler(controller)
	statsHandler := handlers.NewStatsHandler(sqliteClient, accountant)
	ingestHandler := handlers.NewIngestHandler(processor, cfg.Ingest.ReviewsDir)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Delete("/chat/:thread_id", chatHandler.ClearThread)
	api.Post("/ingest", ingestHandler.TriggerIngest)
	api.Get("/stats", statsHandler.GetStats)
	api.Get("/usage", statsHandler.GetUsage)

	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))
	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
