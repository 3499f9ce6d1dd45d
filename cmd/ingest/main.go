package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/ingestion"
	"github.com/review-agent/backend/internal/llm"
	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/internal/storage/sqlite"
	"github.com/review-agent/backend/internal/vector/milvus"
	"github.com/review-agent/backend/pkg/config"
	appLogger "github.com/review-agent/backend/pkg/logger"
)

func main() {
	reviewsDir := flag.String("reviews", "", "directory of vendor CSV files (overrides config)")
	drop := flag.Bool("drop", false, "drop the existing collection before ingesting")
	flag.Parse()

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

	metrics.Init()

	dir := cfg.Ingest.ReviewsDir
	if *reviewsDir != "" {
		dir = *reviewsDir
	}

	appLogger.Info("Starting review ingestion", zap.String("dir", dir))

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
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

	ctx := context.Background()

	if *drop {
		if err := milvusClient.DropCollection(ctx); err != nil {
			appLogger.Fatal("Failed to drop collection", zap.Error(err))
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		llm.NewAccountant(0),
	)

	records, err := ingestion.LoadReviews(dir)
	if err != nil {
		appLogger.Fatal("Failed to load reviews", zap.Error(err))
	}

	processor := ingestion.NewProcessor(llmClient, milvusClient, sqliteClient, cfg.Ingest.BatchSize)
	if err := processor.IngestAll(ctx, records); err != nil {
		appLogger.Fatal("Failed to ingest reviews", zap.Error(err))
	}

	appLogger.Info("Ingestion complete", zap.Int("reviews", len(records)))
}
