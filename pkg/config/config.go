package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Milvus    MilvusConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
	Agent     AgentConfig
	Ingest    IngestConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

type LLMConfig struct {
	Model          string
	APIKey         string
	Temperature    float32
	MaxTokens      int
	EmbeddingModel string
	EmbeddingDim   int
	TokenBudget    int64
}

type RetrievalConfig struct {
	TopK      int
	FetchK    int
	MMRLambda float32
}

type AgentConfig struct {
	MaxRounds int
}

type IngestConfig struct {
	ReviewsDir string
	BatchSize  int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/review-agent")

	viper.SetEnvPrefix("REVIEW_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 60)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "reviews")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("sqlite.path", "./data/reviews.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.enabled", true)

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.embeddingDim", 1536)
	viper.SetDefault("llm.tokenBudget", 100000)

	viper.SetDefault("retrieval.topK", 12)
	viper.SetDefault("retrieval.fetchK", 30)
	viper.SetDefault("retrieval.mmrLambda", 0.5)

	viper.SetDefault("agent.maxRounds", 8)

	viper.SetDefault("ingest.reviewsDir", "./data/reviews")
	viper.SetDefault("ingest.batchSize", 1000)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
