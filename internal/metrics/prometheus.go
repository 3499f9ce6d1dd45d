package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_rag_chat_duration_seconds",
			Help:    "Chat request processing duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_rag_chat_total",
			Help: "Total number of chat requests processed",
		},
		[]string{"mode", "status"},
	)

	AgentRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "review_rag_agent_rounds",
			Help:    "Reasoning rounds per agent conversation turn",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_rag_tool_executions_total",
			Help: "Total tool executions by the agent",
		},
		[]string{"tool", "status"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "review_rag_retrieval_results",
			Help:    "Snippets returned per retrieval call after deduplication",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_rag_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_rag_embedding_cache_total",
			Help: "Embedding cache lookups",
		},
		[]string{"result"},
	)

	DocumentsIndexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_rag_documents_indexed_total",
			Help: "Documents upserted into the vector index",
		},
		[]string{"chunk_type"},
	)

	IngestFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_rag_ingest_failures_total",
			Help: "Review rows or documents dropped during ingestion",
		},
		[]string{"stage"},
	)
)

func Init() {
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(ChatTotal)
	prometheus.MustRegister(AgentRounds)
	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(EmbeddingCacheHits)
	prometheus.MustRegister(DocumentsIndexed)
	prometheus.MustRegister(IngestFailures)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
