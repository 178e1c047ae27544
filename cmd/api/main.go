// Package main implements the RoadSage API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/RoadsageAI/roadsage-mvp/engine/answer"
	"github.com/RoadsageAI/roadsage-mvp/engine/corpus"
	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
	"github.com/RoadsageAI/roadsage-mvp/engine/retrieve"
	"github.com/RoadsageAI/roadsage-mvp/engine/semantic"
	"github.com/RoadsageAI/roadsage-mvp/pkg/evalsink"
	"github.com/RoadsageAI/roadsage-mvp/pkg/llmx"
	"github.com/RoadsageAI/roadsage-mvp/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port           string
	CorpusPath     string
	QdrantURL      string
	Collection     string
	LLMBaseURL     string
	LLMToken       string
	LLMModel       string
	EmbeddingModel string
	LLMRatePerSec  float64
	NATSURL        string
	EvalSubject    string
	CORSOrigin     string
	SynthesisOn    bool
}

func loadConfig() Config {
	return Config{
		Port:           envOr("PORT", "8080"),
		CorpusPath:     envOr("CORPUS_DB", "roadsage.db"),
		QdrantURL:      envOr("QDRANT_URL", "localhost:6334"),
		Collection:     envOr("QDRANT_COLLECTION", "interventions"),
		LLMBaseURL:     envOr("LLM_BASE_URL", "http://localhost:11434/v1"),
		LLMToken:       envOr("LLM_TOKEN", "none"),
		LLMModel:       envOr("LLM_MODEL", "qwen2.5:3b"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", "nomic-embed-text"),
		LLMRatePerSec:  envFloat("LLM_RATE_PER_SEC", 5),
		NATSURL:        envOr("NATS_URL", ""),
		EvalSubject:    envOr("EVAL_SUBJECT", "roadsage.evaluation"),
		CORSOrigin:     envOr("CORS_ORIGIN", "*"),
		SynthesisOn:    envOr("LLM_SYNTHESIS", "on") == "on",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Corpus store (SQLite) ---
	store, err := corpus.Open(cfg.CorpusPath)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer store.Close()

	// --- Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- LLM provider ---
	llm, err := llmx.New(llmx.Config{
		BaseURL:        cfg.LLMBaseURL,
		Token:          cfg.LLMToken,
		Model:          cfg.LLMModel,
		EmbeddingModel: cfg.EmbeddingModel,
		RequestsPerSec: cfg.LLMRatePerSec,
	}, logger)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	// --- Evaluation sinks ---
	sink := evalsink.Sink(evalsink.NewSlogSink(logger))
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		sink = evalsink.MultiSink{sink, evalsink.NewNATSSink(nc, cfg.EvalSubject)}
	}

	// --- Query pipeline ---
	retriever := retrieve.New(llm, vectorStore, store, retrieve.DefaultOptions(), logger)

	var gen answer.Generator
	if cfg.SynthesisOn {
		gen = llm
	}
	svc := answer.New(retriever, gen, sink, answer.DefaultOptions(), logger)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", handleHealth(store))
	mux.HandleFunc("POST /api/v1/search", handleSearch(svc, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("roadsage-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(store *corpus.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := store.Count(r.Context())
		status := "ok"
		if err != nil {
			status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": status, "corpus_records": n})
	}
}

// SearchRequest is the JSON body for POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
}

// Recommendation is one ranked intervention in the response.
type Recommendation struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Category         string                `json:"category"`
	Confidence       float64               `json:"confidence"`
	Explanation      string                `json:"explanation"`
	Specifications   domain.Specifications `json:"specifications"`
	Citations        []domain.IRCReference `json:"citations"`
	CostEstimate     string                `json:"cost_estimate"`
	InstallationTime string                `json:"installation_time"`
}

// SearchResponse is the JSON response for POST /api/v1/search.
type SearchResponse struct {
	CorrelationID string           `json:"correlation_id"`
	Query         string           `json:"query"`
	Results       []Recommendation `json:"results"`
	Synthesis     string           `json:"synthesis"`
	Metrics       map[string]any   `json:"metrics"`
	Degraded      bool             `json:"degraded,omitempty"`
	FailureKind   string           `json:"failure_kind,omitempty"`
}

func handleSearch(svc *answer.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		resp, err := svc.Process(r.Context(), req.Query)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
				return
			}
			logger.Error("search failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		out := SearchResponse{
			CorrelationID: resp.CorrelationID,
			Query:         resp.Query,
			Results:       make([]Recommendation, len(resp.Candidates)),
			Synthesis:     resp.Synthesis,
			Metrics: map[string]any{
				"relevance":         resp.Metrics.Relevance,
				"relevance_band":    string(resp.Metrics.RelevanceBand),
				"comprehensiveness": resp.Metrics.Comprehensiveness,
			},
			Degraded:      resp.Degraded,
			FailureKind:   string(resp.FailureKind),
		}
		for i, c := range resp.Candidates {
			out.Results[i] = Recommendation{
				ID:               c.Record.ID,
				Title:            c.Record.Title,
				Category:         c.Record.Category,
				Confidence:       c.Confidence,
				Explanation:      c.Explanation,
				Specifications:   c.Record.Specs,
				Citations:        c.Record.IRCRefs,
				CostEstimate:     answer.CostEstimate(c.Record.Category, c.Record.DefectType),
				InstallationTime: answer.InstallationTime(c.Record.Category, c.Record.DefectType),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}
