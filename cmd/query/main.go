// Package main runs one query through the full pipeline from the command
// line, printing the ranked response as JSON. Useful for smoke tests.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/RoadsageAI/roadsage-mvp/engine/answer"
	"github.com/RoadsageAI/roadsage-mvp/engine/corpus"
	"github.com/RoadsageAI/roadsage-mvp/engine/retrieve"
	"github.com/RoadsageAI/roadsage-mvp/engine/semantic"
	"github.com/RoadsageAI/roadsage-mvp/pkg/evalsink"
	"github.com/RoadsageAI/roadsage-mvp/pkg/llmx"
)

func main() {
	var (
		dbPath     = flag.String("db", "roadsage.db", "path to the SQLite corpus database")
		qdrantURL  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection = flag.String("collection", "interventions", "Qdrant collection name")
		llmURL     = flag.String("llm", "http://localhost:11434/v1", "OpenAI-compatible endpoint")
		model      = flag.String("model", "qwen2.5:3b", "generation model name")
		embedModel = flag.String("embedding-model", "nomic-embed-text", "embedding model name")
		synthesis  = flag.Bool("synthesis", false, "enable LLM synthesis")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	query := flag.Arg(0)
	if query == "" {
		logger.Error("usage: query [flags] \"<query text>\"")
		os.Exit(2)
	}

	if err := run(query, *dbPath, *qdrantURL, *collection, *llmURL, *model, *embedModel, *synthesis, logger); err != nil {
		logger.Error("query failed", "err", err)
		os.Exit(1)
	}
}

func run(query, dbPath, qdrantURL, collection, llmURL, model, embedModel string, synthesis bool, logger *slog.Logger) error {
	store, err := corpus.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	vectorStore, err := semantic.New(qdrantURL, collection)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	llm, err := llmx.New(llmx.Config{
		BaseURL:        llmURL,
		Model:          model,
		EmbeddingModel: embedModel,
	}, logger)
	if err != nil {
		return err
	}

	retriever := retrieve.New(llm, vectorStore, store, retrieve.DefaultOptions(), logger)

	var gen answer.Generator
	if synthesis {
		gen = llm
	}
	svc := answer.New(retriever, gen, evalsink.NewSlogSink(logger), answer.DefaultOptions(), logger)

	resp, err := svc.Process(context.Background(), query)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
