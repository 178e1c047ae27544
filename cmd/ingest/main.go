// Package main loads an intervention corpus file into SQLite and Qdrant.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/RoadsageAI/roadsage-mvp/engine/corpus"
	"github.com/RoadsageAI/roadsage-mvp/engine/ingest"
	"github.com/RoadsageAI/roadsage-mvp/engine/semantic"
	"github.com/RoadsageAI/roadsage-mvp/pkg/llmx"
)

func main() {
	var (
		file       = flag.String("file", "corpus.json", "path to the intervention corpus JSON file")
		dbPath     = flag.String("db", "roadsage.db", "path to the SQLite corpus database")
		qdrantURL  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection = flag.String("collection", "interventions", "Qdrant collection name")
		llmURL     = flag.String("llm", "http://localhost:11434/v1", "OpenAI-compatible embedding endpoint")
		embedModel = flag.String("embedding-model", "nomic-embed-text", "embedding model name")
		dims       = flag.Int("dims", 768, "embedding dimensions for collection creation")
		workers    = flag.Int("workers", 0, "embedding workers (0 = auto)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*file, *dbPath, *qdrantURL, *collection, *llmURL, *embedModel, *dims, *workers, logger); err != nil {
		logger.Error("ingest failed", "err", err)
		os.Exit(1)
	}
}

func run(file, dbPath, qdrantURL, collection, llmURL, embedModel string, dims, workers int, logger *slog.Logger) error {
	ctx := context.Background()

	recs, err := ingest.LoadFile(file)
	if err != nil {
		return err
	}
	logger.Info("corpus file loaded", "file", file, "records", len(recs))

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

	if err := vectorStore.EnsureCollection(ctx, dims); err != nil {
		return err
	}

	llm, err := llmx.New(llmx.Config{
		BaseURL:        llmURL,
		Model:          embedModel,
		EmbeddingModel: embedModel,
	}, logger)
	if err != nil {
		return err
	}

	opts := ingest.DefaultOptions()
	if workers > 0 {
		opts.Workers = workers
	}
	pipeline, err := ingest.NewPipeline(store, llm, vectorStore, opts, logger)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	stats, err := pipeline.Run(ctx, recs)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	logger.Info("ingest complete",
		"total", stats.Total, "stored", stats.Stored,
		"embedded", stats.Embedded, "invalid", stats.Invalid, "failed", stats.Failed)
	return nil
}
