// Package ingest loads the intervention corpus: parse, validate, persist
// rows, then embed and upsert vectors with a bounded worker pool.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
	"github.com/RoadsageAI/roadsage-mvp/engine/semantic"
	"github.com/RoadsageAI/roadsage-mvp/pkg/fn"
)

// Embedder produces document embeddings in batches.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter stores embeddings.
type VectorWriter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// RecordStore persists corpus rows.
type RecordStore interface {
	InsertBatch(ctx context.Context, recs []domain.InterventionRecord) error
}

// Options configures the pipeline.
type Options struct {
	// Workers bounds concurrent embed+upsert batches.
	Workers int
	// EmbedBatchSize is the max records per embedding request.
	EmbedBatchSize int
	Retry          fn.RetryOpts
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return Options{
		Workers:        workers,
		EmbedBatchSize: 32,
		Retry:          fn.DefaultRetry,
	}
}

// Stats summarizes one ingestion run.
type Stats struct {
	Total    int
	Invalid  int
	Stored   int
	Embedded int
	Failed   int
}

// Pipeline is the corpus ingestion pipeline.
type Pipeline struct {
	store   RecordStore
	embed   Embedder
	vectors VectorWriter
	pool    *ants.Pool
	opts    Options
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline with a bounded worker pool.
func NewPipeline(store RecordStore, embed Embedder, vectors VectorWriter, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = DefaultOptions().Workers
	}
	if opts.EmbedBatchSize < 1 {
		opts.EmbedBatchSize = DefaultOptions().EmbedBatchSize
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("ingest: create pool: %w", err)
	}
	return &Pipeline{
		store:   store,
		embed:   embed,
		vectors: vectors,
		pool:    pool,
		opts:    opts,
		logger:  logger.With("component", "ingest"),
	}, nil
}

// Release frees the worker pool.
func (p *Pipeline) Release() {
	p.pool.Release()
}

// LoadFile parses a JSON array of intervention records from path.
func LoadFile(path string) ([]domain.InterventionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	var recs []domain.InterventionRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("ingest: parse %s: %w", path, err)
	}
	return recs, nil
}

// Run validates and persists recs, then embeds and upserts them in
// concurrent batches. Invalid records are skipped and counted, not fatal.
func (p *Pipeline) Run(ctx context.Context, recs []domain.InterventionRecord) (Stats, error) {
	stats := Stats{Total: len(recs)}

	valid := make([]domain.InterventionRecord, 0, len(recs))
	for _, rec := range recs {
		if err := domain.ValidateRecord(rec); err != nil {
			stats.Invalid++
			p.logger.Warn("skipping invalid record", "id", rec.ID, "err", err.Error())
			continue
		}
		valid = append(valid, rec)
	}
	if len(valid) == 0 {
		return stats, nil
	}

	if err := p.store.InsertBatch(ctx, valid); err != nil {
		return stats, fmt.Errorf("ingest: store records: %w", err)
	}
	stats.Stored = len(valid)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(valid); start += p.opts.EmbedBatchSize {
		end := start + p.opts.EmbedBatchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			n, err := p.embedBatch(ctx, batch)
			mu.Lock()
			defer mu.Unlock()
			stats.Embedded += n
			if err != nil {
				stats.Failed += len(batch) - n
				if firstErr == nil {
					firstErr = err
				}
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			stats.Failed += len(batch)
			if firstErr == nil {
				firstErr = fmt.Errorf("ingest: submit batch: %w", err)
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	p.logger.Info("ingestion run complete",
		"total", stats.Total, "invalid", stats.Invalid,
		"stored", stats.Stored, "embedded", stats.Embedded, "failed", stats.Failed)
	return stats, firstErr
}

// embedBatch embeds one batch and upserts its vectors, retrying transient
// failures. Returns how many records made it into the vector store.
func (p *Pipeline) embedBatch(ctx context.Context, batch []domain.InterventionRecord) (int, error) {
	texts := make([]string, len(batch))
	for i, rec := range batch {
		texts[i] = EmbedText(rec)
	}

	embedded := fn.Retry(ctx, p.opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
		return fn.FromPair(p.embed.EmbedDocuments(ctx, texts))
	})
	vecs, err := embedded.Unwrap()
	if err != nil {
		return 0, fmt.Errorf("ingest: embed batch of %d: %w", len(batch), err)
	}
	if len(vecs) != len(batch) {
		return 0, fmt.Errorf("ingest: embedder returned %d vectors for %d records", len(vecs), len(batch))
	}

	points := make([]semantic.VectorRecord, len(batch))
	for i, rec := range batch {
		points[i] = semantic.VectorRecord{
			RecordID:  rec.ID,
			Embedding: vecs[i],
			Category:  rec.Category,
			Title:     rec.Title,
		}
	}

	upserted := fn.Retry(ctx, p.opts.Retry, func(ctx context.Context) fn.Result[int] {
		if err := p.vectors.Upsert(ctx, points); err != nil {
			return fn.Err[int](err)
		}
		return fn.Ok(len(points))
	})
	n, err := upserted.Unwrap()
	if err != nil {
		return 0, fmt.Errorf("ingest: upsert batch of %d: %w", len(batch), err)
	}
	return n, nil
}

// EmbedText is the canonical embedding input for a record: title, defect
// and asset context, then the description.
func EmbedText(rec domain.InterventionRecord) string {
	return fmt.Sprintf("%s. %s %s. %s", rec.Title, rec.DefectType, rec.AssetType, rec.Description)
}
