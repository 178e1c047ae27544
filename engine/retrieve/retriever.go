// Package retrieve finds candidate interventions for a query. It embeds the
// query text, runs nearest-neighbour search against the vector store,
// hydrates full records from the corpus, and nudges similarity upward for
// candidates matching extracted entities. Entities boost, never filter: a
// candidate is never excluded for missing an entity.
package retrieve

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
	"github.com/RoadsageAI/roadsage-mvp/engine/semantic"
	"github.com/RoadsageAI/roadsage-mvp/pkg/fn"
)

// Embedder turns the query text into a vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts vector k-NN search.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchHit, error)
}

// RecordSource hydrates corpus records and serves the lexical fallback.
type RecordSource interface {
	ByIDs(ctx context.Context, ids []string) ([]domain.InterventionRecord, error)
	TextSearch(ctx context.Context, terms []string, limit int) ([]domain.InterventionRecord, error)
}

// Options configures retrieval behaviour.
type Options struct {
	TopK          int
	BoostPerMatch float64
	SearchTimeout time.Duration
	Retry         fn.RetryOpts
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          5,
		BoostPerMatch: 0.05,
		SearchTimeout: 5 * time.Second,
		Retry:         fn.DefaultRetry,
	}
}

// Retriever is the candidate retrieval stage.
type Retriever struct {
	embed  Embedder
	search Searcher
	corpus RecordSource
	opts   Options
	logger *slog.Logger
}

// New creates a Retriever.
func New(embed Embedder, search Searcher, corpus RecordSource, opts Options, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK < 1 {
		opts.TopK = DefaultOptions().TopK
	}
	return &Retriever{
		embed:  embed,
		search: search,
		corpus: corpus,
		opts:   opts,
		logger: logger,
	}
}

// Retrieve returns up to TopK candidates with SimilarityScore set; later
// stages annotate overlap and confidence. An empty corpus yields an empty
// slice and nil error. Transient embed/search failures are retried within
// the configured budget and surface as RetrievalError once exhausted.
func (r *Retriever) Retrieve(ctx context.Context, query string, ents domain.QueryEntities) ([]domain.ScoredCandidate, error) {
	embedStage := fn.TracedStage("retrieve.embed_query", func(ctx context.Context, q string) fn.Result[[]float32] {
		return fn.Retry(ctx, r.opts.Retry, func(ctx context.Context) fn.Result[[]float32] {
			return fn.FromPair(r.embed.EmbedQuery(ctx, q))
		})
	})
	vec, err := embedStage(ctx, query).Unwrap()
	if err != nil {
		return nil, domain.NewRetrievalError("embed_query", true, err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.opts.SearchTimeout)
	defer cancel()

	searchStage := fn.TracedStage("retrieve.vector_search", func(ctx context.Context, v []float32) fn.Result[[]semantic.SearchHit] {
		return fn.Retry(ctx, r.opts.Retry, func(ctx context.Context) fn.Result[[]semantic.SearchHit] {
			return fn.FromPair(r.search.Search(ctx, v, r.opts.TopK))
		})
	})
	hits, err := searchStage(searchCtx, vec).Unwrap()
	if err != nil {
		return nil, domain.NewRetrievalError("vector_search", true, err)
	}

	if len(hits) == 0 {
		r.logger.Info("vector search empty, falling back to text search", "query_len", len(query))
		return r.lexicalFallback(ctx, query, ents)
	}

	ids := make([]string, len(hits))
	simByID := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.RecordID
		simByID[h.RecordID] = clamp01(float64(h.Score))
	}

	recs, err := r.corpus.ByIDs(ctx, ids)
	if err != nil {
		return nil, domain.NewRetrievalError("hydrate_records", true, err)
	}

	cands := make([]domain.ScoredCandidate, len(recs))
	for i, rec := range recs {
		cands[i] = domain.ScoredCandidate{
			Record:          rec,
			SimilarityScore: simByID[rec.ID],
		}
	}
	r.boost(cands, ents)

	r.logger.Info("retrieval done", "candidates", len(cands))
	return cands, nil
}

// lexicalFallback serves queries the vector index cannot answer, ranking
// corpus rows by term overlap. Fallback candidates carry no vector
// similarity; confidence comes from entity overlap alone.
func (r *Retriever) lexicalFallback(ctx context.Context, query string, ents domain.QueryEntities) ([]domain.ScoredCandidate, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []domain.ScoredCandidate{}, nil
	}

	recs, err := r.corpus.TextSearch(ctx, terms, r.opts.TopK)
	if err != nil {
		return nil, domain.NewRetrievalError("text_search", true, err)
	}

	cands := make([]domain.ScoredCandidate, len(recs))
	for i, rec := range recs {
		cands[i] = domain.ScoredCandidate{Record: rec}
	}
	r.boost(cands, ents)
	return cands, nil
}

// boost raises similarity additively per matched entity and re-sorts,
// preserving input order on ties.
func (r *Retriever) boost(cands []domain.ScoredCandidate, ents domain.QueryEntities) {
	if ents.Set() == 0 || r.opts.BoostPerMatch <= 0 {
		return
	}
	for i := range cands {
		matches := ents.Matches(cands[i].Record)
		if matches == 0 {
			continue
		}
		cands[i].SimilarityScore = clamp01(cands[i].SimilarityScore + float64(matches)*r.opts.BoostPerMatch)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].SimilarityScore > cands[j].SimilarityScore
	})
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "on": true, "at": true,
	"of": true, "in": true, "for": true, "with": true, "to": true,
	"and": true, "or": true, "not": true, "by": true, "from": true,
	"what": true, "where": true, "when": true, "how": true, "which": true,
	"there": true, "this": true, "that": true, "it": true, "its": true,
	"near": true, "my": true, "our": true,
}

// searchTerms extracts lexical search terms from the query text.
func searchTerms(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	var terms []string
	for _, w := range words {
		w = strings.Trim(w, "?.,!;:'\"()")
		if len(w) > 2 && !stopWords[w] {
			terms = append(terms, w)
		}
	}
	return terms
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
