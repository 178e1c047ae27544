// Package answer orchestrates one query end to end: validate, extract
// entities, retrieve candidates, score, evaluate, synthesize, respond. Each
// query moves through a logged state machine under a UUID correlation id,
// degrading rather than failing wherever a partial answer is still useful.
package answer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
	"github.com/RoadsageAI/roadsage-mvp/engine/entity"
	"github.com/RoadsageAI/roadsage-mvp/engine/eval"
	"github.com/RoadsageAI/roadsage-mvp/engine/score"
)

// queryState names one stage of the per-query lifecycle.
type queryState string

const (
	stateReceived  queryState = "received"
	stateEntities  queryState = "entities_extracted"
	stateRetrieved queryState = "candidates_retrieved"
	stateScored    queryState = "scored"
	stateEvaluated queryState = "evaluated"
	stateResponded queryState = "responded"
	stateFailed    queryState = "failed"
)

// CandidateRetriever is the retrieval stage contract.
type CandidateRetriever interface {
	Retrieve(ctx context.Context, query string, ents domain.QueryEntities) ([]domain.ScoredCandidate, error)
}

// Generator synthesizes a prose recommendation. Optional; the deterministic
// template is always available as fallback.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ReportSink receives exactly one evaluation report per processed query.
type ReportSink interface {
	Emit(ctx context.Context, report domain.EvaluationReport) error
}

// Service is the query orchestrator.
type Service struct {
	retriever CandidateRetriever
	gen       Generator // nil disables LLM synthesis
	sink      ReportSink
	opts      Options
	logger    *slog.Logger
}

// New creates a Service. gen may be nil; sink must not be.
func New(retriever CandidateRetriever, gen Generator, sink ReportSink, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultOptions().QueryTimeout
	}
	if opts.SynthesisCandidates <= 0 {
		opts.SynthesisCandidates = DefaultOptions().SynthesisCandidates
	}
	return &Service{
		retriever: retriever,
		gen:       gen,
		sink:      sink,
		opts:      opts,
		logger:    logger,
	}
}

// Process answers one query. Validation failures return an error; every
// other failure class degrades into a response that says what was lost.
// Exactly one evaluation report is emitted per call, including failures.
func (s *Service) Process(ctx context.Context, query string) (*domain.RankedResponse, error) {
	start := time.Now()
	corrID := uuid.NewString()
	log := s.logger.With("correlation_id", corrID)
	log.Info("query state", "state", stateReceived, "query_len", len(query))

	if err := domain.ValidateQuery(query); err != nil {
		log.Warn("query state", "state", stateFailed, "reason", err.Error())
		s.emit(ctx, domain.EvaluationReport{
			CorrelationID:  corrID,
			Query:          query,
			RelevanceBand:  domain.BandLow,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}, log)
		return nil, err
	}

	ents := entity.Extract(query)
	log.Info("query state", "state", stateEntities, "attributes", ents.Set())

	ioCtx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	cands, err := s.retriever.Retrieve(ioCtx, query, ents)
	if err != nil {
		kind := domain.Kind(err)
		log.Warn("query state", "state", stateFailed,
			"stage", stateRetrieved, "failure", string(kind), "err", err.Error())
		resp := s.degradedResponse(corrID, query, kind)
		s.emit(ctx, s.report(corrID, query, nil, ents, 0, domain.BandLow, 0, start), log)
		return resp, nil
	}
	log.Info("query state", "state", stateRetrieved, "candidates", len(cands))

	scored := score.Apply(cands, ents, s.opts.Weights)
	log.Info("query state", "state", stateScored)

	relevance, comprehensiveness, evalOK := s.evaluate(scored, ents, log)
	band := eval.Band(relevance, s.opts.Bands)
	log.Info("query state", "state", stateEvaluated,
		"relevance", relevance, "band", string(band),
		"comprehensiveness", comprehensiveness, "evaluated", evalOK)

	for i := range scored {
		scored[i].Explanation = explain(scored[i], ents)
	}

	resp := &domain.RankedResponse{
		CorrelationID: corrID,
		Query:         query,
		Candidates:    scored,
		Synthesis:     s.synthesize(ioCtx, query, scored, log),
		Metrics: domain.ResponseMetrics{
			Relevance:         relevance,
			RelevanceBand:     band,
			Comprehensiveness: comprehensiveness,
		},
	}
	if len(scored) > 0 {
		resp.TopMatch = &scored[0]
	}
	if !evalOK {
		resp.Degraded = true
		resp.FailureKind = domain.FailureEvaluation
	}

	s.emit(ctx, s.report(corrID, query, scored, ents, relevance, band, comprehensiveness, start), log)
	log.Info("query state", "state", stateResponded,
		"candidates", len(scored), "duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// degradedResponse is the shape served when retrieval is unavailable:
// empty candidates, zero scores, and the failure kind on record.
func (s *Service) degradedResponse(corrID, query string, kind domain.FailureKind) *domain.RankedResponse {
	return &domain.RankedResponse{
		CorrelationID: corrID,
		Query:         query,
		Candidates:    []domain.ScoredCandidate{},
		Synthesis:     noResultsSynthesis,
		Metrics:       domain.ResponseMetrics{RelevanceBand: domain.BandLow},
		Degraded:      true,
		FailureKind:   kind,
	}
}

// evaluate runs the pure evaluators, converting a panic into a degraded
// (zero-scored) evaluation so usable candidates still reach the caller.
func (s *Service) evaluate(cands []domain.ScoredCandidate, ents domain.QueryEntities, log *slog.Logger) (relevance, comprehensiveness float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("evaluation panicked", "panic", r)
			relevance, comprehensiveness, ok = 0, 0, false
		}
	}()
	return eval.Relevance(cands, ents), eval.Comprehensiveness(cands), true
}

// synthesize produces the prose overview. Provider failures are absorbed
// into the deterministic template.
func (s *Service) synthesize(ctx context.Context, query string, cands []domain.ScoredCandidate, log *slog.Logger) string {
	if s.gen == nil || len(cands) == 0 {
		return templateSynthesis(cands)
	}

	out, err := s.gen.Generate(ctx, synthesisPrompt(query, cands, s.opts.SynthesisCandidates))
	if err != nil {
		log.Warn("synthesis failed, using template",
			"failure", string(domain.FailureProvider), "err", err.Error())
		return templateSynthesis(cands)
	}
	return out
}

func (s *Service) report(corrID, query string, cands []domain.ScoredCandidate, ents domain.QueryEntities,
	relevance float64, band domain.RelevanceBand, comprehensiveness float64, start time.Time) domain.EvaluationReport {

	confidences := make([]float64, len(cands))
	ids := make([]string, len(cands))
	for i, c := range cands {
		confidences[i] = c.Confidence
		ids[i] = c.Record.ID
	}

	return domain.EvaluationReport{
		CorrelationID:           corrID,
		Query:                   query,
		RelevanceScore:          relevance,
		RelevanceBand:           band,
		ComprehensivenessScore:  comprehensiveness,
		ConfidenceScores:        confidences,
		MatchedIDs:              ids,
		ResultCount:             len(cands),
		UniqueCategories:        eval.UniqueCategories(cands),
		IRCReferenceCount:       eval.IRCReferenceCount(cands),
		EntityExtractionQuality: float64(ents.Set()) / domain.AttributeCount,
		ResponseTimeMs:          time.Since(start).Milliseconds(),
	}
}

// emit delivers the report; sink errors are logged, never propagated.
func (s *Service) emit(ctx context.Context, report domain.EvaluationReport, log *slog.Logger) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, report); err != nil {
		log.Error("evaluation report emit failed", "err", err.Error())
	}
}
