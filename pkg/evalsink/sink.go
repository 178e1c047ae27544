// Package evalsink delivers evaluation reports to their destinations. The
// slog sink is always on; a NATS sink can be layered on for downstream
// consumers, with OpenTelemetry trace propagation in message headers.
package evalsink

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
)

// Sink receives exactly one report per evaluated query.
type Sink interface {
	Emit(ctx context.Context, report domain.EvaluationReport) error
}

// SlogSink writes reports as flat structured-log records.
type SlogSink struct {
	log *slog.Logger
}

// NewSlogSink builds a SlogSink on the given logger.
func NewSlogSink(log *slog.Logger) *SlogSink {
	if log == nil {
		log = slog.Default()
	}
	return &SlogSink{log: log.With("component", "evalsink")}
}

// Emit logs the report at info level with one attribute per field.
func (s *SlogSink) Emit(ctx context.Context, r domain.EvaluationReport) error {
	s.log.InfoContext(ctx, "evaluation report",
		"correlation_id", r.CorrelationID,
		"query", r.Query,
		"relevance_score", r.RelevanceScore,
		"relevance_band", string(r.RelevanceBand),
		"comprehensiveness_score", r.ComprehensivenessScore,
		"confidence_scores", r.ConfidenceScores,
		"matched_intervention_ids", r.MatchedIDs,
		"result_count", r.ResultCount,
		"unique_categories", r.UniqueCategories,
		"irc_references_count", r.IRCReferenceCount,
		"entity_extraction_quality", r.EntityExtractionQuality,
		"response_time_ms", r.ResponseTimeMs,
	)
	return nil
}

// publisher is the part of *nats.Conn the NATS sink uses.
type publisher interface {
	PublishMsg(*nats.Msg) error
}

// NATSSink publishes reports as JSON to a NATS subject.
type NATSSink struct {
	nc      publisher
	subject string
}

// NewNATSSink builds a NATSSink publishing to subject.
func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	return &NATSSink{nc: nc, subject: subject}
}

// Emit serializes the report and publishes it. Trace context from ctx is
// injected into the message headers.
func (s *NATSSink) Emit(ctx context.Context, r domain.EvaluationReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: s.subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return s.nc.PublishMsg(msg)
}

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// MultiSink fans a report out to several sinks, returning the first error
// after attempting all of them.
type MultiSink []Sink

// Emit delivers to every sink.
func (m MultiSink) Emit(ctx context.Context, r domain.EvaluationReport) error {
	var first error
	for _, s := range m {
		if err := s.Emit(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
