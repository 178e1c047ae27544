package evalsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
)

func sampleReport() domain.EvaluationReport {
	return domain.EvaluationReport{
		CorrelationID:          "corr-1",
		Query:                  "faded stop sign",
		RelevanceScore:         0.82,
		RelevanceBand:          domain.BandHigh,
		ComprehensivenessScore: 0.55,
		ConfidenceScores:       []float64{0.9, 0.7},
		MatchedIDs:             []string{"int-001", "int-002"},
		ResultCount:            2,
		UniqueCategories:       1,
		IRCReferenceCount:      1,
		ResponseTimeMs:         120,
	}
}

func TestSlogSinkEmitsFlatFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	s := NewSlogSink(log)

	if err := s.Emit(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line not JSON: %v", err)
	}
	if rec["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %v", rec["correlation_id"])
	}
	if rec["relevance_band"] != "high" {
		t.Errorf("relevance_band = %v", rec["relevance_band"])
	}
	if rec["result_count"] != float64(2) {
		t.Errorf("result_count = %v", rec["result_count"])
	}
}

type mockPublisher struct {
	last *nats.Msg
	err  error
}

func (m *mockPublisher) PublishMsg(msg *nats.Msg) error {
	m.last = msg
	return m.err
}

func TestNATSSinkPublishesJSON(t *testing.T) {
	pub := &mockPublisher{}
	s := &NATSSink{nc: pub, subject: "roadsage.evaluation"}

	if err := s.Emit(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if pub.last.Subject != "roadsage.evaluation" {
		t.Errorf("subject = %s", pub.last.Subject)
	}
	var got domain.EvaluationReport
	if err := json.Unmarshal(pub.last.Data, &got); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if got.CorrelationID != "corr-1" || got.ResultCount != 2 {
		t.Errorf("report did not round trip: %+v", got)
	}
}

func TestMultiSinkDeliversToAll(t *testing.T) {
	pub1 := &mockPublisher{err: errors.New("broker down")}
	pub2 := &mockPublisher{}
	m := MultiSink{
		&NATSSink{nc: pub1, subject: "a"},
		&NATSSink{nc: pub2, subject: "b"},
	}

	err := m.Emit(context.Background(), sampleReport())
	if err == nil {
		t.Fatal("expected first sink error to surface")
	}
	if pub2.last == nil {
		t.Error("second sink was skipped after first error")
	}
}
