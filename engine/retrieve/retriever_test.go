package retrieve

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
	"github.com/RoadsageAI/roadsage-mvp/engine/semantic"
	"github.com/RoadsageAI/roadsage-mvp/pkg/fn"
)

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
	// failFirst makes the first n calls fail before succeeding.
	failFirst int
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.calls <= m.failFirst {
		return nil, errors.New("transient embed failure")
	}
	return m.vec, m.err
}

type mockSearcher struct {
	hits []semantic.SearchHit
	err  error
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, _ int) ([]semantic.SearchHit, error) {
	return m.hits, m.err
}

type mockCorpus struct {
	records    map[string]domain.InterventionRecord
	textHits   []domain.InterventionRecord
	byIDsErr   error
	textErr    error
	textCalled bool
}

func (m *mockCorpus) ByIDs(_ context.Context, ids []string) ([]domain.InterventionRecord, error) {
	if m.byIDsErr != nil {
		return nil, m.byIDsErr
	}
	out := make([]domain.InterventionRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockCorpus) TextSearch(_ context.Context, _ []string, _ int) ([]domain.InterventionRecord, error) {
	m.textCalled = true
	return m.textHits, m.textErr
}

func fastRetry() fn.RetryOpts {
	return fn.RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Retry = fastRetry()
	return opts
}

func signRecord(id string) domain.InterventionRecord {
	return domain.InterventionRecord{
		ID: id, Category: "Road Sign", Title: "Sign work " + id,
		AssetType: "STOP Sign", DefectType: "Faded", Description: "sign maintenance",
	}
}

// --- Tests ---

func TestRetrieveHappyPath(t *testing.T) {
	corpus := &mockCorpus{records: map[string]domain.InterventionRecord{
		"int-001": signRecord("int-001"),
		"int-002": signRecord("int-002"),
	}}
	search := &mockSearcher{hits: []semantic.SearchHit{
		{RecordID: "int-001", Score: 0.9},
		{RecordID: "int-002", Score: 0.7},
	}}
	r := New(&mockEmbedder{vec: []float32{0.1}}, search, corpus, testOptions(), slog.Default())

	cands, err := r.Retrieve(context.Background(), "faded stop sign", domain.QueryEntities{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[0].Record.ID != "int-001" || cands[0].SimilarityScore != 0.9 {
		t.Errorf("first candidate = %s/%v", cands[0].Record.ID, cands[0].SimilarityScore)
	}
	if cands[0].Confidence != 0 || cands[0].EntityOverlapScore != 0 {
		t.Error("retriever must not set confidence or overlap")
	}
}

func TestRetrieveEntityBoostReorders(t *testing.T) {
	matching := signRecord("int-002")
	other := domain.InterventionRecord{
		ID: "int-001", Category: "Road Marking", Title: "Repaint lane lines",
		AssetType: "Lane Marking", DefectType: "Faded", Description: "marking work",
	}
	corpus := &mockCorpus{records: map[string]domain.InterventionRecord{
		"int-001": other, "int-002": matching,
	}}
	search := &mockSearcher{hits: []semantic.SearchHit{
		{RecordID: "int-001", Score: 0.80},
		{RecordID: "int-002", Score: 0.78},
	}}
	opts := testOptions()
	opts.BoostPerMatch = 0.05
	r := New(&mockEmbedder{vec: []float32{0.1}}, search, corpus, opts, slog.Default())

	ents := domain.QueryEntities{AssetType: "STOP Sign", DefectType: "Faded"}
	cands, err := r.Retrieve(context.Background(), "faded stop sign", ents)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// int-002 matches two entities (+0.10) and overtakes int-001 (+0.05).
	if cands[0].Record.ID != "int-002" {
		t.Errorf("boost did not reorder: first = %s", cands[0].Record.ID)
	}
	if len(cands) != 2 {
		t.Errorf("boost must never exclude candidates: got %d", len(cands))
	}
}

func TestRetrieveRetriesTransientEmbedFailure(t *testing.T) {
	corpus := &mockCorpus{records: map[string]domain.InterventionRecord{"int-001": signRecord("int-001")}}
	search := &mockSearcher{hits: []semantic.SearchHit{{RecordID: "int-001", Score: 0.9}}}
	embed := &mockEmbedder{vec: []float32{0.1}, failFirst: 1}
	r := New(embed, search, corpus, testOptions(), slog.Default())

	if _, err := r.Retrieve(context.Background(), "stop sign", domain.QueryEntities{}); err != nil {
		t.Fatalf("Retrieve after retry: %v", err)
	}
	if embed.calls != 2 {
		t.Errorf("embed called %d times, want 2", embed.calls)
	}
}

func TestRetrieveEmbedBudgetExhausted(t *testing.T) {
	embed := &mockEmbedder{failFirst: 10}
	r := New(embed, &mockSearcher{}, &mockCorpus{}, testOptions(), slog.Default())

	_, err := r.Retrieve(context.Background(), "stop sign", domain.QueryEntities{})
	var rerr *domain.RetrievalError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if rerr.Op != "embed_query" || !rerr.Retryable {
		t.Errorf("unexpected error detail: %+v", rerr)
	}
	if embed.calls != 2 {
		t.Errorf("embed called %d times, want 2 (budget)", embed.calls)
	}
}

func TestRetrieveSearchError(t *testing.T) {
	r := New(&mockEmbedder{vec: []float32{0.1}},
		&mockSearcher{err: errors.New("qdrant down")},
		&mockCorpus{}, testOptions(), slog.Default())

	_, err := r.Retrieve(context.Background(), "stop sign", domain.QueryEntities{})
	var rerr *domain.RetrievalError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if rerr.Op != "vector_search" {
		t.Errorf("op = %s, want vector_search", rerr.Op)
	}
}

func TestRetrieveEmptyVectorFallsBackToText(t *testing.T) {
	corpus := &mockCorpus{textHits: []domain.InterventionRecord{signRecord("int-009")}}
	r := New(&mockEmbedder{vec: []float32{0.1}}, &mockSearcher{}, corpus, testOptions(), slog.Default())

	cands, err := r.Retrieve(context.Background(), "faded stop sign", domain.QueryEntities{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !corpus.textCalled {
		t.Fatal("expected text search fallback")
	}
	if len(cands) != 1 || cands[0].Record.ID != "int-009" {
		t.Fatalf("unexpected fallback candidates: %+v", cands)
	}
	if cands[0].SimilarityScore != 0 {
		t.Errorf("fallback similarity = %v, want 0", cands[0].SimilarityScore)
	}
}

func TestRetrieveEmptyCorpusYieldsEmptyNoError(t *testing.T) {
	r := New(&mockEmbedder{vec: []float32{0.1}}, &mockSearcher{}, &mockCorpus{}, testOptions(), slog.Default())

	cands, err := r.Retrieve(context.Background(), "faded stop sign", domain.QueryEntities{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("got %d candidates, want 0", len(cands))
	}
}

func TestSearchTerms(t *testing.T) {
	got := searchTerms("What is the spacing for speed humps near a school?")
	want := map[string]bool{"spacing": true, "speed": true, "humps": true, "school": true}
	if len(got) != len(want) {
		t.Fatalf("searchTerms = %v", got)
	}
	for _, term := range got {
		if !want[term] {
			t.Errorf("unexpected term %q", term)
		}
	}
}
