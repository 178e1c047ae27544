package corpus

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecords() []domain.InterventionRecord {
	return []domain.InterventionRecord{
		{
			ID:          "int-001",
			Category:    "Road Sign",
			Title:       "Replace faded STOP sign",
			AssetType:   "STOP Sign",
			DefectType:  "Faded",
			RoadType:    "Highway",
			SpeedMin:    50,
			SpeedMax:    80,
			Description: "Retroreflective sheeting replacement on high speed corridors.",
			Specs:       domain.Specifications{Dimensions: "900mm octagon", Colors: "red/white"},
			IRCRefs:     []domain.IRCReference{{Code: "IRC:67", Clause: "14.3"}},
		},
		{
			ID:          "int-002",
			Category:    "Road Marking",
			Title:       "Repaint zebra crossing",
			AssetType:   "Zebra Crossing",
			DefectType:  "Faded",
			Description: "Thermoplastic repaint at pedestrian crossing approaches.",
			IRCRefs:     []domain.IRCReference{{Code: "IRC:35", Clause: "6.1"}},
		},
		{
			ID:          "int-003",
			Category:    "Traffic Calming Measures",
			Title:       "Install speed hump",
			AssetType:   "Speed Hump",
			DefectType:  "Missing",
			Description: "Rounded hump for urban residential streets.",
		},
	}
}

func TestInsertAndByIDsPreservesOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.InsertBatch(ctx, sampleRecords()); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := s.ByIDs(ctx, []string{"int-003", "int-001", "missing", "int-002"})
	if err != nil {
		t.Fatalf("ByIDs: %v", err)
	}
	wantOrder := []string{"int-003", "int-001", "int-002"}
	if len(got) != len(wantOrder) {
		t.Fatalf("ByIDs returned %d records, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("ByIDs[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestStructuredFieldsRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.InsertBatch(ctx, sampleRecords()); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	got, err := s.ByIDs(ctx, []string{"int-001"})
	if err != nil {
		t.Fatalf("ByIDs: %v", err)
	}
	rec := got[0]
	if rec.Specs.Dimensions != "900mm octagon" || rec.Specs.Colors != "red/white" {
		t.Errorf("specs did not round trip: %+v", rec.Specs)
	}
	if len(rec.IRCRefs) != 1 || rec.IRCRefs[0].Code != "IRC:67" {
		t.Errorf("irc refs did not round trip: %+v", rec.IRCRefs)
	}
	if rec.SpeedMin != 50 || rec.SpeedMax != 80 {
		t.Errorf("speed band did not round trip: %d-%d", rec.SpeedMin, rec.SpeedMax)
	}
}

func TestInsertBatchAssignsSequence(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.InsertBatch(ctx, sampleRecords()); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	got, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	for i, rec := range got {
		if rec.InsertionSeq != i+1 {
			t.Errorf("record %s seq = %d, want %d", rec.ID, rec.InsertionSeq, i+1)
		}
	}
}

func TestReinsertKeepsSequence(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	recs := sampleRecords()
	if err := s.InsertBatch(ctx, recs); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	updated := recs[0]
	updated.Title = "Replace faded STOP sign (revised)"
	updated.InsertionSeq = 0
	if err := s.InsertBatch(ctx, []domain.InterventionRecord{updated}); err != nil {
		t.Fatalf("InsertBatch update: %v", err)
	}

	got, err := s.ByIDs(ctx, []string{"int-001"})
	if err != nil {
		t.Fatalf("ByIDs: %v", err)
	}
	if got[0].Title != "Replace faded STOP sign (revised)" {
		t.Errorf("update did not apply: %s", got[0].Title)
	}
	if got[0].InsertionSeq != 1 {
		t.Errorf("update changed insertion seq to %d", got[0].InsertionSeq)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestTextSearchRanksByTermHits(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.InsertBatch(ctx, sampleRecords()); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := s.TextSearch(ctx, []string{"faded", "stop"}, 5)
	if err != nil {
		t.Fatalf("TextSearch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("TextSearch returned %d records, want 2", len(got))
	}
	// int-001 matches both terms, int-002 only "faded".
	if got[0].ID != "int-001" || got[1].ID != "int-002" {
		t.Errorf("TextSearch order = [%s %s], want [int-001 int-002]", got[0].ID, got[1].ID)
	}

	none, err := s.TextSearch(ctx, nil, 5)
	if err != nil {
		t.Fatalf("TextSearch(nil): %v", err)
	}
	if none != nil {
		t.Errorf("TextSearch(nil) = %v, want nil", none)
	}
}
