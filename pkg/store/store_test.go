package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func sampleRun(id string, age time.Duration) *RunRecord {
	return &RunRecord{
		ID:        id,
		Model:     "bin packing",
		ModelHash: "abc123",
		NConss:    10,
		NVars:     20,
		NDecomps:  3,
		Best:      BestDecomp{NBlocks: 4, Score: "classic", ScoreValue: 0.8},
		Detectors: []string{"settypes", "connected"},
		CreatedAt: time.Now().Add(-age),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close(ctx)

	rec := sampleRun("r1", 0)
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Model != rec.Model || got.Best.NBlocks != 4 {
		t.Errorf("got %+v, want %+v", got, rec)
	}

	// Returned records are copies.
	got.Model = "mutated"
	again, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Model != "bin packing" {
		t.Error("store must not expose internal records")
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetRun(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SaveRun(ctx, sampleRun("r1", 0)); err != nil {
		t.Fatal(err)
	}
	updated := sampleRun("r1", 0)
	updated.NDecomps = 7
	if err := s.SaveRun(ctx, updated); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.NDecomps != 7 {
		t.Errorf("NDecomps = %d, want 7", got.NDecomps)
	}
	recs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("len = %d, want 1 after upsert", len(recs))
	}
}

func TestMemoryStoreListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for id, age := range map[string]time.Duration{
		"old": 3 * time.Hour, "mid": 2 * time.Hour, "new": time.Hour,
	} {
		if err := s.SaveRun(ctx, sampleRun(id, age)); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].ID != "new" || recs[1].ID != "mid" {
		t.Errorf("order = %s, %s; want new, mid", recs[0].ID, recs[1].ID)
	}
}
