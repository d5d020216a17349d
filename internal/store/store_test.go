package store

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)

	run := Run{
		Mode:   "stream",
		Alpha:  10,
		Lambda: 1,
		Model:  "gaussian",
		Steps:  3,
		Types:  2,
	}
	steps := []Step{
		{Idx: 0, BestType: 0, BoundaryProb: 1, Surprise: 0, PredErr: 0},
		{Idx: 1, BestType: 0, BoundaryProb: 0.1, Surprise: -2.5, PredErr: 0.3},
		{Idx: 2, BestType: 1, BoundaryProb: 0.9, Surprise: -8.1, PredErr: 4.2},
	}

	id, err := s.SaveRun(run, steps)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated run ID")
	}

	got, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Mode != "stream" || got.Alpha != 10 || got.Lambda != 1 || got.Model != "gaussian" {
		t.Errorf("run fields lost: %+v", got)
	}
	if got.Steps != 3 || got.Types != 2 {
		t.Errorf("run counters lost: %+v", got)
	}
	if got.Created.IsZero() {
		t.Error("created timestamp should be assigned")
	}

	gotSteps, err := s.GetSteps(id)
	if err != nil {
		t.Fatalf("get steps: %v", err)
	}
	if len(gotSteps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(gotSteps))
	}
	for i, st := range gotSteps {
		if st.Idx != i {
			t.Errorf("step %d out of order: idx %d", i, st.Idx)
		}
		if st.RunID != id {
			t.Errorf("step %d carries wrong run ID %q", i, st.RunID)
		}
	}
	if gotSteps[2].BestType != 1 || gotSteps[2].BoundaryProb != 0.9 {
		t.Errorf("step values lost: %+v", gotSteps[2])
	}
}

func TestGetRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	old := Run{Created: time.Now().Add(-time.Hour), Mode: "stream", Model: "gaussian"}
	recent := Run{Created: time.Now(), Mode: "token", Model: "knn"}

	if _, err := s.SaveRun(old, nil); err != nil {
		t.Fatalf("save old: %v", err)
	}
	id, err := s.SaveRun(recent, nil)
	if err != nil {
		t.Fatalf("save recent: %v", err)
	}

	runs, err := s.GetRuns(10)
	if err != nil {
		t.Fatalf("get runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != id {
		t.Errorf("expected the recent run first, got %+v", runs[0])
	}

	limited, err := s.GetRuns(1)
	if err != nil {
		t.Fatalf("get runs limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d runs", len(limited))
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRun("nope"); err == nil {
		t.Error("expected error for unknown run ID")
	}
}
