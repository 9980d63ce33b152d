package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"infobeamer-cms/internal/history"
	"infobeamer-cms/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	firstID, err := store.Record(ctx, history.Run{
		StartedAt:  base,
		FinishedAt: base.Add(2 * time.Second),
		LiveCount:  3,
		Writes:     1,
		Setups: []history.SetupOutcome{
			{SetupID: 20, Outcome: history.OutcomeUnchanged, ShownCount: 3},
			{SetupID: 10, Outcome: history.OutcomeUpdated, ShownCount: 2},
		},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if firstID == "" {
		t.Fatal("expected generated run id")
	}

	secondID, err := store.Record(ctx, history.Run{
		ID:         history.NewRunID(),
		StartedAt:  base.Add(5 * time.Minute),
		FinishedAt: base.Add(5*time.Minute + time.Second),
		Failures:   1,
		Error:      "setup 10: transient failure",
		Setups:     []history.SetupOutcome{{SetupID: 10, Outcome: history.OutcomeFailed, Error: "boom"}},
	})
	if err != nil {
		t.Fatalf("Record second: %v", err)
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != secondID || runs[1].ID != firstID {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	if runs[0].Succeeded() || !runs[1].Succeeded() {
		t.Fatal("unexpected success flags")
	}
	if runs[1].Duration() != 2*time.Second {
		t.Fatalf("unexpected duration %v", runs[1].Duration())
	}
	if len(runs[1].Setups) != 2 || runs[1].Setups[0].SetupID != 10 || runs[1].Setups[0].Outcome != history.OutcomeUpdated {
		t.Fatalf("unexpected setups %+v", runs[1].Setups)
	}
	if runs[0].Setups[0].Error != "boom" {
		t.Fatalf("expected setup error to round trip, got %+v", runs[0].Setups[0])
	}
}

func TestGetUnknownRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if _, err := store.Get(context.Background(), history.NewRunID()); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordRejectsInvalidID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if _, err := store.Record(context.Background(), history.Run{ID: "not-a-uuid"}); err == nil {
		t.Fatal("expected error for invalid id")
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var newest string
	for i := 0; i < 5; i++ {
		id, err := store.Record(ctx, history.Run{
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Setups:     []history.SetupOutcome{{SetupID: 1, Outcome: history.OutcomeUnchanged}},
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		newest = id
	}

	removed, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	runs, _ := store.Recent(ctx, 10)
	if len(runs) != 2 || runs[0].ID != newest {
		t.Fatalf("unexpected remaining runs %+v", runs)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := store.Record(context.Background(), history.Run{StartedAt: time.Now(), FinishedAt: time.Now()})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened := testsupport.MustOpenHistory(t, cfg)
	if _, err := reopened.Get(context.Background(), id); err != nil {
		t.Fatalf("expected run after reopen: %v", err)
	}
}
