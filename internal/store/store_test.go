package store

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddInteractionIdempotent(t *testing.T) {
	db := testDB(t)

	in := &Interaction{
		FromAccount: "alice",
		ToAccount:   "MaxAnvil",
		Kind:        "mention",
		Content:     "hey @MaxAnvil what do you think?",
		PostRef:     "post-1",
		ObservedAt:  1000,
	}

	inserted, err := db.AddInteraction(in)
	if err != nil {
		t.Fatalf("AddInteraction: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report inserted")
	}

	// Same dedup key delivered again
	dup := &Interaction{
		FromAccount: "alice",
		ToAccount:   "MaxAnvil",
		Kind:        "mention",
		Content:     "hey @MaxAnvil what do you think?",
		PostRef:     "post-1",
		ObservedAt:  1000,
	}
	inserted, err = db.AddInteraction(dup)
	if err != nil {
		t.Fatalf("AddInteraction duplicate: %v", err)
	}
	if inserted {
		t.Error("duplicate delivery should not insert")
	}

	count, err := db.CountInteractions("alice")
	if err != nil {
		t.Fatalf("CountInteractions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 interaction, got %d", count)
	}
}

func TestGetInteractionsOrdering(t *testing.T) {
	db := testDB(t)

	// Insert out of order; reads must come back by observed_at.
	times := []int64{3000, 1000, 2000}
	for i, ts := range times {
		_, err := db.AddInteraction(&Interaction{
			FromAccount: "bob",
			ToAccount:   "MaxAnvil",
			Kind:        "reply",
			Content:     "msg",
			PostRef:     string(rune('a' + i)),
			ObservedAt:  ts,
		})
		if err != nil {
			t.Fatalf("AddInteraction: %v", err)
		}
	}

	history, err := db.GetInteractions("bob")
	if err != nil {
		t.Fatalf("GetInteractions: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 interactions, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].ObservedAt < history[i-1].ObservedAt {
			t.Errorf("history not ordered by observed_at: %d before %d",
				history[i-1].ObservedAt, history[i].ObservedAt)
		}
	}

	recent, err := db.GetRecentInteractions("bob", 2)
	if err != nil {
		t.Fatalf("GetRecentInteractions: %v", err)
	}
	if len(recent) != 2 || recent[0].ObservedAt != 3000 {
		t.Errorf("expected newest first, got %+v", recent)
	}
}

func TestProfileRoundtrip(t *testing.T) {
	db := testDB(t)

	first := int64(1000)
	last := int64(5000)
	p := &Profile{
		AccountID:          "carol",
		Classification:     "quality",
		Tier:               2,
		FirstInteractionAt: &first,
		LastInteractionAt:  &last,
		TotalInteractions:  12,
		AvgDepthScore:      0.55,
		MutualRatio:        0.75,
		Topics:             []string{"ai", "philosophy"},
		Tone:               "curious",
		Backstory:          "Showed up asking sharp questions.",
		MemorableMoments: []Moment{
			{InteractionID: 7, Content: "what even is consciousness?", ObservedAt: 4000, Score: 2.1},
		},
		RelationshipArc: "Random mention turned regular.",
	}
	if err := db.UpsertProfile(p); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	got, err := db.GetProfile("carol")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got == nil {
		t.Fatal("profile not found")
	}
	if got.Tier != 2 || got.Classification != "quality" {
		t.Errorf("tier/classification mismatch: %+v", got)
	}
	if len(got.Topics) != 2 || got.Topics[0] != "ai" {
		t.Errorf("topics mismatch: %v", got.Topics)
	}
	if len(got.MemorableMoments) != 1 || got.MemorableMoments[0].InteractionID != 7 {
		t.Errorf("moments mismatch: %+v", got.MemorableMoments)
	}
	if got.FirstInteractionAt == nil || *got.FirstInteractionAt != first {
		t.Errorf("first interaction mismatch: %v", got.FirstInteractionAt)
	}
	if got.Backstory != p.Backstory {
		t.Errorf("backstory mismatch: %q", got.Backstory)
	}

	// Missing profile is nil, not an error
	missing, err := db.GetProfile("nobody")
	if err != nil {
		t.Fatalf("GetProfile missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing profile")
	}
}

func TestSnapshotReplace(t *testing.T) {
	db := testDB(t)

	tiers, err := db.SnapshotTiers()
	if err != nil {
		t.Fatalf("SnapshotTiers: %v", err)
	}
	if len(tiers) != 0 {
		t.Errorf("expected empty snapshot, got %v", tiers)
	}

	if err := db.ReplaceSnapshot(map[string]int{"alice": 1, "bob": 3}); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}
	if err := db.ReplaceSnapshot(map[string]int{"alice": 2}); err != nil {
		t.Fatalf("ReplaceSnapshot again: %v", err)
	}

	tiers, err = db.SnapshotTiers()
	if err != nil {
		t.Fatalf("SnapshotTiers: %v", err)
	}
	if len(tiers) != 1 || tiers["alice"] != 2 {
		t.Errorf("expected replaced snapshot {alice:2}, got %v", tiers)
	}
}

func TestEvents(t *testing.T) {
	db := testDB(t)

	id, err := db.AddEvent("dave", "reconnection", "back after 20 days at tier 2")
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated event id")
	}

	events, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 1 || events[0].Kind != "reconnection" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestDistinctAccountsSince(t *testing.T) {
	db := testDB(t)

	now := time.Now().UnixMilli()
	for i, from := range []string{"alice", "bob", "MaxAnvil"} {
		to := "MaxAnvil"
		if from == "MaxAnvil" {
			to = "alice"
		}
		_, err := db.AddInteraction(&Interaction{
			FromAccount: from,
			ToAccount:   to,
			Kind:        "mention",
			PostRef:     string(rune('x' + i)),
			ObservedAt:  now,
		})
		if err != nil {
			t.Fatalf("AddInteraction: %v", err)
		}
	}

	accounts, err := db.DistinctAccountsSince("MaxAnvil", 0)
	if err != nil {
		t.Fatalf("DistinctAccountsSince: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("expected alice and bob, got %v", accounts)
	}
	for _, a := range accounts {
		if a == "MaxAnvil" {
			t.Error("self account must be excluded")
		}
	}
}
