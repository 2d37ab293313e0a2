package events

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ctxlab/internal/types"
)

func TestLoadAllSortsAndSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"bbb", "aaa", "ccc"} {
		session := &types.QuerySession{
			QueryID:   id,
			Level:     1,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Save(session); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "session_bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	sessions, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("len=%d, want 3 (corrupt file skipped)", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].StartedAt.Before(sessions[i-1].StartedAt) {
			t.Fatalf("sessions not sorted by start time: %v", sessions)
		}
	}
}

func TestLoadConversationsGroupsLegacyRecords(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	save := func(queryID, convID string, seq int) {
		t.Helper()
		if err := store.Save(&types.QuerySession{
			QueryID:        queryID,
			ConversationID: convID,
			Sequence:       seq,
			StartedAt:      time.Now().UTC(),
		}); err != nil {
			t.Fatalf("Save %s: %v", queryID, err)
		}
	}
	save("q2", "conv-a", 2)
	save("q1", "conv-a", 1)
	save("old", "", 0) // pre-grouping record

	groups, err := store.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("len(groups)=%d, want 2", len(groups))
	}

	conv := groups["conv-a"]
	if len(conv) != 2 || conv[0].QueryID != "q1" || conv[1].QueryID != "q2" {
		t.Fatalf("conv-a order wrong: %+v", conv)
	}
	// A legacy record with no conversation_id groups under its query_id.
	if len(groups["old"]) != 1 {
		t.Fatalf("legacy record not grouped under its query id: %v", groups)
	}
}

func TestLoadMissingSession(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Load("nope"); err == nil {
		t.Fatal("Load of a missing session must error")
	}
}
