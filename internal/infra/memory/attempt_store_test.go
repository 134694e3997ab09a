package memory

import (
	"context"
	"testing"

	"assessment-session/internal/domain"
)

func TestAttemptStoreKeepsOrderPerLearner(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	_ = store.SaveAttempt(ctx, domain.Attempt{ID: "a1", Username: "alice", AssessmentID: "1", Score: 0})
	_ = store.SaveAttempt(ctx, domain.Attempt{ID: "a2", Username: "alice", AssessmentID: "1", Score: 1})
	_ = store.SaveAttempt(ctx, domain.Attempt{ID: "b1", Username: "bob", AssessmentID: "1"})

	got, err := store.ListAttempts(ctx, "alice", "1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
		t.Fatalf("unexpected attempts %+v", got)
	}
	if none, _ := store.ListAttempts(ctx, "carol", "1"); none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", none)
	}
}
