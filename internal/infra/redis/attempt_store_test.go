package redis

import (
	"context"
	"testing"
	"time"

	"assessment-session/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAttemptStoreAppendsAndExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewAttemptStore(client, time.Hour)
	ctx := context.Background()

	submitted := time.Date(2024, 11, 22, 9, 30, 0, 0, time.UTC)
	for i, score := range []int{0, 1} {
		err := store.SaveAttempt(ctx, domain.Attempt{
			ID:             []string{"a1", "a2"}[i],
			Username:       "alice",
			AssessmentID:   "1",
			Score:          score,
			TotalQuestions: 1,
			SubmittedAt:    submitted,
		})
		if err != nil {
			t.Fatalf("save attempt: %v", err)
		}
	}

	if !mr.Exists("attempts:alice:1") {
		t.Fatalf("expected redis list to be set")
	}
	if ttl := mr.TTL("attempts:alice:1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	got, err := store.ListAttempts(ctx, "alice", "1")
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].Score != 1 || !got[1].SubmittedAt.Equal(submitted) {
		t.Fatalf("unexpected attempts %+v", got)
	}

	none, err := store.ListAttempts(ctx, "bob", "1")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no attempts for bob, got %v %v", none, err)
	}
}
