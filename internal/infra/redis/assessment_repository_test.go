package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"assessment-session/internal/domain"
	"assessment-session/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAssessmentRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		AssessmentLoader: memory.NewStaticAssessmentLoader(map[domain.ID]domain.Assessment{
			"1": sampleAssessment(),
		}),
	}
	repo := NewAssessmentRepository(client, loader, time.Minute)

	first, err := repo.GetAssessment(context.Background(), "1")
	if err != nil {
		t.Fatalf("get assessment: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("assessment:1:definition") {
		t.Fatalf("expected definition cached in redis")
	}
	if ttl := mr.TTL("assessment:1:definition"); ttl < time.Minute || ttl > 66*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	second, err := repo.GetAssessment(context.Background(), "1")
	if err != nil {
		t.Fatalf("get cached assessment: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if second.Title != first.Title || !second.Questions[0].Options[1].Correct {
		t.Fatalf("cached definition must round-trip correctness, got %+v", second)
	}

	if err := repo.Invalidate(context.Background(), "1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetAssessment(context.Background(), "1")
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.count())
	}
}

func TestAssessmentRepositoryFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	loader := &countingLoader{
		AssessmentLoader: memory.NewStaticAssessmentLoader(map[domain.ID]domain.Assessment{"1": sampleAssessment()}),
	}
	repo := NewAssessmentRepository(client, loader, time.Minute)
	if _, err := repo.GetAssessment(context.Background(), "1"); err != nil {
		t.Fatalf("expected loader fallback, got %v", err)
	}
}

type countingLoader struct {
	memory.AssessmentLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadAssessment(ctx context.Context, id domain.ID) (domain.Assessment, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.AssessmentLoader.LoadAssessment(ctx, id)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleAssessment() domain.Assessment {
	return domain.Assessment{
		ID:    "1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "What is 2 + 2?",
				Type: domain.SingleSelect,
				Options: []domain.Option{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
