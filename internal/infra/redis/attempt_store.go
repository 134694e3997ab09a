package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"assessment-session/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptStore keeps scored attempts as a Redis list per learner and assessment:
// RPUSH attempts:{username}:{assessmentID} <json>
// The list expires ttl after the latest attempt; zero keeps it forever.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, attempt domain.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	key := s.key(attempt.Username, attempt.AssessmentID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, username string, assessmentID domain.ID) ([]domain.Attempt, error) {
	raw, err := s.client.LRange(ctx, s.key(username, assessmentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts := make([]domain.Attempt, 0, len(raw))
	for _, item := range raw {
		var a domain.Attempt
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (s *AttemptStore) key(username string, assessmentID domain.ID) string {
	return "attempts:" + username + ":" + string(assessmentID)
}
