package memory

import (
	"context"
	"sync"

	"assessment-session/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[attemptKey][]domain.Attempt
}

type attemptKey struct {
	username     string
	assessmentID domain.ID
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[attemptKey][]domain.Attempt),
	}
}

func (s *AttemptStore) SaveAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{username: attempt.Username, assessmentID: attempt.AssessmentID}
	s.attempts[key] = append(s.attempts[key], attempt)
	return nil
}

func (s *AttemptStore) ListAttempts(_ context.Context, username string, assessmentID domain.ID) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Attempt{}, s.attempts[attemptKey{username: username, assessmentID: assessmentID}]...), nil
}
