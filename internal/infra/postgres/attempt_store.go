package postgres

import (
	"context"
	"fmt"
	"time"

	"assessment-session/internal/domain"
	"github.com/uptrace/bun"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	ID             string    `bun:"id,pk"`
	Username       string    `bun:"username,notnull"`
	AssessmentID   string    `bun:"assessment_id,notnull"`
	Score          int       `bun:"score,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	Percentage     float64   `bun:"percentage,notnull"`
	Passed         bool      `bun:"passed,notnull"`
	SubmittedAt    time.Time `bun:"submitted_at,notnull"`
}

// AttemptStore persists scored attempts through bun.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, a domain.Attempt) error {
	row := attemptRow{
		ID:             a.ID,
		Username:       a.Username,
		AssessmentID:   string(a.AssessmentID),
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		Percentage:     a.Percentage,
		Passed:         a.Passed,
		SubmittedAt:    a.SubmittedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, username string, assessmentID domain.ID) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("username = ?", username).
		Where("assessment_id = ?", string(assessmentID)).
		Order("submitted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts := make([]domain.Attempt, 0, len(rows))
	for _, r := range rows {
		attempts = append(attempts, domain.Attempt{
			ID:             r.ID,
			Username:       r.Username,
			AssessmentID:   domain.ID(r.AssessmentID),
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			Percentage:     r.Percentage,
			Passed:         r.Passed,
			SubmittedAt:    r.SubmittedAt,
		})
	}
	return attempts, nil
}
