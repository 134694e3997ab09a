package app

import (
	"context"
	"log"
	"math"
	"time"

	"assessment-session/internal/domain"
	"github.com/google/uuid"
)

// AssessmentRepository loads assessment definitions (from cache/backing store).
type AssessmentRepository interface {
	GetAssessment(ctx context.Context, id domain.ID) (domain.Assessment, error)
}

// AttemptRepository abstracts how scored attempts are stored (in-memory, Redis, etc).
type AttemptRepository interface {
	SaveAttempt(ctx context.Context, attempt domain.Attempt) error
	ListAttempts(ctx context.Context, username string, assessmentID domain.ID) ([]domain.Attempt, error)
}

// AttemptPublisher announces scored attempts to other services.
type AttemptPublisher interface {
	PublishAttempt(ctx context.Context, attempt domain.Attempt) error
}

// AssessmentService serves learner-facing definitions and scores submissions.
type AssessmentService struct {
	assessments AssessmentRepository
	attempts    AttemptRepository
	publisher   AttemptPublisher
	now         func() time.Time
}

func NewAssessmentService(assessments AssessmentRepository, attempts AttemptRepository) *AssessmentService {
	return &AssessmentService{assessments: assessments, attempts: attempts, now: time.Now}
}

// WithPublisher attaches an attempt publisher; nil disables publishing.
func (s *AssessmentService) WithPublisher(p AttemptPublisher) *AssessmentService {
	s.publisher = p
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *AssessmentService) WithClock(now func() time.Time) *AssessmentService {
	s.now = now
	return s
}

// FetchAssessment returns the assessment without correctness flags.
func (s *AssessmentService) FetchAssessment(ctx context.Context, username string, id domain.ID) (domain.Assessment, error) {
	if username == "" {
		return domain.Assessment{}, domain.ErrUsernameRequired
	}
	a, err := s.assessments.GetAssessment(ctx, id)
	if err != nil {
		return domain.Assessment{}, err
	}
	return a.Public(), nil
}

// SubmitAnswers scores a submission, records the attempt and publishes it.
func (s *AssessmentService) SubmitAnswers(ctx context.Context, sub domain.Submission) (domain.ScoreReport, error) {
	if sub.Username == "" {
		return domain.ScoreReport{}, domain.ErrUsernameRequired
	}
	if sub.AssessmentID == "" {
		return domain.ScoreReport{}, domain.ErrAssessmentIDRequired
	}

	a, err := s.assessments.GetAssessment(ctx, sub.AssessmentID)
	if err != nil {
		return domain.ScoreReport{}, err
	}
	report, err := scoreAssessment(a, sub)
	if err != nil {
		return domain.ScoreReport{}, err
	}

	attempt := domain.Attempt{
		ID:             uuid.NewString(),
		Username:       sub.Username,
		AssessmentID:   a.ID,
		Score:          report.Score,
		TotalQuestions: report.TotalQuestions,
		Percentage:     report.Percentage,
		Passed:         report.Passed,
		SubmittedAt:    s.now(),
	}
	if s.attempts != nil {
		if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
			return domain.ScoreReport{}, err
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAttempt(ctx, attempt); err != nil {
			log.Printf("publish attempt %s: %v", attempt.ID, err)
		}
	}
	return report, nil
}

// Attempts lists a learner's scored attempts for one assessment, oldest first.
func (s *AssessmentService) Attempts(ctx context.Context, username string, assessmentID domain.ID) ([]domain.Attempt, error) {
	if username == "" {
		return nil, domain.ErrUsernameRequired
	}
	if s.attempts == nil {
		return []domain.Attempt{}, nil
	}
	return s.attempts.ListAttempts(ctx, username, assessmentID)
}

// scoreAssessment grades every question of the assessment. Single-select and
// boolean questions need exactly one selected option that is correct;
// multi-select questions need the exact set of correct options. Answers for
// unknown questions are ignored.
func scoreAssessment(a domain.Assessment, sub domain.Submission) (domain.ScoreReport, error) {
	if len(a.Questions) == 0 {
		return domain.ScoreReport{}, domain.ErrNoQuestions
	}

	selected := make(map[domain.ID][]domain.ID, len(sub.Answers))
	for _, answer := range sub.Answers {
		selected[answer.QuestionID] = answer.SelectedOptions
	}

	report := domain.ScoreReport{
		TotalQuestions:  len(a.Questions),
		QuestionResults: make([]domain.QuestionResult, 0, len(a.Questions)),
	}
	for _, q := range a.Questions {
		user := selected[q.ID]
		if user == nil {
			user = []domain.ID{}
		}
		correct := correctOptions(q)

		var ok bool
		if q.Type.Multiple() {
			ok = sameSet(user, correct)
		} else {
			ok = len(user) == 1 && contains(correct, user[0])
		}
		if ok {
			report.Score++
		}
		report.QuestionResults = append(report.QuestionResults, domain.QuestionResult{
			QuestionID:     q.ID,
			QuestionText:   q.Text,
			UserAnswer:     user,
			CorrectOptions: correct,
			IsCorrect:      ok,
		})
	}

	percentage := float64(report.Score) / float64(report.TotalQuestions) * 100
	report.Percentage = math.Round(percentage*100) / 100
	report.Passed = percentage >= a.Threshold()
	return report, nil
}

func correctOptions(q domain.Question) []domain.ID {
	ids := []domain.ID{}
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

func sameSet(a, b []domain.ID) bool {
	left := make(map[domain.ID]struct{}, len(a))
	for _, id := range a {
		left[id] = struct{}{}
	}
	right := make(map[domain.ID]struct{}, len(b))
	for _, id := range b {
		right[id] = struct{}{}
	}
	if len(left) != len(right) {
		return false
	}
	for id := range left {
		if _, ok := right[id]; !ok {
			return false
		}
	}
	return true
}

func contains(ids []domain.ID, id domain.ID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
