package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"assessment-session/internal/domain"
)

// manualClock is a Scheduler whose ticks only fire when the test says so.
type manualClock struct {
	mu      sync.Mutex
	pending []*pendingTick
}

type pendingTick struct {
	f       func()
	stopped bool
}

func (m *manualClock) schedule(_ time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &pendingTick{f: f}
	m.pending = append(m.pending, p)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		wasPending := !p.stopped
		p.stopped = true
		return wasPending
	}
}

// fire runs the oldest live tick and reports whether one was pending.
func (m *manualClock) fire() bool {
	m.mu.Lock()
	var next *pendingTick
	for len(m.pending) > 0 {
		p := m.pending[0]
		m.pending = m.pending[1:]
		if !p.stopped {
			p.stopped = true
			next = p
			break
		}
	}
	m.mu.Unlock()
	if next == nil {
		return false
	}
	next.f()
	return true
}

func (m *manualClock) advance(n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		if !m.fire() {
			break
		}
		fired++
	}
	return fired
}

// fakeBackend scores submissions the way the reference backend does.
type fakeBackend struct {
	mu          sync.Mutex
	assessments map[domain.ID]domain.Assessment
	fetchErr    map[domain.ID]error
	submitErr   error
	failOnce    error // fails only the next SubmitAnswers call
	submissions []domain.Submission
	fetches     int

	// hold, when set, blocks the next SubmitAnswers call until closed.
	hold    chan struct{}
	entered chan struct{}
}

func newFakeBackend(assessments ...domain.Assessment) *fakeBackend {
	b := &fakeBackend{
		assessments: make(map[domain.ID]domain.Assessment),
		fetchErr:    make(map[domain.ID]error),
	}
	for _, a := range assessments {
		b.assessments[a.ID] = a
	}
	return b
}

func (b *fakeBackend) FetchAssessment(_ context.Context, _ string, id domain.ID) (domain.Assessment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if err := b.fetchErr[id]; err != nil {
		return domain.Assessment{}, err
	}
	a, ok := b.assessments[id]
	if !ok {
		return domain.Assessment{}, domain.ErrAssessmentNotFound
	}
	return a.Public(), nil
}

func (b *fakeBackend) SubmitAnswers(ctx context.Context, sub domain.Submission) (domain.ScoreReport, error) {
	b.mu.Lock()
	hold, entered := b.hold, b.entered
	b.hold, b.entered = nil, nil
	b.submissions = append(b.submissions, sub)
	b.mu.Unlock()

	if hold != nil {
		if entered != nil {
			close(entered)
		}
		select {
		case <-hold:
		case <-ctx.Done():
			return domain.ScoreReport{}, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failOnce; err != nil {
		b.failOnce = nil
		return domain.ScoreReport{}, err
	}
	if b.submitErr != nil {
		return domain.ScoreReport{}, b.submitErr
	}
	a, ok := b.assessments[sub.AssessmentID]
	if !ok {
		return domain.ScoreReport{}, errors.New("unknown assessment")
	}
	return scoreForTest(a, sub), nil
}

func (b *fakeBackend) holdNext() (entered <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hold := make(chan struct{})
	in := make(chan struct{})
	b.hold, b.entered = hold, in
	return in, func() { close(hold) }
}

func (b *fakeBackend) submitted() []domain.Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Submission(nil), b.submissions...)
}

func scoreForTest(a domain.Assessment, sub domain.Submission) domain.ScoreReport {
	selected := make(map[domain.ID][]domain.ID)
	for _, entry := range sub.Answers {
		selected[entry.QuestionID] = entry.SelectedOptions
	}
	report := domain.ScoreReport{TotalQuestions: len(a.Questions)}
	for _, q := range a.Questions {
		var correct []domain.ID
		for _, opt := range q.Options {
			if opt.Correct {
				correct = append(correct, opt.ID)
			}
		}
		user := selected[q.ID]
		ok := len(user) == len(correct)
		for _, id := range user {
			found := false
			for _, c := range correct {
				if c == id {
					found = true
				}
			}
			ok = ok && found
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
	if report.TotalQuestions > 0 {
		report.Percentage = float64(report.Score) * 100 / float64(report.TotalQuestions)
	}
	report.Passed = report.Percentage >= a.Threshold()
	return report
}

func singleQuestion(id domain.ID, text string) domain.Assessment {
	return domain.Assessment{
		ID:    id,
		Title: "Assessment " + string(id),
		Questions: []domain.Question{{
			ID:   domain.ID(string(id) + "-q1"),
			Text: text,
			Type: domain.SingleSelect,
			Options: []domain.Option{
				{ID: domain.ID(string(id) + "-right"), Text: "Right", Correct: true},
				{ID: domain.ID(string(id) + "-wrong"), Text: "Wrong"},
			},
		}},
	}
}

func mixedAssessment() domain.Assessment {
	return domain.Assessment{
		ID:    "mixed",
		Title: "Mixed",
		Questions: []domain.Question{
			{
				ID:   "single",
				Text: "Pick one",
				Type: domain.SingleSelect,
				Options: []domain.Option{
					{ID: "a", Text: "A", Correct: true},
					{ID: "b", Text: "B"},
					{ID: "c", Text: "C"},
				},
			},
			{
				ID:   "multi",
				Text: "Pick many",
				Type: domain.MultiSelect,
				Options: []domain.Option{
					{ID: "x", Text: "X", Correct: true},
					{ID: "y", Text: "Y", Correct: true},
					{ID: "z", Text: "Z"},
				},
			},
			{
				ID:   "bool",
				Text: "True?",
				Type: domain.Boolean,
				Options: []domain.Option{
					{ID: "t", Text: "True", Correct: true},
					{ID: "f", Text: "False"},
				},
			},
		},
	}
}

func newTestController(b *fakeBackend, clock *manualClock, opts ...Option) *Controller {
	opts = append([]Option{WithScheduler(clock.schedule)}, opts...)
	return New(b, "alice", opts...)
}
