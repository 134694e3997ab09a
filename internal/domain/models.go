package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPassThreshold is the passing percentage when an assessment does not set one.
	DefaultPassThreshold = 70.0
	// DefaultTimeLimitSeconds is each assessment's contribution to the shared countdown.
	DefaultTimeLimitSeconds = 180
)

// ID identifies assessments, questions and options. It decodes from either a
// JSON string or a JSON number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// QuestionType controls how selections are recorded and scored.
type QuestionType string

const (
	SingleSelect QuestionType = "single-select"
	MultiSelect  QuestionType = "multi-select"
	Boolean      QuestionType = "boolean"
)

// ParseQuestionType maps known spellings onto the canonical types. Unknown
// values fall back to single-select.
func ParseQuestionType(raw string) QuestionType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "multi-select", "multiple-choice", "multi":
		return MultiSelect
	case "boolean", "true-false", "bool":
		return Boolean
	default:
		return SingleSelect
	}
}

func (t *QuestionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseQuestionType(s)
	return nil
}

// Multiple reports whether more than one option may be selected.
func (t QuestionType) Multiple() bool {
	return t == MultiSelect
}

// Option represents a possible answer for a question.
type Option struct {
	ID      ID     `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question is one scored item of an assessment.
type Question struct {
	ID      ID           `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []Option     `json:"options"`
}

// Option returns the option with the given id.
func (q Question) Option(id ID) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Assessment is a quiz (or step-based simulation) made of ordered questions.
type Assessment struct {
	ID               ID         `json:"id"`
	Title            string     `json:"title"`
	Questions        []Question `json:"questions"`
	PassThreshold    float64    `json:"pass_threshold,omitempty"`
	TimeLimitSeconds int        `json:"time_limit_seconds,omitempty"`
}

// Question returns the question with the given id.
func (a Assessment) Question(id ID) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Threshold is the pass percentage, defaulting to 70.
func (a Assessment) Threshold() float64 {
	if a.PassThreshold > 0 {
		return a.PassThreshold
	}
	return DefaultPassThreshold
}

// TimeAllotment is the number of seconds this assessment adds to a session
// budget; fallback applies when the definition has no limit of its own, and
// DefaultTimeLimitSeconds when fallback is not positive either.
func (a Assessment) TimeAllotment(fallback int) int {
	if a.TimeLimitSeconds > 0 {
		return a.TimeLimitSeconds
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeLimitSeconds
}

// Public returns a deep copy with every correctness flag cleared, suitable for learners.
func (a Assessment) Public() Assessment {
	out := a
	out.Questions = make([]Question, len(a.Questions))
	for i, q := range a.Questions {
		q.Options = append([]Option(nil), q.Options...)
		for j := range q.Options {
			q.Options[j].Correct = false
		}
		out.Questions[i] = q
	}
	return out
}

// AnswerEntry is one question's selection in a submission.
type AnswerEntry struct {
	QuestionID      ID   `json:"question_id"`
	SelectedOptions []ID `json:"selected_options"`
}

// Submission is the scoring request for one assessment.
type Submission struct {
	Username     string        `json:"username"`
	AssessmentID ID            `json:"assessment_id"`
	Answers      []AnswerEntry `json:"answers"`
}

// QuestionResult is the backend's verdict for one question.
type QuestionResult struct {
	QuestionID     ID     `json:"question_id"`
	QuestionText   string `json:"question_text"`
	UserAnswer     []ID   `json:"user_answer"`
	CorrectOptions []ID   `json:"correct_options"`
	IsCorrect      bool   `json:"is_correct"`
}

// ScoreReport is the scoring response for one submitted assessment.
type ScoreReport struct {
	Score           int              `json:"score"`
	TotalQuestions  int              `json:"total_questions"`
	Percentage      float64          `json:"percentage"`
	Passed          bool             `json:"passed"`
	QuestionResults []QuestionResult `json:"question_results"`
}

// ReviewEntry is a question result resolved to display text.
type ReviewEntry struct {
	QuestionID         ID     `json:"question_id"`
	QuestionText       string `json:"question_text"`
	UserAnswerText     string `json:"user_answer_text"`
	CorrectOptionsText string `json:"correct_options_text"`
	IsCorrect          bool   `json:"is_correct"`
}

// AssessmentResult is the projected outcome of one scored assessment.
type AssessmentResult struct {
	AssessmentID   ID            `json:"assessment_id"`
	Title          string        `json:"title"`
	Score          int           `json:"score"`
	TotalQuestions int           `json:"total_questions"`
	Percentage     float64       `json:"percentage"`
	Passed         bool          `json:"passed"`
	Review         []ReviewEntry `json:"review"`
}

// Result is the terminal outcome of a session. The top-level verdict is the
// last scoring response; Assessments lists every scored assessment in order.
type Result struct {
	Score          int                `json:"score"`
	TotalQuestions int                `json:"total_questions"`
	Percentage     float64            `json:"percentage"`
	Passed         bool               `json:"passed"`
	Review         []ReviewEntry      `json:"review"`
	Assessments    []AssessmentResult `json:"assessments"`
}

// Attempt records one scored submission on the backend.
type Attempt struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	AssessmentID   ID        `json:"assessment_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Percentage     float64   `json:"percentage"`
	Passed         bool      `json:"passed"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
