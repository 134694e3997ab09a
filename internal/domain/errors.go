package domain

import "errors"

var (
	// ErrAssessmentNotFound indicates the assessment content could not be loaded.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrNoQuestions is returned when scoring an assessment without questions.
	ErrNoQuestions = errors.New("no questions found for this assessment")
	// ErrQuestionNotFound indicates a question ID is not part of the assessment.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates an option ID is not part of the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrUsernameRequired is returned when a request omits the learner.
	ErrUsernameRequired = errors.New("username is required")
	// ErrAssessmentIDRequired is returned when a submission omits the assessment.
	ErrAssessmentIDRequired = errors.New("assessment_id is required")
)
