package session

import (
	"errors"
	"fmt"

	"assessment-session/internal/domain"
)

// Status is the lifecycle state of a session.
type Status int

const (
	Idle Status = iota
	Ready
	InProgress
	Submitting
	Completed
	Cancelled
)

var statusNames = map[Status]string{
	Idle:       "idle",
	Ready:      "ready",
	InProgress: "in_progress",
	Submitting: "submitting",
	Completed:  "completed",
	Cancelled:  "cancelled",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible without Retake.
func (s Status) Terminal() bool {
	return s == Completed || s == Cancelled
}

var (
	// ErrNoAssessments is returned by Load when no ids are given.
	ErrNoAssessments = errors.New("session: no assessments to load")
	// ErrInvalidTransition is wrapped by every TransitionError.
	ErrInvalidTransition = errors.New("session: invalid transition")
	// ErrSubmitInFlight is returned when a submit is requested while another is pending.
	ErrSubmitInFlight = errors.New("session: submit already in flight")
	// ErrLoadInFlight is returned when Load is called while a load is pending.
	ErrLoadInFlight = errors.New("session: load already in flight")
	// ErrSessionClosed reports that a response arrived after the session was torn down or reset.
	ErrSessionClosed = errors.New("session: closed")
)

// TransitionError reports an operation attempted in the wrong state.
type TransitionError struct {
	Op   string
	From Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: cannot %s while %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// LoadError is the fatal outcome of Load.
type LoadError struct {
	AssessmentID domain.ID
	Err          error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load assessment %s: %v", e.AssessmentID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SubmitError is the recoverable outcome of a failed submit; answers are kept
// and the submit may be retried.
type SubmitError struct {
	AssessmentID domain.ID
	Auto         bool
	Err          error
}

func (e *SubmitError) Error() string {
	kind := "submit"
	if e.Auto {
		kind = "auto-submit"
	}
	return fmt.Sprintf("%s assessment %s: %v", kind, e.AssessmentID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

func (e *SubmitError) Retryable() bool { return true }
