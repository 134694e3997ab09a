package session

import "assessment-session/internal/domain"

// AnswerStore keeps one answer set per assessment: question -> selected options.
// Each assessment's set is independent, so switching the active assessment
// never mixes or drops selections.
type AnswerStore struct {
	sets map[domain.ID]map[domain.ID][]domain.ID
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{sets: make(map[domain.ID]map[domain.ID][]domain.ID)}
}

// Init registers an assessment with an empty selection for every question.
func (s *AnswerStore) Init(a domain.Assessment) {
	set := make(map[domain.ID][]domain.ID, len(a.Questions))
	for _, q := range a.Questions {
		set[q.ID] = []domain.ID{}
	}
	s.sets[a.ID] = set
}

// Select applies one option choice. Single-select and boolean questions keep
// only the latest choice; multi-select questions toggle membership.
func (s *AnswerStore) Select(assessmentID domain.ID, q domain.Question, optionID domain.ID) {
	set, ok := s.sets[assessmentID]
	if !ok {
		set = make(map[domain.ID][]domain.ID)
		s.sets[assessmentID] = set
	}
	if !q.Type.Multiple() {
		set[q.ID] = []domain.ID{optionID}
		return
	}

	current := set[q.ID]
	next := make([]domain.ID, 0, len(current)+1)
	removed := false
	for _, id := range current {
		if id == optionID {
			removed = true
			continue
		}
		next = append(next, id)
	}
	if !removed {
		next = append(next, optionID)
	}
	set[q.ID] = next
}

// Selected returns a copy of the options chosen for a question.
func (s *AnswerStore) Selected(assessmentID, questionID domain.ID) []domain.ID {
	return append([]domain.ID{}, s.sets[assessmentID][questionID]...)
}

// Answered counts the questions with at least one selection.
func (s *AnswerStore) Answered(assessmentID domain.ID) int {
	n := 0
	for _, selected := range s.sets[assessmentID] {
		if len(selected) > 0 {
			n++
		}
	}
	return n
}

// Snapshot copies an assessment's whole answer set.
func (s *AnswerStore) Snapshot(assessmentID domain.ID) map[domain.ID][]domain.ID {
	set := s.sets[assessmentID]
	out := make(map[domain.ID][]domain.ID, len(set))
	for q, selected := range set {
		out[q] = append([]domain.ID{}, selected...)
	}
	return out
}

// Submission flattens an assessment's answers in question order. Unanswered
// questions are sent with an empty selection.
func (s *AnswerStore) Submission(username string, a domain.Assessment) domain.Submission {
	set := s.sets[a.ID]
	answers := make([]domain.AnswerEntry, 0, len(a.Questions))
	for _, q := range a.Questions {
		answers = append(answers, domain.AnswerEntry{
			QuestionID:      q.ID,
			SelectedOptions: append([]domain.ID{}, set[q.ID]...),
		})
	}
	return domain.Submission{
		Username:     username,
		AssessmentID: a.ID,
		Answers:      answers,
	}
}

// Reset clears every selection while keeping the registered questions.
func (s *AnswerStore) Reset() {
	for _, set := range s.sets {
		for q := range set {
			set[q] = []domain.ID{}
		}
	}
}

// Reconcile aligns an assessment's answers with a refreshed definition:
// surviving questions keep their still-valid selections, new questions start
// empty and removed questions are dropped.
func (s *AnswerStore) Reconcile(a domain.Assessment) {
	old := s.sets[a.ID]
	set := make(map[domain.ID][]domain.ID, len(a.Questions))
	for _, q := range a.Questions {
		kept := []domain.ID{}
		for _, id := range old[q.ID] {
			if _, ok := q.Option(id); ok {
				kept = append(kept, id)
			}
		}
		if !q.Type.Multiple() && len(kept) > 1 {
			kept = kept[len(kept)-1:]
		}
		set[q.ID] = kept
	}
	s.sets[a.ID] = set
}
