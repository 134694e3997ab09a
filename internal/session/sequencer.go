package session

import "assessment-session/internal/domain"

// Sequencer holds the ordered assessment ids and the active position.
type Sequencer struct {
	ids   []domain.ID
	index int
}

func NewSequencer(ids []domain.ID, start int) *Sequencer {
	s := &Sequencer{ids: append([]domain.ID(nil), ids...)}
	if start >= 0 && start < len(s.ids) {
		s.index = start
	}
	return s
}

func (s *Sequencer) Len() int   { return len(s.ids) }
func (s *Sequencer) Index() int { return s.index }

// Current returns the active assessment id, or "" when empty.
func (s *Sequencer) Current() domain.ID {
	if len(s.ids) == 0 {
		return ""
	}
	return s.ids[s.index]
}

func (s *Sequencer) IDs() []domain.ID {
	return append([]domain.ID(nil), s.ids...)
}

// IndexOf returns the position of id, or -1.
func (s *Sequencer) IndexOf(id domain.ID) int {
	for i, candidate := range s.ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

// Next advances one position. It reports false at the end.
func (s *Sequencer) Next() bool {
	if s.index >= len(s.ids)-1 {
		return false
	}
	s.index++
	return true
}

// Previous moves back one position. It reports false at the start.
func (s *Sequencer) Previous() bool {
	if s.index <= 0 {
		return false
	}
	s.index--
	return true
}

// GoTo jumps to index; out-of-range values are ignored.
func (s *Sequencer) GoTo(index int) bool {
	if index < 0 || index >= len(s.ids) || index == s.index {
		return false
	}
	s.index = index
	return true
}

func (s *Sequencer) IsLast() bool {
	return s.index == len(s.ids)-1
}

func (s *Sequencer) Reset() {
	s.index = 0
}
