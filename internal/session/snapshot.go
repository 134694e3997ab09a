package session

import "assessment-session/internal/domain"

// Snapshot is a read-only view of the session for rendering layers.
type Snapshot struct {
	Status           Status                    `json:"status"`
	RemainingSeconds int                       `json:"remainingSeconds"`
	ActiveIndex      int                       `json:"activeIndex"`
	AssessmentCount  int                       `json:"assessmentCount"`
	Active           *domain.Assessment        `json:"active,omitempty"`
	Answers          map[domain.ID][]domain.ID `json:"answers,omitempty"`
	AnsweredCount    int                       `json:"answeredCount"`
	Result           *domain.Result            `json:"result,omitempty"`
	Error            string                    `json:"error,omitempty"`
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) RemainingSeconds() int {
	return c.timer.Remaining()
}

// ActiveIndex is the position of the active assessment, or -1 before Load.
func (c *Controller) ActiveIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq.Len() == 0 {
		return -1
	}
	return c.seq.Index()
}

// ActiveAssessment returns the learner-facing copy of the active assessment.
func (c *Controller) ActiveAssessment() (domain.Assessment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq.Len() == 0 {
		return domain.Assessment{}, false
	}
	return c.activeLocked().Public(), true
}

func (c *Controller) AnsweredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Answered(c.seq.Current())
}

// Answers copies the active assessment's answer set.
func (c *Controller) Answers() map[domain.ID][]domain.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Snapshot(c.seq.Current())
}

// AnswersFor copies the answer set of any loaded assessment.
func (c *Controller) AnswersFor(assessmentID domain.ID) map[domain.ID][]domain.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Snapshot(assessmentID)
}

// Result returns the terminal result once the session is Completed.
func (c *Controller) Result() (domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.Result{}, false
	}
	return *c.result, true
}

// LastError is the most recent load or submit failure, cleared by the next attempt.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// Slow readers only ever see the latest snapshot. The caller must invoke the
// returned cancel function.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	c.mu.Lock()
	if c.closed {
		ch <- c.snapshotLocked()
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) broadcastLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:           c.status,
		RemainingSeconds: c.timer.Remaining(),
		ActiveIndex:      -1,
		AssessmentCount:  c.seq.Len(),
	}
	if c.seq.Len() > 0 {
		id := c.seq.Current()
		active := c.assessments[id].Public()
		snap.ActiveIndex = c.seq.Index()
		snap.Active = &active
		snap.Answers = c.answers.Snapshot(id)
		snap.AnsweredCount = c.answers.Answered(id)
	}
	if c.result != nil {
		res := *c.result
		snap.Result = &res
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}
