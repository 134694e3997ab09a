package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"assessment-session/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Backend is the assessment service the controller talks to.
type Backend interface {
	FetchAssessment(ctx context.Context, username string, id domain.ID) (domain.Assessment, error)
	SubmitAnswers(ctx context.Context, submission domain.Submission) (domain.ScoreReport, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces time.AfterFunc for the countdown (tests drive ticks by hand).
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.schedule = s }
}

// WithTickInterval sets the countdown granularity; one second by default.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithSecondsPerAssessment sets the budget contributed by assessments that do
// not carry their own time limit.
func WithSecondsPerAssessment(seconds int) Option {
	return func(c *Controller) {
		if seconds > 0 {
			c.perAssessment = seconds
		}
	}
}

// Controller is the state machine of one learner's timed session. All state
// lives behind mu; backend calls run with mu released and their results are
// dropped when the epoch moved on in the meantime.
type Controller struct {
	backend       Backend
	username      string
	interval      time.Duration
	schedule      Scheduler
	perAssessment int

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	status      Status
	epoch       uint64
	loading     bool
	closed      bool
	assessments map[domain.ID]domain.Assessment
	answers     *AnswerStore
	seq         *Sequencer
	timer       *Countdown
	budget      int
	expired     bool
	autoTried   map[domain.ID]bool
	scored      []domain.AssessmentResult
	result      *domain.Result
	lastErr     error
	subscribers map[chan Snapshot]struct{}
}

// New creates an idle controller for username.
func New(backend Backend, username string, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:       backend,
		username:      username,
		interval:      time.Second,
		schedule:      afterFunc,
		perAssessment: domain.DefaultTimeLimitSeconds,
		ctx:           ctx,
		cancel:        cancel,
		status:        Idle,
		assessments:   make(map[domain.ID]domain.Assessment),
		answers:       NewAnswerStore(),
		seq:           NewSequencer(nil, 0),
		autoTried:     make(map[domain.ID]bool),
		subscribers:   make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.timer = NewCountdown(c.interval, c.schedule, c.onTick, c.onExpire)
	return c
}

// Load fetches every assessment concurrently and prepares empty answer sets.
// Any failed fetch fails the whole load and leaves the session Idle.
func (c *Controller) Load(ctx context.Context, ids []domain.ID, currentID domain.ID) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return ErrNoAssessments
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.status != Idle {
		st := c.status
		c.mu.Unlock()
		return &TransitionError{Op: "load", From: st}
	}
	if c.loading {
		c.mu.Unlock()
		return ErrLoadInFlight
	}
	c.loading = true
	epoch := c.epoch
	c.mu.Unlock()

	rctx, release := c.bind(ctx)
	defer release()

	loaded := make([]domain.Assessment, len(ids))
	g, gctx := errgroup.WithContext(rctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			a, err := c.backend.FetchAssessment(gctx, c.username, id)
			if err != nil {
				return &LoadError{AssessmentID: id, Err: err}
			}
			// Answers are keyed by the id requested here, never by the payload.
			a.ID = id
			loaded[i] = a
			return nil
		})
	}
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if c.epoch != epoch || c.status != Idle {
		return ErrSessionClosed
	}
	if err != nil {
		c.lastErr = err
		c.broadcastLocked()
		log.Printf("session load failed for %s: %v", c.username, err)
		return err
	}

	budget := 0
	for _, a := range loaded {
		c.assessments[a.ID] = a
		c.answers.Init(a)
		budget += a.TimeAllotment(c.perAssessment)
	}
	start := 0
	if currentID != "" {
		for i, id := range ids {
			if id == currentID {
				start = i
				break
			}
		}
	}
	c.seq = NewSequencer(ids, start)
	c.budget = budget
	c.timer.Reset(budget)
	c.lastErr = nil
	c.status = Ready
	c.broadcastLocked()
	return nil
}

// Begin starts the countdown.
func (c *Controller) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	if c.status != Ready {
		return &TransitionError{Op: "begin", From: c.status}
	}
	c.status = InProgress
	c.timer.Start()
	c.broadcastLocked()
	return nil
}

// SelectOption records a choice in the active assessment. Outside InProgress
// it does nothing.
func (c *Controller) SelectOption(questionID, optionID domain.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != InProgress {
		return nil
	}
	a := c.activeLocked()
	q, ok := a.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, questionID)
	}
	if _, ok := q.Option(optionID); !ok {
		return fmt.Errorf("%w: %s", domain.ErrOptionNotFound, optionID)
	}
	c.answers.Select(a.ID, q, optionID)
	c.broadcastLocked()
	return nil
}

// GoToAssessment switches the active assessment. Invalid indexes are ignored.
func (c *Controller) GoToAssessment(index int) error {
	return c.navigate("go to assessment", func(s *Sequencer) bool { return s.GoTo(index) })
}

func (c *Controller) Next() error {
	return c.navigate("move to next assessment", (*Sequencer).Next)
}

func (c *Controller) Previous() error {
	return c.navigate("move to previous assessment", (*Sequencer).Previous)
}

func (c *Controller) navigate(op string, move func(*Sequencer) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != InProgress {
		return &TransitionError{Op: op, From: c.status}
	}
	if move(c.seq) {
		c.broadcastLocked()
	}
	return nil
}

// SubmitCurrent sends the active assessment for scoring. On success the
// session advances or completes; on failure it returns to InProgress with the
// answers untouched and a *SubmitError.
func (c *Controller) SubmitCurrent(ctx context.Context) error {
	return c.submit(ctx, false)
}

func (c *Controller) submit(ctx context.Context, auto bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	switch c.status {
	case InProgress:
	case Submitting:
		c.mu.Unlock()
		return ErrSubmitInFlight
	default:
		st := c.status
		c.mu.Unlock()
		return &TransitionError{Op: "submit", From: st}
	}
	a := c.activeLocked()
	if auto {
		if c.autoTried[a.ID] {
			c.mu.Unlock()
			return nil
		}
		c.autoTried[a.ID] = true
	}
	submission := c.answers.Submission(c.username, a)
	epoch := c.epoch
	c.status = Submitting
	c.lastErr = nil
	c.broadcastLocked()
	c.mu.Unlock()

	rctx, release := c.bind(ctx)
	report, err := c.backend.SubmitAnswers(rctx, submission)
	release()

	c.mu.Lock()
	if c.epoch != epoch || c.status != Submitting {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if err != nil {
		serr := &SubmitError{AssessmentID: a.ID, Auto: auto, Err: err}
		c.status = InProgress
		c.lastErr = serr
		// Time ran out while this submit was pending: it still owes its auto-submit.
		owed := c.expired && !c.autoTried[a.ID]
		c.broadcastLocked()
		c.mu.Unlock()
		log.Printf("session %s: %v", c.username, serr)
		if owed {
			c.autoSubmit("auto-submit after failed submit")
		}
		return serr
	}

	c.recordLocked(Project(a, report))
	if c.seq.IsLast() {
		c.completeLocked()
		c.mu.Unlock()
		return nil
	}

	c.seq.Next()
	c.status = InProgress
	next := c.activeLocked().ID
	chain := c.expired && !c.autoTried[next]
	c.broadcastLocked()
	c.mu.Unlock()

	if chain {
		// Time already ran out: the next assessment gets its single auto-submit too.
		c.autoSubmit("chained auto-submit")
	}
	return nil
}

// autoSubmit runs the expiry submit for the active assessment. Must be called
// without mu held.
func (c *Controller) autoSubmit(what string) {
	err := c.submit(c.ctx, true)
	if err != nil && !errors.Is(err, ErrSubmitInFlight) && !errors.Is(err, ErrSessionClosed) {
		log.Printf("session %s: %s: %v", c.username, what, err)
	}
}

func (c *Controller) recordLocked(res domain.AssessmentResult) {
	for i := range c.scored {
		if c.scored[i].AssessmentID == res.AssessmentID {
			c.scored[i] = res
			return
		}
	}
	c.scored = append(c.scored, res)
}

func (c *Controller) completeLocked() {
	last := c.scored[len(c.scored)-1]
	for i := range c.scored {
		if c.scored[i].AssessmentID == c.seq.Current() {
			last = c.scored[i]
		}
	}
	c.result = &domain.Result{
		Score:          last.Score,
		TotalQuestions: last.TotalQuestions,
		Percentage:     last.Percentage,
		Passed:         last.Passed,
		Review:         last.Review,
		Assessments:    append([]domain.AssessmentResult(nil), c.scored...),
	}
	c.timer.Reset(0)
	c.status = Completed
	c.broadcastLocked()
}

// Retake resets a completed session to Ready with empty answers and a full budget.
func (c *Controller) Retake() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	if c.status != Completed {
		return &TransitionError{Op: "retake", From: c.status}
	}
	c.epoch++
	c.answers.Reset()
	c.seq.Reset()
	c.timer.Reset(c.budget)
	c.expired = false
	c.autoTried = make(map[domain.ID]bool)
	c.scored = nil
	c.result = nil
	c.lastErr = nil
	c.status = Ready
	c.broadcastLocked()
	return nil
}

// Refresh re-fetches one loaded assessment and swaps its definition in place.
// Answers for questions that still exist are kept.
func (c *Controller) Refresh(ctx context.Context, assessmentID domain.ID) error {
	c.mu.Lock()
	if !refreshable(c.status) {
		st := c.status
		c.mu.Unlock()
		return &TransitionError{Op: "refresh", From: st}
	}
	if _, ok := c.assessments[assessmentID]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrAssessmentNotFound, assessmentID)
	}
	epoch := c.epoch
	c.mu.Unlock()

	rctx, release := c.bind(ctx)
	a, err := c.backend.FetchAssessment(rctx, c.username, assessmentID)
	release()
	if err != nil {
		return &LoadError{AssessmentID: assessmentID, Err: err}
	}
	a.ID = assessmentID

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || !refreshable(c.status) {
		return ErrSessionClosed
	}
	c.assessments[assessmentID] = a
	c.answers.Reconcile(a)
	c.broadcastLocked()
	return nil
}

func refreshable(s Status) bool {
	return s == Ready || s == InProgress || s == Submitting
}

// Close tears the session down: the countdown stops, pending requests are
// cancelled and their late results ignored, subscribers are released.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.timer.Stop()
	if !c.status.Terminal() {
		c.status = Cancelled
	}
	for ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
	c.mu.Unlock()
	c.cancel()
}

func (c *Controller) onTick(int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcastLocked()
}

func (c *Controller) onExpire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.expired = true
	st := c.status
	c.mu.Unlock()

	if st != InProgress {
		return
	}
	log.Printf("session %s: time expired, auto-submitting", c.username)
	c.autoSubmit("auto-submit")
}

// bind derives a request context that also ends when the session is closed.
func (c *Controller) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) activeLocked() domain.Assessment {
	return c.assessments[c.seq.Current()]
}

func uniqueIDs(ids []domain.ID) []domain.ID {
	seen := make(map[domain.ID]struct{}, len(ids))
	out := make([]domain.ID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
