package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"assessment-session/internal/client"
	"assessment-session/internal/config"
	"assessment-session/internal/domain"
	"assessment-session/internal/session"
	"github.com/spf13/cobra"
)

// NewTakeCmd runs an interactive timed session against a remote backend.
func NewTakeCmd(configPath *string) *cobra.Command {
	var (
		backendURL string
		username   string
		current    string
		ids        []string
	)
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take one or more timed assessments from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if username == "" {
				return errors.New("--user is required")
			}
			if len(ids) == 0 {
				return errors.New("at least one --assessment is required")
			}
			if backendURL == "" {
				backendURL = cfg.Backend.URL
			}
			if backendURL == "" {
				backendURL = "http://localhost:8080"
			}

			backend := client.New(backendURL, config.Duration(cfg.Backend.Timeout, 10*time.Second))
			ctrl := session.New(backend, username, sessionOptions(cfg)...)
			return runTake(cmd.Context(), ctrl, ids, current, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&backendURL, "backend", "", "backend base URL (defaults to backend.url)")
	cmd.Flags().StringVar(&username, "user", "", "learner name")
	cmd.Flags().StringSliceVar(&ids, "assessment", nil, "assessment id, repeatable")
	cmd.Flags().StringVar(&current, "current", "", "assessment to start with (defaults to the first)")
	return cmd
}

func runTake(ctx context.Context, ctrl *session.Controller, ids []string, current string, in io.Reader, out io.Writer) error {
	t := &terminal{out: out, ctrl: ctrl}

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()
	watched := make(chan struct{})
	go t.watch(updates, watched)
	defer func() {
		ctrl.Close()
		<-watched
	}()

	list := make([]domain.ID, 0, len(ids))
	for _, id := range ids {
		list = append(list, domain.ID(id))
	}
	if current == "" {
		current = ids[0]
	}
	if err := ctrl.Load(ctx, list, domain.ID(current)); err != nil {
		return err
	}
	if err := ctrl.Begin(); err != nil {
		return err
	}
	t.render()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := t.handle(ctx, fields)
		if err != nil {
			t.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

type terminal struct {
	mu   sync.Mutex
	out  io.Writer
	ctrl *session.Controller
}

func (t *terminal) handle(ctx context.Context, fields []string) (bool, error) {
	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "show":
		t.render()
	case "select":
		if len(fields) != 3 {
			return false, errors.New("usage: select <question-id> <option-id>")
		}
		if err := t.ctrl.SelectOption(domain.ID(fields[1]), domain.ID(fields[2])); err != nil {
			return false, err
		}
		t.render()
	case "next":
		return false, t.move(t.ctrl.Next)
	case "prev", "previous":
		return false, t.move(t.ctrl.Previous)
	case "goto":
		if len(fields) != 2 {
			return false, errors.New("usage: goto <number>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("goto: %w", err)
		}
		return false, t.move(func() error { return t.ctrl.GoToAssessment(n - 1) })
	case "submit":
		if err := t.ctrl.SubmitCurrent(ctx); err != nil {
			return false, err
		}
		if t.ctrl.Status() == session.InProgress {
			t.render()
		}
	case "retake":
		if err := t.ctrl.Retake(); err != nil {
			return false, err
		}
		if err := t.ctrl.Begin(); err != nil {
			return false, err
		}
		t.render()
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

func (t *terminal) move(step func() error) error {
	if err := step(); err != nil {
		return err
	}
	t.render()
	return nil
}

// watch reports what happens without user input: expiry and completion.
func (t *terminal) watch(updates <-chan session.Snapshot, done chan<- struct{}) {
	defer close(done)
	last := session.Idle
	warned := false
	for snap := range updates {
		running := snap.Status == session.InProgress || snap.Status == session.Submitting
		if running && snap.RemainingSeconds == 0 && !warned {
			warned = true
			t.printf("time is up, submitting\n")
		}
		if snap.Status == session.Completed && last != session.Completed && snap.Result != nil {
			t.printResult(*snap.Result)
		}
		if snap.Status == session.Ready {
			warned = false
		}
		last = snap.Status
	}
}

func (t *terminal) render() {
	snap := t.ctrl.Snapshot()
	if snap.Active == nil {
		return
	}
	a := snap.Active
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "[%d/%d] %s  %s left  %d/%d answered\n",
		snap.ActiveIndex+1, snap.AssessmentCount, a.Title, clock(snap.RemainingSeconds), snap.AnsweredCount, len(a.Questions))
	for i, q := range a.Questions {
		fmt.Fprintf(t.out, "%d. %s (%s, id %s)\n", i+1, q.Text, q.Type, q.ID)
		chosen := make(map[domain.ID]bool)
		for _, id := range snap.Answers[q.ID] {
			chosen[id] = true
		}
		for _, opt := range q.Options {
			mark := " "
			if chosen[opt.ID] {
				mark = "x"
			}
			fmt.Fprintf(t.out, "   [%s] %s: %s\n", mark, opt.ID, opt.Text)
		}
	}
}

func (t *terminal) printResult(res domain.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "result: %d/%d (%.2f%%) %s\n", res.Score, res.TotalQuestions, res.Percentage, verdict(res.Passed))
	for _, ar := range res.Assessments {
		fmt.Fprintf(t.out, "%s: %d/%d (%.2f%%) %s\n", ar.Title, ar.Score, ar.TotalQuestions, ar.Percentage, verdict(ar.Passed))
		for _, r := range ar.Review {
			mark := "wrong"
			if r.IsCorrect {
				mark = "right"
			}
			answer := r.UserAnswerText
			if answer == "" {
				answer = "no answer"
			}
			fmt.Fprintf(t.out, "  [%s] %s\n      yours: %s\n      correct: %s\n", mark, r.QuestionText, answer, r.CorrectOptionsText)
		}
	}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func verdict(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
