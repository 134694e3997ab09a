package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"assessment-session/internal/domain"
)

// ErrMalformedResponse is returned when a 2xx body is missing the expected payload.
var ErrMalformedResponse = errors.New("malformed backend response")

// StatusError carries a non-2xx reply and the backend's error text.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
}

// NotFound reports whether the backend rejected an unknown assessment.
func (e *StatusError) NotFound() bool {
	return e.Code == http.StatusNotFound
}

type envelope struct {
	Success    bool                `json:"success"`
	Error      string              `json:"error"`
	Assessment *domain.Assessment  `json:"assessment"`
	Results    *domain.ScoreReport `json:"results"`
	Attempts   []domain.Attempt    `json:"attempts"`
}

// Client talks to an assessment backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) FetchAssessment(ctx context.Context, username string, id domain.ID) (domain.Assessment, error) {
	endpoint := fmt.Sprintf("%s/assessments/%s?user=%s", c.baseURL, url.PathEscape(string(id)), url.QueryEscape(username))
	var env envelope
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
		return domain.Assessment{}, err
	}
	if env.Assessment == nil {
		return domain.Assessment{}, fmt.Errorf("%w: no assessment", ErrMalformedResponse)
	}
	return *env.Assessment, nil
}

func (c *Client) SubmitAnswers(ctx context.Context, sub domain.Submission) (domain.ScoreReport, error) {
	if sub.Answers == nil {
		sub.Answers = []domain.AnswerEntry{}
	}
	body, err := json.Marshal(sub)
	if err != nil {
		return domain.ScoreReport{}, fmt.Errorf("encode submission: %w", err)
	}
	var env envelope
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/assessments/submit", body, &env); err != nil {
		return domain.ScoreReport{}, err
	}
	if env.Results == nil || env.Results.QuestionResults == nil {
		return domain.ScoreReport{}, fmt.Errorf("%w: no results", ErrMalformedResponse)
	}
	return *env.Results, nil
}

// Attempts lists the learner's attempt history for one assessment.
func (c *Client) Attempts(ctx context.Context, username string, id domain.ID) ([]domain.Attempt, error) {
	endpoint := fmt.Sprintf("%s/assessments/%s/attempts?user=%s", c.baseURL, url.PathEscape(string(id)), url.QueryEscape(username))
	var env envelope
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
		return nil, err
	}
	if env.Attempts == nil {
		return []domain.Attempt{}, nil
	}
	return env.Attempts, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out *envelope) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	decodeErr := json.Unmarshal(raw, out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if !out.Success {
		return fmt.Errorf("%w: %s", ErrMalformedResponse, out.Error)
	}
	return nil
}
