package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/conorfennell/flashsync/internal/domain"
)

// HTTPClient talks to the server API. No per-call timeout is applied; a
// hung call only delays the caller.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the server at baseURL. A nil hc uses
// http.DefaultClient.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *HTTPClient) PullQuestions(ctx context.Context, offset, limit int) ([]domain.Question, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var questions []domain.Question
	if err := c.do(ctx, http.MethodGet, "/api/sync/pull?"+q.Encode(), nil, &questions); err != nil {
		return nil, fmt.Errorf("failed to pull questions at offset %d: %w", offset, err)
	}
	return questions, nil
}

func (c *HTTPClient) PushQuestionUpdates(ctx context.Context, updates []domain.QuestionUpdate) error {
	if err := c.do(ctx, http.MethodPost, "/api/sync/push", PushUpdatesRequest{Updates: updates}, nil); err != nil {
		return fmt.Errorf("failed to push %d question updates: %w", len(updates), err)
	}
	return nil
}

func (c *HTTPClient) PushNewAttempts(ctx context.Context, attempts []domain.AttemptRecord) error {
	if err := c.do(ctx, http.MethodPost, "/api/sync/push-attempts", PushAttemptsRequest{Attempts: attempts}, nil); err != nil {
		return fmt.Errorf("failed to push %d attempts: %w", len(attempts), err)
	}
	return nil
}

func (c *HTTPClient) CreateQuestion(ctx context.Context, nq domain.NewQuestion) (*domain.Question, error) {
	var q domain.Question
	if err := c.do(ctx, http.MethodPost, "/api/questions", nq, &q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return &q, nil
}

func (c *HTTPClient) DeleteQuestion(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/questions/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete question %s: %w", id, err)
	}
	return nil
}

func (c *HTTPClient) RecordAnswerAndRescore(ctx context.Context, questionID, answer string) (*domain.AnswerResult, error) {
	var res domain.AnswerResult
	req := AnswerRequest{QuestionID: questionID, Answer: answer}
	if err := c.do(ctx, http.MethodPost, "/api/answer", req, &res); err != nil {
		return nil, fmt.Errorf("failed to answer question %s: %w", questionID, err)
	}
	return &res, nil
}

// do sends body as JSON and decodes a 2xx response into out when out is
// non-nil. Other statuses become a *StatusError.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	serr := &StatusError{StatusCode: resp.StatusCode}
	var body ErrorResponse
	b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return errors.Join(serr, err)
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		serr.Message = body.Error
	} else {
		serr.Message = strings.TrimSpace(string(b))
	}
	return serr
}
