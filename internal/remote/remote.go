// Package remote defines what the client needs from the server of record and
// an HTTP implementation of it.
package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/conorfennell/flashsync/internal/domain"
)

// MaxPageSize is the largest page the server returns from a pull.
const MaxPageSize = 1000

// Client is the remote store capability used by the sync coordinator.
type Client interface {
	// PullQuestions returns one page of the full question set. A page
	// shorter than limit is the last one.
	PullQuestions(ctx context.Context, offset, limit int) ([]domain.Question, error)
	PushQuestionUpdates(ctx context.Context, updates []domain.QuestionUpdate) error
	PushNewAttempts(ctx context.Context, attempts []domain.AttemptRecord) error
	// CreateQuestion stores a new question. Creating an id that already
	// exists is a no-op returning the stored question.
	CreateQuestion(ctx context.Context, q domain.NewQuestion) (*domain.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	RecordAnswerAndRescore(ctx context.Context, questionID, answer string) (*domain.AnswerResult, error)
}

// StatusError is a non-2xx response from the server. 404 and 400 unwrap to
// domain.ErrNotFound and domain.ErrInvalidInput.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote store returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote store returned %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	default:
		return nil
	}
}
