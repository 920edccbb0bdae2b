package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/flashsync/internal/scoring"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewQuestion holds the fields a user supplies when adding a question.
// ID is optional; when empty a new one is generated. CreatedAt is set by a
// client replaying its own create so both stores keep the same creation
// time.
type NewQuestion struct {
	ID          string     `json:"id,omitempty" validate:"omitempty,max=100"`
	Prompt      string     `json:"question_text" validate:"required"`
	Answer      string     `json:"answer" validate:"required"`
	Description *string    `json:"description"`
	Tags        []string   `json:"tags" validate:"dive,max=64"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Normalize trims the text fields, drops an empty description and
// normalises tags.
func (n NewQuestion) Normalize() NewQuestion {
	n.ID = strings.TrimSpace(n.ID)
	n.Prompt = strings.TrimSpace(n.Prompt)
	n.Answer = strings.TrimSpace(n.Answer)
	if n.Description != nil {
		d := strings.TrimSpace(*n.Description)
		if d == "" {
			n.Description = nil
		} else {
			n.Description = &d
		}
	}
	n.Tags = NormalizeTags(n.Tags)
	return n
}

// Validate rejects a create request with missing required fields. Errors
// wrap ErrInvalidInput.
func (n NewQuestion) Validate() error {
	return Validate(n)
}

// Build turns a validated request into a fresh question with the initial
// score. now is the creation time unless the request carries one.
func (n NewQuestion) Build(now time.Time) Question {
	if n.CreatedAt != nil {
		now = n.CreatedAt.UTC()
	}
	id := n.ID
	if id == "" {
		id = uuid.NewString()
	}
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return Question{
		ID:          id,
		Prompt:      n.Prompt,
		Answer:      n.Answer,
		Description: n.Description,
		Score:       scoring.InitialScore,
		CreatedAt:   now,
		Tags:        tags,
	}
}

// Validate checks v against its struct tags and reports failures as
// ErrInvalidInput.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' rule", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}
