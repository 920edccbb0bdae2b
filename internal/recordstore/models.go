package recordstore

import (
	"time"

	"github.com/conorfennell/flashsync/internal/domain"
)

type questionModel struct {
	ID             string     `gorm:"primaryKey;size:100"`
	QuestionText   string     `gorm:"not null"`
	Answer         string     `gorm:"not null"`
	Description    *string    `gorm:"type:text"`
	Score          float64    `gorm:"not null;index"`
	CreatedAt      time.Time  `gorm:"not null;index"`
	LastReviewedAt *time.Time `gorm:"index"`
	Tags           []string   `gorm:"type:text;not null;serializer:json"`
}

func (questionModel) TableName() string { return "questions" }

func (m questionModel) toDomain() domain.Question {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	q := domain.Question{
		ID:          m.ID,
		Prompt:      m.QuestionText,
		Answer:      m.Answer,
		Description: m.Description,
		Score:       m.Score,
		CreatedAt:   m.CreatedAt.UTC(),
		Tags:        tags,
	}
	if m.LastReviewedAt != nil {
		t := m.LastReviewedAt.UTC()
		q.LastReviewedAt = &t
	}
	return q
}

func fromDomain(q domain.Question) questionModel {
	return questionModel{
		ID:             q.ID,
		QuestionText:   q.Prompt,
		Answer:         q.Answer,
		Description:    q.Description,
		Score:          q.Score,
		CreatedAt:      q.CreatedAt,
		LastReviewedAt: q.LastReviewedAt,
		Tags:           q.Tags,
	}
}

// attemptModel is the server's attempt log. It has its own ids; the
// question reference is not enforced.
type attemptModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	QuestionID string    `gorm:"not null;index;size:100"`
	Correct    bool      `gorm:"not null"`
	AnsweredAt time.Time `gorm:"not null"`
}

func (attemptModel) TableName() string { return "attempts" }
