package domain

import (
	"strings"
	"time"
)

// Question is a single flashcard. Dirty and Revision are local bookkeeping
// and never travel over the wire.
type Question struct {
	ID             string     `json:"id"`
	Prompt         string     `json:"question_text"`
	Answer         string     `json:"answer"`
	Description    *string    `json:"description"`
	Score          float64    `json:"score"`
	CreatedAt      time.Time  `json:"created_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
	Tags           []string   `json:"tags"`

	Dirty         bool  `json:"-"`
	PendingCreate bool  `json:"-"`
	Revision      int64 `json:"-"`
}

// HasTag reports whether the question carries tag (already lower-cased).
func (q Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Update returns the subset of q pushed to the remote store.
func (q Question) Update() QuestionUpdate {
	return QuestionUpdate{
		ID:             q.ID,
		Score:          q.Score,
		LastReviewedAt: q.LastReviewedAt,
		Tags:           q.Tags,
	}
}

// QuestionUpdate is the score state pushed for a dirty question.
type QuestionUpdate struct {
	ID             string     `json:"id"`
	Score          float64    `json:"score"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
	Tags           []string   `json:"tags"`
}

// Attempt is one scored answer. Synced is local-only.
type Attempt struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	Correct    bool      `json:"correct"`
	AnsweredAt time.Time `json:"answered_at"`

	Synced bool `json:"-"`
}

// Record returns the attempt as pushed to the remote store, which assigns
// its own id.
func (a Attempt) Record() AttemptRecord {
	return AttemptRecord{QuestionID: a.QuestionID, Correct: a.Correct, AnsweredAt: a.AnsweredAt}
}

type AttemptRecord struct {
	QuestionID string    `json:"question_id"`
	Correct    bool      `json:"correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// AnswerResult is what a caller sees after answering a question.
type AnswerResult struct {
	Correct       bool    `json:"correct"`
	NewScore      float64 `json:"new_score"`
	CorrectAnswer string  `json:"correct_answer"`
}

// GameResult is one answered question of a completed game.
type GameResult struct {
	QuestionID string  `json:"question_id" validate:"required"`
	Correct    bool    `json:"correct"`
	NewScore   float64 `json:"new_score" validate:"gte=0,lte=10"`
}

// NormalizeTags lower-cases and trims tags, dropping blanks and duplicates
// while keeping the first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = NormalizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// NormalizeTag puts a single tag, e.g. a filter typed by a user, in the
// form tags are stored in.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// ParseTags splits a comma separated tag list as typed by a user.
func ParseTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}
