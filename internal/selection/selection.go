// Package selection picks which questions to present next. It never
// mutates state; an empty result means there is nothing to review.
package selection

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/conorfennell/flashsync/internal/domain"
	"github.com/conorfennell/flashsync/internal/scoring"
)

const (
	BatchSize       = 10
	DifficultTarget = 2
	FreshTarget     = BatchSize - DifficultTarget
)

// Source answers predicate queries over questions. Both the local replica
// and the record store implement it.
type Source interface {
	FindQuestions(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, error)
}

// Engine selects questions from a Source.
type Engine struct {
	src     Source
	shuffle func(n int, swap func(i, j int))
}

// Option configures an Engine.
type Option func(*Engine)

// WithShuffle replaces the uniform shuffle applied to game batches.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(e *Engine) { e.shuffle = shuffle }
}

func New(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, shuffle: rand.Shuffle}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Next returns the not-yet-learned question untouched for longest, or nil
// when there is none.
func (e *Engine) Next(ctx context.Context, tag string) (*domain.Question, error) {
	tag = domain.NormalizeTag(tag)
	qs, err := e.src.FindQuestions(ctx, domain.QuestionFilter{
		Band:  domain.BandActive,
		Tag:   tag,
		Order: domain.OrderLeastRecentlyReviewed,
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select next question: %w", err)
	}
	if len(qs) == 0 {
		return nil, nil
	}
	return &qs[0], nil
}

// Batch builds a shuffled game batch of up to BatchSize questions mixing the
// difficult and fresh bands.
func (e *Engine) Batch(ctx context.Context, tag string) ([]domain.Question, error) {
	tag = domain.NormalizeTag(tag)
	difficult, err := e.src.FindQuestions(ctx, domain.QuestionFilter{
		Band:  domain.BandDifficult,
		Tag:   tag,
		Order: domain.OrderLeastRecentlyReviewed,
		Limit: BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select difficult questions: %w", err)
	}
	fresh, err := e.src.FindQuestions(ctx, domain.QuestionFilter{
		Band:  domain.BandFresh,
		Tag:   tag,
		Order: domain.OrderLeastRecentlyReviewed,
		Limit: BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select fresh questions: %w", err)
	}

	batch := MixBatch(difficult, fresh)
	e.shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	return batch, nil
}

// MixBatch takes DifficultTarget questions from difficult and FreshTarget
// from fresh, then tops up to BatchSize from the difficult leftovers
// followed by the fresh leftovers. Both inputs keep their order.
func MixBatch(difficult, fresh []domain.Question) []domain.Question {
	nd := min(DifficultTarget, len(difficult))
	nf := min(FreshTarget, len(fresh))

	batch := make([]domain.Question, 0, BatchSize)
	batch = append(batch, difficult[:nd]...)
	batch = append(batch, fresh[:nf]...)

	for _, rest := range [][]domain.Question{difficult[nd:], fresh[nf:]} {
		room := BatchSize - len(batch)
		if room <= 0 {
			break
		}
		batch = append(batch, rest[:min(room, len(rest))]...)
	}
	return batch
}

// Progress summarises how far a question set has come.
type Progress struct {
	Total   int `json:"total"`
	Learned int `json:"learned"`
	// Percent weights each question by how far its score has dropped
	// below the initial score.
	Percent          int               `json:"progress"`
	LearnedQuestions []domain.Question `json:"learned_words"`
}

// Progress computes the summary over all questions carrying tag, or all
// questions when tag is empty.
func (e *Engine) Progress(ctx context.Context, tag string) (Progress, error) {
	tag = domain.NormalizeTag(tag)
	qs, err := e.src.FindQuestions(ctx, domain.QuestionFilter{Tag: tag, Order: domain.OrderNewestFirst})
	if err != nil {
		return Progress{}, fmt.Errorf("failed to load questions for progress: %w", err)
	}
	return Summarize(qs), nil
}

// Summarize computes Progress over qs.
func Summarize(qs []domain.Question) Progress {
	p := Progress{Total: len(qs), LearnedQuestions: []domain.Question{}}
	if len(qs) == 0 {
		return p
	}
	var sum float64
	for _, q := range qs {
		sum += math.Max(0, (scoring.InitialScore-q.Score)/scoring.InitialScore)
		if scoring.IsLearned(q.Score) {
			p.Learned++
			p.LearnedQuestions = append(p.LearnedQuestions, q)
		}
	}
	p.Percent = int(math.Round(sum / float64(len(qs)) * 100))
	return p
}
