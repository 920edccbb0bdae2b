package domain

import "github.com/conorfennell/flashsync/internal/scoring"

// ScoreBand selects questions by score.
type ScoreBand int

const (
	BandAll       ScoreBand = iota
	BandActive              // not learned: score > 0
	BandDifficult           // score >= threshold
	BandFresh               // 0 < score < threshold
	BandLearned             // score <= 0
)

// Contains reports whether score falls in the band.
func (b ScoreBand) Contains(score float64) bool {
	switch b {
	case BandActive:
		return score > scoring.MinScore
	case BandDifficult:
		return score > scoring.MinScore && scoring.IsDifficult(score)
	case BandFresh:
		return score > scoring.MinScore && !scoring.IsDifficult(score)
	case BandLearned:
		return scoring.IsLearned(score)
	default:
		return true
	}
}

// SQL returns a WHERE fragment over a "score" column selecting the band,
// with '?' placeholders. It is empty for BandAll.
func (b ScoreBand) SQL() (string, []any) {
	switch b {
	case BandActive:
		return "score > ?", []any{scoring.MinScore}
	case BandDifficult:
		return "score >= ? AND score > ?", []any{scoring.DifficultThreshold, scoring.MinScore}
	case BandFresh:
		return "score > ? AND score < ?", []any{scoring.MinScore, scoring.DifficultThreshold}
	case BandLearned:
		return "score <= ?", []any{scoring.MinScore}
	default:
		return "", nil
	}
}

// Order is the sort applied to a question query.
type Order int

const (
	// OrderLeastRecentlyReviewed sorts by last review ascending with
	// never-reviewed questions first.
	OrderLeastRecentlyReviewed Order = iota
	// OrderNewestFirst sorts by creation time descending.
	OrderNewestFirst
)

// SQL returns the ORDER BY clause for the order. Ties break on creation
// time and id so results are deterministic.
func (o Order) SQL() string {
	if o == OrderNewestFirst {
		return "created_at DESC, id ASC"
	}
	return "last_reviewed_at IS NOT NULL, last_reviewed_at ASC, created_at ASC, id ASC"
}

// QuestionFilter is a predicate query over questions. Tag is matched
// against the lower-cased tag set; a zero Limit means no limit.
type QuestionFilter struct {
	Band  ScoreBand
	Tag   string
	Order Order
	Limit int
}

// Matches applies the band and tag predicates to q.
func (f QuestionFilter) Matches(q Question) bool {
	if !f.Band.Contains(q.Score) {
		return false
	}
	return f.Tag == "" || q.HasTag(f.Tag)
}
