package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashsync/internal/scoring"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Verbs", "nouns", "", "VERBS", "  "})
	assert.Equal(t, []string{"verbs", "nouns"}, got)
	assert.Equal(t, []string{"a", "b"}, ParseTags("A, b,,a"))
}

func TestScoreBandContains(t *testing.T) {
	testCases := []struct {
		band  ScoreBand
		score float64
		want  bool
	}{
		{BandActive, 0, false},
		{BandActive, 0.5, true},
		{BandDifficult, 5, true},
		{BandDifficult, 4.5, false},
		{BandFresh, 4.5, true},
		{BandFresh, 5, false},
		{BandFresh, 0, false},
		{BandLearned, 0, true},
		{BandLearned, 1, false},
		{BandAll, 0, true},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, tc.band.Contains(tc.score), "band %d score %v", tc.band, tc.score)
	}
}

func TestQuestionFilterMatches(t *testing.T) {
	q := Question{Score: 6, Tags: []string{"verbs"}}
	assert.True(t, QuestionFilter{Band: BandDifficult, Tag: "verbs"}.Matches(q))
	assert.False(t, QuestionFilter{Band: BandDifficult, Tag: "nouns"}.Matches(q))
	assert.False(t, QuestionFilter{Band: BandFresh}.Matches(q))
}

func TestNewQuestionValidate(t *testing.T) {
	desc := "  "
	n := NewQuestion{Prompt: " Haus ", Answer: "house", Description: &desc, Tags: []string{"Nouns"}}.Normalize()
	require.NoError(t, n.Validate())
	assert.Equal(t, "Haus", n.Prompt)
	assert.Nil(t, n.Description)

	err := NewQuestion{Prompt: "   ", Answer: "x"}.Normalize().Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "prompt")
}

func TestNewQuestionBuild(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	q := NewQuestion{Prompt: "Haus", Answer: "house"}.Build(now)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, scoring.InitialScore, q.Score)
	assert.Equal(t, now, q.CreatedAt)
	assert.Nil(t, q.LastReviewedAt)
	assert.Equal(t, []string{}, q.Tags)

	q2 := NewQuestion{ID: "fixed", Prompt: "Haus", Answer: "house"}.Build(now)
	assert.Equal(t, "fixed", q2.ID)

	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	q3 := NewQuestion{Prompt: "Haus", Answer: "house", CreatedAt: &created}.Build(now)
	assert.True(t, q3.CreatedAt.Equal(created))
	assert.Equal(t, time.UTC, q3.CreatedAt.Location())
}
