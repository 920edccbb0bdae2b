package deck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashsync/internal/domain"
)

type recordingCreator struct {
	created []domain.NewQuestion
	fail    map[string]bool
}

func (r *recordingCreator) CreateQuestion(_ context.Context, nq domain.NewQuestion) (*domain.Question, error) {
	if r.fail[nq.Prompt] {
		return nil, errors.New("boom")
	}
	r.created = append(r.created, nq)
	return &domain.Question{ID: nq.Prompt, Prompt: nq.Prompt, Answer: nq.Answer}, nil
}

func TestImport(t *testing.T) {
	cards := []Card{
		{Prompt: "Haus", Answer: "house", Tags: []string{"nouns"}},
		{Prompt: "Hund", Answer: "dog"},
		{Prompt: " haus ", Answer: "House"}, // same card, different spelling
		{Prompt: "Katze", Answer: "cat"},
		{Prompt: "Maus", Answer: "mouse"},
	}
	existing := []domain.Question{{ID: "x", Prompt: "HUND", Answer: "dog"}}
	creator := &recordingCreator{fail: map[string]bool{"Maus": true}}

	res, err := Import(context.Background(), creator, cards, existing, []string{"german"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0].Error(), "Maus")

	require.Len(t, creator.created, 2)
	assert.Equal(t, "Haus", creator.created[0].Prompt)
	assert.Equal(t, []string{"nouns", "german"}, creator.created[0].Tags)
	assert.Equal(t, "Katze", creator.created[1].Prompt)
}

func TestImportStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	creator := &recordingCreator{}
	_, err := Import(ctx, creator, []Card{{Prompt: "a", Answer: "b"}}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, creator.created)
}
