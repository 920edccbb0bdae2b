package deck

import (
	"context"
	"fmt"
	"slices"

	"github.com/conorfennell/flashsync/internal/domain"
)

// Creator adds a question to the question set.
type Creator interface {
	CreateQuestion(ctx context.Context, nq domain.NewQuestion) (*domain.Question, error)
}

// ImportResult counts what an import did.
type ImportResult struct {
	Created int
	Skipped int
	Failed  []error
}

// Import creates every card whose fingerprint is not already present among
// existing questions or earlier cards. extraTags are added to each card.
// A card that fails to create is recorded and the import continues; only
// context cancellation stops it early.
func Import(ctx context.Context, c Creator, cards []Card, existing []domain.Question, extraTags []string) (ImportResult, error) {
	seen := make(map[string]bool, len(existing)+len(cards))
	for _, q := range existing {
		seen[Fingerprint(q.Prompt, q.Answer)] = true
	}

	var res ImportResult
	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fp := card.Fingerprint()
		if seen[fp] {
			res.Skipped++
			continue
		}
		seen[fp] = true

		nq := card.NewQuestion()
		nq.Tags = slices.Concat(nq.Tags, extraTags)
		if _, err := c.CreateQuestion(ctx, nq); err != nil {
			res.Failed = append(res.Failed, fmt.Errorf("card %q: %w", card.Prompt, err))
			continue
		}
		res.Created++
	}
	return res, nil
}
