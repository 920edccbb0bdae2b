// Package sync reconciles the local replica with the remote store: an
// initial pull, a periodic push of dirty rows and unsynced attempts, and the
// local-first write paths used by the client.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/flashsync/internal/domain"
	"github.com/conorfennell/flashsync/internal/remote"
	"github.com/conorfennell/flashsync/internal/scoring"
	"github.com/conorfennell/flashsync/internal/storage"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultPageSize = remote.MaxPageSize
)

// Options tune a Coordinator. Zero values take the defaults.
type Options struct {
	Interval time.Duration
	PageSize int
	Logger   *slog.Logger
	Now      func() time.Time
}

// Coordinator owns the sync state of one client session.
type Coordinator struct {
	db       *storage.DB
	remote   remote.Client
	logger   *slog.Logger
	interval time.Duration
	pageSize int
	now      func() time.Time

	trigger chan struct{}
	// pushMu serialises push cycles; attempts are not idempotent remotely.
	pushMu stdsync.Mutex
}

func New(db *storage.DB, client remote.Client, opts Options) *Coordinator {
	c := &Coordinator{
		db:       db,
		remote:   client,
		logger:   opts.Logger,
		interval: opts.Interval,
		pageSize: opts.PageSize,
		now:      opts.Now,
		trigger:  make(chan struct{}, 1),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.pageSize <= 0 || c.pageSize > remote.MaxPageSize {
		c.pageSize = DefaultPageSize
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// InitialSync pulls the whole question set page by page and upserts it into
// the replica. Pulled rows overwrite local values and lose their dirty flag.
func (c *Coordinator) InitialSync(ctx context.Context) (int, error) {
	c.logger.Info("Starting initial sync", "page_size", c.pageSize)

	var pulled []domain.Question
	for offset := 0; ; {
		page, err := c.remote.PullQuestions(ctx, offset, c.pageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to pull questions: %w", err)
		}
		pulled = append(pulled, page...)
		if len(page) < c.pageSize {
			break
		}
		offset += len(page)
	}

	questions := Dedupe(pulled)
	n, err := c.db.UpsertQuestions(ctx, questions)
	if err != nil {
		return 0, fmt.Errorf("failed to store pulled questions: %w", err)
	}

	c.logger.Info("Initial sync complete", "pulled", len(pulled), "stored", n)
	return n, nil
}

// Dedupe drops repeated ids. The last occurrence's values win and the
// first occurrence's position is kept.
func Dedupe(questions []domain.Question) []domain.Question {
	index := make(map[string]int, len(questions))
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if i, ok := index[q.ID]; ok {
			out[i] = q
			continue
		}
		index[q.ID] = len(out)
		out = append(out, q)
	}
	return out
}

// PushResult counts what one push cycle delivered.
type PushResult struct {
	Created  int
	Updated  int
	Attempts int
}

// Push sends pending creates, dirty questions and unsynced attempts to the
// remote store. Flags are cleared only after the remote call succeeds, so a
// failed step is retried by the next cycle. The three steps are independent;
// the returned error joins whichever of them failed.
func (c *Coordinator) Push(ctx context.Context) (PushResult, error) {
	c.pushMu.Lock()
	defer c.pushMu.Unlock()

	var res PushResult
	var errs []error

	created, err := c.pushCreates(ctx)
	res.Created = created
	if err != nil {
		errs = append(errs, err)
	}

	updated, err := c.pushUpdates(ctx)
	res.Updated = updated
	if err != nil {
		errs = append(errs, err)
	}

	attempts, err := c.pushAttempts(ctx)
	res.Attempts = attempts
	if err != nil {
		errs = append(errs, err)
	}

	if res != (PushResult{}) {
		c.logger.Info("Pushed local changes", "created", res.Created, "updated", res.Updated, "attempts", res.Attempts)
	}
	return res, errors.Join(errs...)
}

func (c *Coordinator) pushCreates(ctx context.Context) (int, error) {
	pending, err := c.db.PendingCreates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read pending creates: %w", err)
	}

	created := 0
	var errs []error
	for _, q := range pending {
		if _, err := c.remote.CreateQuestion(ctx, newQuestionFrom(q)); err != nil {
			errs = append(errs, fmt.Errorf("failed to create question %s remotely: %w", q.ID, err))
			continue
		}
		if err := c.db.MarkCreated(ctx, q.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		created++
	}
	return created, errors.Join(errs...)
}

func (c *Coordinator) pushUpdates(ctx context.Context) (int, error) {
	dirty, err := c.db.DirtyQuestions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read dirty questions: %w", err)
	}

	// A question the remote store does not have yet would be skipped there
	// and its score lost, so it waits for its create.
	snapshot := dirty[:0]
	for _, q := range dirty {
		if !q.PendingCreate {
			snapshot = append(snapshot, q)
		}
	}
	if len(snapshot) == 0 {
		return 0, nil
	}

	updates := make([]domain.QuestionUpdate, len(snapshot))
	for i, q := range snapshot {
		updates[i] = q.Update()
	}
	if err := c.remote.PushQuestionUpdates(ctx, updates); err != nil {
		return 0, fmt.Errorf("failed to push %d dirty questions: %w", len(updates), err)
	}

	cleared, err := c.db.ClearDirty(ctx, snapshot)
	if err != nil {
		return cleared, err
	}
	if cleared < len(snapshot) {
		c.logger.Debug("Questions changed during push stay dirty", "count", len(snapshot)-cleared)
	}
	return len(snapshot), nil
}

func (c *Coordinator) pushAttempts(ctx context.Context) (int, error) {
	unsynced, err := c.db.UnsyncedAttempts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read unsynced attempts: %w", err)
	}
	if len(unsynced) == 0 {
		return 0, nil
	}

	records := make([]domain.AttemptRecord, len(unsynced))
	ids := make([]string, len(unsynced))
	for i, a := range unsynced {
		records[i] = a.Record()
		ids[i] = a.ID
	}
	if err := c.remote.PushNewAttempts(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to push %d attempts: %w", len(records), err)
	}
	if err := c.db.MarkAttemptsSynced(ctx, ids); err != nil {
		return 0, err
	}
	return len(unsynced), nil
}

// Trigger requests a push cycle as soon as the background loop is free.
// Requests made while one is already queued are merged.
func (c *Coordinator) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run pushes on every interval tick and on Trigger until ctx is cancelled.
// A cycle already running when ctx is cancelled is allowed to finish.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("Background sync started", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Background sync stopped")
			return
		case <-ticker.C:
		case <-c.trigger:
		}
		if ctx.Err() != nil {
			continue
		}
		if _, err := c.Push(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("Push failed, will retry next cycle", "error", err)
		}
	}
}

// Start runs the background loop in a goroutine. The returned stop function
// cancels it and waits for an in-flight push to finish.
func (c *Coordinator) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// CreateQuestion stores a new question locally and then tries to create it
// remotely. A failed remote create is retried by the next push.
func (c *Coordinator) CreateQuestion(ctx context.Context, nq domain.NewQuestion) (*domain.Question, error) {
	nq = nq.Normalize()
	if err := nq.Validate(); err != nil {
		return nil, err
	}

	q := nq.Build(c.now())
	q.Dirty = true
	q.PendingCreate = true
	if err := c.db.InsertQuestion(ctx, q); err != nil {
		return nil, err
	}

	nq.ID = q.ID
	nq.CreatedAt = &q.CreatedAt
	if _, err := c.remote.CreateQuestion(ctx, nq); err != nil {
		c.logger.Warn("Remote create failed, will retry on next push", "id", q.ID, "error", err)
		return &q, nil
	}
	if err := c.db.MarkCreated(ctx, q.ID); err != nil {
		c.logger.Warn("Failed to record remote create", "id", q.ID, "error", err)
		return &q, nil
	}
	q.PendingCreate = false
	return &q, nil
}

// Answer scores userInput against a replica question, marks it dirty and
// appends an unsynced attempt.
func (c *Coordinator) Answer(ctx context.Context, questionID, userInput string) (*domain.AnswerResult, error) {
	q, err := c.db.FindQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	correct := scoring.IsAnswerCorrect(userInput, q.Answer)
	newScore := scoring.CalculateNewScore(q.Score, correct)
	now := c.now()
	dirty := true

	if err := c.db.PatchQuestion(ctx, q.ID, storage.QuestionPatch{
		Score:          &newScore,
		LastReviewedAt: &now,
		Dirty:          &dirty,
	}); err != nil {
		return nil, err
	}
	if err := c.db.InsertAttempt(ctx, domain.Attempt{
		ID:         uuid.NewString(),
		QuestionID: q.ID,
		Correct:    correct,
		AnsweredAt: now,
	}); err != nil {
		return nil, err
	}

	return &domain.AnswerResult{Correct: correct, NewScore: newScore, CorrectAnswer: q.Answer}, nil
}

// DeleteQuestion removes a question locally and then remotely. The remote
// delete is best effort; ErrNotFound is returned only when neither side had
// the question.
func (c *Coordinator) DeleteQuestion(ctx context.Context, id string) error {
	localErr := c.db.DeleteQuestion(ctx, id)
	if localErr != nil && !errors.Is(localErr, domain.ErrNotFound) {
		return localErr
	}

	if err := c.remote.DeleteQuestion(ctx, id); err != nil {
		if localErr != nil {
			return localErr
		}
		c.logger.Warn("Remote delete failed", "id", id, "error", err)
	}
	return nil
}

func newQuestionFrom(q domain.Question) domain.NewQuestion {
	return domain.NewQuestion{
		ID:          q.ID,
		Prompt:      q.Prompt,
		Answer:      q.Answer,
		Description: q.Description,
		Tags:        q.Tags,
		CreatedAt:   &q.CreatedAt,
	}
}
