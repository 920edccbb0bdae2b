package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashsync/internal/domain"
	"github.com/conorfennell/flashsync/internal/recordstore"
	"github.com/conorfennell/flashsync/internal/remote/mocks"
	"github.com/conorfennell/flashsync/internal/storage"
)

var now = time.Date(2025, 7, 1, 8, 30, 0, 0, time.UTC)

var errOffline = errors.New("network unreachable")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T, client *mocks.Client, pageSize int) (*Coordinator, *storage.DB) {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "replica.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := New(db, client, Options{
		Interval: time.Hour,
		PageSize: pageSize,
		Logger:   testLogger(),
		Now:      func() time.Time { return now },
	})
	return c, db
}

func remoteQuestion(id, prompt string, score float64) domain.Question {
	return domain.Question{ID: id, Prompt: prompt, Answer: "answer", Score: score, CreatedAt: now, Tags: []string{}}
}

func insertDirty(t *testing.T, db *storage.DB, id string, score float64) {
	t.Helper()
	q := remoteQuestion(id, "prompt "+id, score)
	q.Dirty = true
	require.NoError(t, db.InsertQuestion(context.Background(), q))
}

func updateIDs(ids ...string) any {
	return mock.MatchedBy(func(updates []domain.QuestionUpdate) bool {
		if len(updates) != len(ids) {
			return false
		}
		for i, u := range updates {
			if u.ID != ids[i] {
				return false
			}
		}
		return true
	})
}

func TestDedupeKeepsLastValueAtFirstPosition(t *testing.T) {
	got := Dedupe([]domain.Question{
		remoteQuestion("a", "first a", 4),
		remoteQuestion("b", "b", 4),
		remoteQuestion("a", "second a", 6),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "second a", got[0].Prompt)
	assert.Equal(t, 6.0, got[0].Score)
	assert.Equal(t, "b", got[1].ID)
}

func TestInitialSyncStitchesPages(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewClient(t)
	c, db := setup(t, client, 2)

	// A dirty local edit is overwritten by the pull.
	insertDirty(t, db, "b", 9)

	client.On("PullQuestions", mock.Anything, 0, 2).
		Return([]domain.Question{remoteQuestion("a", "old a", 4), remoteQuestion("b", "b", 3)}, nil).Once()
	client.On("PullQuestions", mock.Anything, 2, 2).
		Return([]domain.Question{remoteQuestion("c", "c", 5), remoteQuestion("a", "new a", 7)}, nil).Once()
	client.On("PullQuestions", mock.Anything, 4, 2).
		Return([]domain.Question{}, nil).Once()

	n, err := c.InitialSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	a, err := db.FindQuestion(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "new a", a.Prompt)
	assert.Equal(t, 7.0, a.Score)

	b, err := db.FindQuestion(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 3.0, b.Score)
	assert.False(t, b.Dirty)

	dirty, err := db.DirtyQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestInitialSyncPullFailureStoresNothing(t *testing.T) {
	client := mocks.NewClient(t)
	c, db := setup(t, client, 2)

	client.On("PullQuestions", mock.Anything, 0, 2).
		Return([]domain.Question{remoteQuestion("a", "a", 4), remoteQuestion("b", "b", 4)}, nil).Once()
	client.On("PullQuestions", mock.Anything, 2, 2).Return(nil, errOffline).Once()

	_, err := c.InitialSync(context.Background())
	assert.ErrorIs(t, err, errOffline)

	all, err := db.FindQuestions(context.Background(), domain.QuestionFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPushClearsFlagsAfterSuccess(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewClient(t)
	c, db := setup(t, client, 0)

	insertDirty(t, db, "q1", 4)
	_, err := c.Answer(ctx, "q1", "answer")
	require.NoError(t, err)

	client.On("PushQuestionUpdates", mock.Anything, updateIDs("q1")).Return(nil).Once()
	client.On("PushNewAttempts", mock.Anything, mock.MatchedBy(func(records []domain.AttemptRecord) bool {
		return len(records) == 1 && records[0].QuestionID == "q1" && records[0].Correct
	})).Return(nil).Once()

	res, err := c.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, PushResult{Updated: 1, Attempts: 1}, res)

	dirty, err := db.DirtyQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
	unsynced, err := db.UnsyncedAttempts(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)

	// Nothing left: a second cycle makes no remote calls.
	res, err = c.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, PushResult{}, res)
}

func TestPushFailureKeepsFlags(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewClient(t)
	c, db := setup(t, client, 0)

	insertDirty(t, db, "q1", 4)
	_, err := c.Answer(ctx, "q1", "wrong")
	require.NoError(t, err)

	client.On("PushQuestionUpdates", mock.Anything, updateIDs("q1")).Return(errOffline).Once()
	client.On("PushNewAttempts", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := c.Push(ctx)
	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, PushResult{Attempts: 1}, res)

	dirty, err := db.DirtyQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, 5.0, dirty[0].Score)

	// The retry succeeds and sends the same state.
	client.On("PushQuestionUpdates", mock.Anything, mock.MatchedBy(func(updates []domain.QuestionUpdate) bool {
		return len(updates) == 1 && updates[0].ID == "q1" && updates[0].Score == 5
	})).Return(nil).Once()

	res, err = c.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, PushResult{Updated: 1}, res)
}

func TestPushAttemptFailureKeepsUnsynced(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewClient(t)
	c, db := setup(t, client, 0)

	require.NoError(t, db.InsertAttempt(ctx, domain.Attempt{ID: "a1", QuestionID: "q1", AnsweredAt: now}))
	client.On("PushNewAttempts", mock.Anything, mock.Anything).Return(errOffline).Once()

	_, err := c.Push(ctx)
	assert.ErrorIs(t, err, errOffline)

	unsynced, err := db.UnsyncedAttempts(ctx)
	require.NoError(t, err)
	assert.Len(t, unsynced, 1)
}

func TestCreateQuestionWritesThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("inline create succeeds", func(t *testing.T) {
		client := mocks.NewClient(t)
		c, db := setup(t, client, 0)

		var sentID string
		client.On("CreateQuestion", mock.Anything, mock.AnythingOfType("domain.NewQuestion")).
			Run(func(args mock.Arguments) { sentID = args.Get(1).(domain.NewQuestion).ID }).
			Return(&domain.Question{}, nil).Once()

		q, err := c.CreateQuestion(ctx, domain.NewQuestion{Prompt: " Haus ", Answer: "house", Tags: []string{"Nouns"}})
		require.NoError(t, err)
		assert.Equal(t, q.ID, sentID)
		assert.Equal(t, "Haus", q.Prompt)
		assert.Equal(t, 4.0, q.Score)
		assert.False(t, q.PendingCreate)

		stored, err := db.FindQuestion(ctx, q.ID)
		require.NoError(t, err)
		assert.True(t, stored.Dirty)
		assert.False(t, stored.PendingCreate)
		assert.Equal(t, []string{"nouns"}, stored.Tags)
	})

	t.Run("offline create is retried by push", func(t *testing.T) {
		client := mocks.NewClient(t)
		c, db := setup(t, client, 0)

		client.On("CreateQuestion", mock.Anything, mock.Anything).Return(nil, errOffline).Once()
		q, err := c.CreateQuestion(ctx, domain.NewQuestion{ID: "local-1", Prompt: "Baum", Answer: "tree"})
		require.NoError(t, err, "the local write succeeds even when the remote is down")
		assert.True(t, q.PendingCreate)

		_, err = c.Answer(ctx, "local-1", "tree")
		require.NoError(t, err)

		client.On("CreateQuestion", mock.Anything, mock.MatchedBy(func(nq domain.NewQuestion) bool {
			return nq.ID == "local-1" && nq.Prompt == "Baum" && nq.CreatedAt != nil && nq.CreatedAt.Equal(now)
		})).Return(&domain.Question{ID: "local-1"}, nil).Once()
		client.On("PushQuestionUpdates", mock.Anything, mock.MatchedBy(func(updates []domain.QuestionUpdate) bool {
			return len(updates) == 1 && updates[0].ID == "local-1" && updates[0].Score == 3
		})).Return(nil).Once()
		client.On("PushNewAttempts", mock.Anything, mock.Anything).Return(nil).Once()

		res, err := c.Push(ctx)
		require.NoError(t, err)
		assert.Equal(t, PushResult{Created: 1, Updated: 1, Attempts: 1}, res)

		pending, err := db.PendingCreates(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("updates wait for a failed create", func(t *testing.T) {
		client := mocks.NewClient(t)
		c, db := setup(t, client, 0)

		client.On("CreateQuestion", mock.Anything, mock.Anything).Return(nil, errOffline).Twice()
		_, err := c.CreateQuestion(ctx, domain.NewQuestion{ID: "local-2", Prompt: "Baum", Answer: "tree"})
		require.NoError(t, err)

		_, err = c.Push(ctx)
		assert.ErrorIs(t, err, errOffline)

		dirty, err := db.DirtyQuestions(ctx)
		require.NoError(t, err)
		assert.Len(t, dirty, 1)
	})

	t.Run("validation", func(t *testing.T) {
		client := mocks.NewClient(t)
		c, db := setup(t, client, 0)

		_, err := c.CreateQuestion(ctx, domain.NewQuestion{Prompt: "  ", Answer: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		all, err := db.FindQuestions(ctx, domain.QuestionFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestAnswer(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewClient(t)
	c, db := setup(t, client, 0)
	require.NoError(t, db.InsertQuestion(ctx, remoteQuestion("q1", "laufen", 5)))

	res, err := c.Answer(ctx, "q1", "answer")
	require.NoError(t, err)
	assert.Equal(t, domain.AnswerResult{Correct: true, NewScore: 3, CorrectAnswer: "answer"}, *res)

	q, err := db.FindQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, q.Score)
	assert.True(t, q.Dirty)
	require.NotNil(t, q.LastReviewedAt)
	assert.True(t, q.LastReviewedAt.Equal(now))

	attempts, err := db.AttemptsForQuestion(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Correct)
	assert.False(t, attempts[0].Synced)

	_, err = c.Answer(ctx, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteQuestion(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewClient(t)
	c, db := setup(t, client, 0)
	require.NoError(t, db.InsertQuestion(ctx, remoteQuestion("q1", "p", 4)))

	client.On("DeleteQuestion", mock.Anything, "q1").Return(errOffline).Once()
	require.NoError(t, c.DeleteQuestion(ctx, "q1"))
	_, err := db.FindQuestion(ctx, "q1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	client.On("DeleteQuestion", mock.Anything, "nowhere").Return(domain.ErrNotFound).Once()
	assert.ErrorIs(t, c.DeleteQuestion(ctx, "nowhere"), domain.ErrNotFound)
}

func TestTriggerAndStop(t *testing.T) {
	client := mocks.NewClient(t)
	c, db := setup(t, client, 0)
	insertDirty(t, db, "q1", 6)

	pushed := make(chan struct{})
	client.On("PushQuestionUpdates", mock.Anything, updateIDs("q1")).
		Run(func(mock.Arguments) { close(pushed) }).
		Return(nil).Once()

	stop := c.Start(context.Background())
	c.Trigger()

	select {
	case <-pushed:
	case <-time.After(5 * time.Second):
		t.Fatal("triggered push did not run")
	}
	stop()

	dirty, err := db.DirtyQuestions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dirty, "stop waits for the in-flight push to finish")

	// No loop is left to act on a trigger.
	c.Trigger()
}

func TestPushAgainstRecordStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := recordstore.Open("sqlite", filepath.Join(t.TempDir(), "records.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "replica.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	c := New(db, store, Options{Logger: testLogger(), Now: func() time.Time { return now }})

	q, err := c.CreateQuestion(ctx, domain.NewQuestion{Prompt: "Haus", Answer: "house"})
	require.NoError(t, err)
	_, err = c.Answer(ctx, q.ID, "house")
	require.NoError(t, err)

	dirty, err := db.DirtyQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	updates := []domain.QuestionUpdate{dirty[0].Update()}

	// A crash after the remote write but before the flag clears pushes the
	// same row again.
	require.NoError(t, store.PushQuestionUpdates(ctx, updates))
	_, err = c.Push(ctx)
	require.NoError(t, err)

	remote, err := store.ListQuestions(ctx, "")
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, q.ID, remote[0].ID)
	assert.Equal(t, 3.0, remote[0].Score)

	n, err := store.AttemptCount(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCreatedAtSurvivesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := recordstore.Open("sqlite", filepath.Join(t.TempDir(), "records.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "replica.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	c := New(db, store, Options{Logger: testLogger(), Now: func() time.Time { return now }})

	q, err := c.CreateQuestion(ctx, domain.NewQuestion{Prompt: "Haus", Answer: "house"})
	require.NoError(t, err)

	remote, err := store.ListQuestions(ctx, "")
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.True(t, remote[0].CreatedAt.Equal(now), "remote created_at %s", remote[0].CreatedAt)

	_, err = c.InitialSync(ctx)
	require.NoError(t, err)

	local, err := db.FindQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, local.CreatedAt.Equal(now), "local created_at %s", local.CreatedAt)
}
