// Package recordstore is the server of record: the authoritative question
// set and attempt log, stored through gorm in PostgreSQL or SQLite.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/conorfennell/flashsync/internal/domain"
	"github.com/conorfennell/flashsync/internal/remote"
	"github.com/conorfennell/flashsync/internal/scoring"
)

// Store implements remote.Client directly on the database.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ remote.Client = (*Store)(nil)

// Open connects to the record database. driver is "postgres" or "sqlite".
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported record store driver %q", driver)
	}

	debug := logger.Enabled(context.Background(), slog.LevelDebug)
	opts := []slogGorm.Option{
		slogGorm.WithHandler(logger.Handler()),
		slogGorm.WithSlowThreshold(500 * time.Millisecond),
	}
	level := gormlogger.Warn
	if debug {
		opts = append(opts, slogGorm.WithTraceAll())
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  slogGorm.New(opts...).LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping record store: %w", err)
	}
	if driver == "postgres" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		sqlDB.SetMaxOpenConns(1)
	}

	s, err := New(db, logger)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	logger.Info("Record store opened", "driver", driver)
	return s, nil
}

// New wraps an open gorm connection and migrates the tables.
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if err := db.AutoMigrate(&questionModel{}, &attemptModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate record store: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PullQuestions returns a page of questions, newest first. limit is capped
// at remote.MaxPageSize.
func (s *Store) PullQuestions(ctx context.Context, offset, limit int) ([]domain.Question, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", domain.ErrInvalidInput, offset)
	}
	if limit <= 0 || limit > remote.MaxPageSize {
		limit = remote.MaxPageSize
	}

	var rows []questionModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to pull questions: %w", err)
	}
	return questionsToDomain(rows), nil
}

// PushQuestionUpdates overwrites score, last review and tags by id. Ids
// the store does not know are skipped so that a question deleted here does
// not block the client's push forever.
func (s *Store) PushQuestionUpdates(ctx context.Context, updates []domain.QuestionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			res := tx.Model(&questionModel{ID: u.ID}).
				Select("score", "last_reviewed_at", "tags").
				Updates(questionModel{
					Score:          scoring.Clamp(u.Score),
					LastReviewedAt: utc(u.LastReviewedAt),
					Tags:           domain.NormalizeTags(u.Tags),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to update question %s: %w", u.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				s.logger.WarnContext(ctx, "Skipping update for unknown question", "id", u.ID)
			}
		}
		return nil
	})
}

// PushNewAttempts appends attempts to the log under fresh ids.
func (s *Store) PushNewAttempts(ctx context.Context, attempts []domain.AttemptRecord) error {
	if len(attempts) == 0 {
		return nil
	}
	rows := make([]attemptModel, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, attemptModel{
			ID:         uuid.NewString(),
			QuestionID: a.QuestionID,
			Correct:    a.Correct,
			AnsweredAt: a.AnsweredAt.UTC(),
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("failed to insert %d attempts: %w", len(rows), err)
	}
	return nil
}

// CreateQuestion validates and stores a question under the caller's id, or
// a generated one. A repeated create of an existing id returns the stored
// row unchanged.
func (s *Store) CreateQuestion(ctx context.Context, nq domain.NewQuestion) (*domain.Question, error) {
	nq = nq.Normalize()
	if err := nq.Validate(); err != nil {
		return nil, err
	}
	m := fromDomain(nq.Build(s.now()))

	var stored questionModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
			return err
		}
		return tx.First(&stored, "id = ?", m.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create question %s: %w", m.ID, err)
	}
	q := stored.toDomain()
	return &q, nil
}

// DeleteQuestion removes a question. Its attempts stay in the log.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&questionModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete question %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// RecordAnswerAndRescore checks answer, rescores the question and logs the
// attempt in one transaction.
func (s *Store) RecordAnswerAndRescore(ctx context.Context, questionID, answer string) (*domain.AnswerResult, error) {
	var result domain.AnswerResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m questionModel
		if err := tx.First(&m, "id = ?", questionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("question %s: %w", questionID, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to load question %s: %w", questionID, err)
		}

		correct := scoring.IsAnswerCorrect(answer, m.Answer)
		newScore := scoring.CalculateNewScore(m.Score, correct)
		now := s.now()

		err := tx.Model(&questionModel{ID: m.ID}).Updates(map[string]any{
			"score":            newScore,
			"last_reviewed_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to rescore question %s: %w", questionID, err)
		}
		attempt := attemptModel{ID: uuid.NewString(), QuestionID: m.ID, Correct: correct, AnsweredAt: now}
		if err := tx.Create(&attempt).Error; err != nil {
			return fmt.Errorf("failed to log attempt for %s: %w", questionID, err)
		}

		result = domain.AnswerResult{Correct: correct, NewScore: newScore, CorrectAnswer: m.Answer}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplyGameResults stores the scores reached in a finished game and logs an
// attempt per result. Either all results apply or none do.
func (s *Store) ApplyGameResults(ctx context.Context, results []domain.GameResult) error {
	for _, r := range results {
		if err := domain.Validate(r); err != nil {
			return err
		}
	}
	if len(results) == 0 {
		return nil
	}

	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range results {
			res := tx.Model(&questionModel{ID: r.QuestionID}).Updates(map[string]any{
				"score":            scoring.Clamp(r.NewScore),
				"last_reviewed_at": now,
			})
			if res.Error != nil {
				return fmt.Errorf("failed to apply result for %s: %w", r.QuestionID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("question %s: %w", r.QuestionID, domain.ErrNotFound)
			}
			attempt := attemptModel{ID: uuid.NewString(), QuestionID: r.QuestionID, Correct: r.Correct, AnsweredAt: now}
			if err := tx.Create(&attempt).Error; err != nil {
				return fmt.Errorf("failed to log attempt for %s: %w", r.QuestionID, err)
			}
		}
		return nil
	})
}

// FindQuestions runs a predicate query with sort and limit.
func (s *Store) FindQuestions(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, error) {
	tx := s.db.WithContext(ctx).Model(&questionModel{})
	if where, args := f.Band.SQL(); where != "" {
		tx = tx.Where(where, args...)
	}
	if f.Tag != "" {
		tx = tx.Where(`tags LIKE ? ESCAPE '\'`, tagPattern(f.Tag))
	}
	tx = tx.Order(f.Order.SQL())
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}

	var rows []questionModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	return questionsToDomain(rows), nil
}

// ListQuestions returns every question, newest first, optionally with a tag.
func (s *Store) ListQuestions(ctx context.Context, tag string) ([]domain.Question, error) {
	return s.FindQuestions(ctx, domain.QuestionFilter{Tag: tag, Order: domain.OrderNewestFirst})
}

// AttemptCount returns the number of logged attempts for a question.
func (s *Store) AttemptCount(ctx context.Context, questionID string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&attemptModel{}).Where("question_id = ?", questionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count attempts for %s: %w", questionID, err)
	}
	return n, nil
}

// Tags lists the distinct tags in use, sorted.
func (s *Store) Tags(ctx context.Context) ([]string, error) {
	var rows []questionModel
	if err := s.db.WithContext(ctx).Select("tags").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	seen := map[string]bool{}
	var tags []string
	for _, r := range rows {
		for _, t := range r.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	slices.Sort(tags)
	return tags, nil
}

// tagPattern matches the JSON-encoded tag inside the serialized tag list.
func tagPattern(tag string) string {
	b, _ := json.Marshal(tag)
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(string(b))
	return "%" + escaped + "%"
}

func questionsToDomain(rows []questionModel) []domain.Question {
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
