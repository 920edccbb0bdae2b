// Package storage is the local replica: a SQLite file holding questions and
// attempts together with their sync bookkeeping.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/flashsync/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and migrates the schema.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers; SQLite allows one anyway and
	// it keeps in-memory databases shared.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// QuestionPatch lists the fields to change on a question. Nil fields are
// left alone.
type QuestionPatch struct {
	Score          *float64
	LastReviewedAt *time.Time
	Tags           []string
	Dirty          *bool
}

const questionColumns = `id, question_text, answer, description, score, created_at, last_reviewed_at, tags, dirty, pending_create, local_rev`

// InsertQuestion inserts a new question row.
func (db *DB) InsertQuestion(ctx context.Context, q domain.Question) error {
	tags, err := encodeTags(q.Tags)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		q.ID,
		q.Prompt,
		q.Answer,
		nullString(q.Description),
		q.Score,
		toMillis(q.CreatedAt),
		nullMillis(q.LastReviewedAt),
		tags,
		q.Dirty,
		q.PendingCreate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
	}
	return nil
}

// FindQuestion retrieves a question by id.
func (db *DB) FindQuestion(ctx context.Context, id string) (*domain.Question, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find question %s: %w", id, err)
	}
	return q, nil
}

// PatchQuestion applies p to a single row and bumps its local revision.
func (db *DB) PatchQuestion(ctx context.Context, id string, p QuestionPatch) error {
	sets := []string{"local_rev = local_rev + 1"}
	var args []any
	if p.Score != nil {
		sets = append(sets, "score = ?")
		args = append(args, *p.Score)
	}
	if p.LastReviewedAt != nil {
		sets = append(sets, "last_reviewed_at = ?")
		args = append(args, toMillis(*p.LastReviewedAt))
	}
	if p.Tags != nil {
		tags, err := encodeTags(p.Tags)
		if err != nil {
			return err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	if p.Dirty != nil {
		sets = append(sets, "dirty = ?")
		args = append(args, *p.Dirty)
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx, `UPDATE questions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to patch question %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// UpsertQuestions writes pulled questions. Remote values overwrite local
// ones and the local bookkeeping is reset, so a not-yet-pushed local edit
// of the same row is lost.
func (db *DB) UpsertQuestions(ctx context.Context, questions []domain.Question) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 1)
		ON CONFLICT(id) DO UPDATE SET
			question_text = excluded.question_text,
			answer = excluded.answer,
			description = excluded.description,
			score = excluded.score,
			created_at = excluded.created_at,
			last_reviewed_at = excluded.last_reviewed_at,
			tags = excluded.tags,
			dirty = 0,
			pending_create = 0,
			local_rev = questions.local_rev + 1
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, q := range questions {
		tags, err := encodeTags(q.Tags)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx,
			q.ID,
			q.Prompt,
			q.Answer,
			nullString(q.Description),
			q.Score,
			toMillis(q.CreatedAt),
			nullMillis(q.LastReviewedAt),
			tags,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert question %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return len(questions), nil
}

// DeleteQuestion removes a question. Attempts referencing it are kept.
func (db *DB) DeleteQuestion(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// FindQuestions runs a predicate query with sort and limit.
func (db *DB) FindQuestions(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, error) {
	var where []string
	var args []any
	if clause, bandArgs := f.Band.SQL(); clause != "" {
		where = append(where, clause)
		args = append(args, bandArgs...)
	}
	if f.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(questions.tags) WHERE json_each.value = ?)`)
		args = append(args, f.Tag)
	}

	query := `SELECT ` + questionColumns + ` FROM questions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY ` + f.Order.SQL()
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	return db.queryQuestions(ctx, query, args...)
}

// DirtyQuestions returns every question with a local change not yet pushed.
func (db *DB) DirtyQuestions(ctx context.Context) ([]domain.Question, error) {
	return db.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions WHERE dirty = 1 ORDER BY created_at ASC, id ASC`)
}

// PendingCreates returns questions created locally whose remote create has
// not been confirmed.
func (db *DB) PendingCreates(ctx context.Context) ([]domain.Question, error) {
	return db.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions WHERE pending_create = 1 ORDER BY created_at ASC, id ASC`)
}

// ClearDirty clears the dirty flag on the given snapshot rows, skipping any
// row whose revision moved since the snapshot was read. It returns the
// number of rows cleared.
func (db *DB) ClearDirty(ctx context.Context, snapshot []domain.Question) (int, error) {
	cleared := 0
	for _, q := range snapshot {
		res, err := db.conn.ExecContext(ctx, `UPDATE questions SET dirty = 0 WHERE id = ? AND local_rev = ?`, q.ID, q.Revision)
		if err != nil {
			return cleared, fmt.Errorf("failed to clear dirty flag on %s: %w", q.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return cleared, fmt.Errorf("failed to read rows affected for %s: %w", q.ID, err)
		}
		cleared += int(n)
	}
	return cleared, nil
}

// MarkCreated records that the remote store now has the question.
func (db *DB) MarkCreated(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `UPDATE questions SET pending_create = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark question %s created: %w", id, err)
	}
	return nil
}

// Tags lists the distinct tags in use, sorted.
func (db *DB) Tags(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT json_each.value
		FROM questions, json_each(questions.tags)
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// InsertAttempt appends an attempt to the local log.
func (db *DB) InsertAttempt(ctx context.Context, a domain.Attempt) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO attempts (id, question_id, correct, answered_at, synced)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.QuestionID, a.Correct, toMillis(a.AnsweredAt), a.Synced)
	if err != nil {
		return fmt.Errorf("failed to insert attempt %s: %w", a.ID, err)
	}
	return nil
}

// UnsyncedAttempts returns attempts not yet pushed, oldest first.
func (db *DB) UnsyncedAttempts(ctx context.Context) ([]domain.Attempt, error) {
	return db.queryAttempts(ctx, `
		SELECT id, question_id, correct, answered_at, synced
		FROM attempts WHERE synced = 0
		ORDER BY answered_at ASC, id ASC
	`)
}

// AttemptsForQuestion returns the attempt history of one question.
func (db *DB) AttemptsForQuestion(ctx context.Context, questionID string) ([]domain.Attempt, error) {
	return db.queryAttempts(ctx, `
		SELECT id, question_id, correct, answered_at, synced
		FROM attempts WHERE question_id = ?
		ORDER BY answered_at ASC, id ASC
	`, questionID)
}

// MarkAttemptsSynced sets synced on the given attempts.
func (db *DB) MarkAttemptsSynced(ctx context.Context, ids []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin marking attempts: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE attempts SET synced = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to mark attempt %s synced: %w", id, err)
		}
	}
	return tx.Commit()
}

func (db *DB) queryQuestions(ctx context.Context, query string, args ...any) ([]domain.Question, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func (db *DB) queryAttempts(ctx context.Context, query string, args ...any) ([]domain.Attempt, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var answeredAt int64
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Correct, &answeredAt, &a.Synced); err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		a.AnsweredAt = fromMillis(answeredAt)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s scanner) (*domain.Question, error) {
	var q domain.Question
	var description sql.NullString
	var createdAt int64
	var lastReviewed sql.NullInt64
	var tags string

	if err := s.Scan(
		&q.ID,
		&q.Prompt,
		&q.Answer,
		&description,
		&q.Score,
		&createdAt,
		&lastReviewed,
		&tags,
		&q.Dirty,
		&q.PendingCreate,
		&q.Revision,
	); err != nil {
		return nil, err
	}

	if description.Valid {
		d := description.String
		q.Description = &d
	}
	q.CreatedAt = fromMillis(createdAt)
	if lastReviewed.Valid {
		t := fromMillis(lastReviewed.Int64)
		q.LastReviewedAt = &t
	}
	if err := json.Unmarshal([]byte(tags), &q.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags of %s: %w", q.ID, err)
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}
	return &q, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

// Timestamps are stored as Unix milliseconds so that ordering in SQL is
// numeric.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
