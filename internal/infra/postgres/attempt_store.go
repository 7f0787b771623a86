package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-hosting-service/internal/app"
	"quiz-hosting-service/internal/domain"
)

// AttemptStore persists attempts and answers in Postgres.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

// RunInTx runs fn in a read-committed transaction. Readers never see an attempt
// before its answers and final score are committed together.
func (s *AttemptStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.AttemptTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin attempt tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &attemptTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit attempt tx: %w", err)
	}
	return nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, quizID int64) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, score, created_at FROM quiz_attempts WHERE quiz_id = $1 ORDER BY id`,
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Attempt, 0)
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.QuizID, &a.Score, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AttemptStore) ListAnswers(ctx context.Context, quizID int64) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT qa.id, qa.attempt_id, qa.question_id, qa.selected_option_id
		 FROM quiz_answers qa
		 JOIN quiz_attempts a ON a.id = qa.attempt_id
		 WHERE a.quiz_id = $1
		 ORDER BY qa.attempt_id, qa.id`,
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Answer, 0)
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedOptionID); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type attemptTx struct {
	tx pgx.Tx
}

func (t *attemptTx) CreateAttempt(ctx context.Context, quizID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO quiz_attempts (quiz_id, score, created_at) VALUES ($1, 0, now()) RETURNING id`,
		quizID,
	).Scan(&id)
	return id, err
}

func (t *attemptTx) CorrectOption(ctx context.Context, quizID, questionID int64) (int64, error) {
	var optionID int64
	err := t.tx.QueryRow(ctx,
		`SELECT o.id
		 FROM options o
		 JOIN questions q ON q.id = o.question_id
		 WHERE q.id = $1 AND q.quiz_id = $2 AND o.is_correct
		 ORDER BY o.position
		 LIMIT 1`,
		questionID, quizID,
	).Scan(&optionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrQuestionNotFound
	}
	return optionID, err
}

func (t *attemptTx) InsertAnswer(ctx context.Context, answer domain.Answer) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO quiz_answers (attempt_id, question_id, selected_option_id) VALUES ($1, $2, $3)`,
		answer.AttemptID, answer.QuestionID, answer.SelectedOptionID,
	)
	return err
}

func (t *attemptTx) SetScore(ctx context.Context, attemptID int64, score int) error {
	_, err := t.tx.Exec(ctx, `UPDATE quiz_attempts SET score = $1 WHERE id = $2`, score, attemptID)
	return err
}
