package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-hosting-service/internal/domain"
)

// QuizStore persists quizzes, questions and options in Postgres.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

// CreateQuiz inserts the quiz and all of its questions and options in one transaction.
func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.NewQuiz) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create quiz: %w", err)
	}
	defer tx.Rollback(ctx)

	var quizID int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO quizzes (title, created_at) VALUES ($1, now()) RETURNING id`,
		quiz.Title,
	).Scan(&quizID); err != nil {
		return 0, fmt.Errorf("insert quiz: %w", err)
	}

	for qPos, question := range quiz.Questions {
		var questionID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (quiz_id, question_text, position) VALUES ($1, $2, $3) RETURNING id`,
			quizID, question.Text, qPos,
		).Scan(&questionID); err != nil {
			return 0, fmt.Errorf("insert question: %w", err)
		}
		for oPos, opt := range question.Options {
			if _, err := tx.Exec(ctx,
				`INSERT INTO options (question_id, option_text, is_correct, position) VALUES ($1, $2, $3, $4)`,
				questionID, opt.Text, opt.IsCorrect, oPos,
			); err != nil {
				return 0, fmt.Errorf("insert option: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create quiz: %w", err)
	}
	return quizID, nil
}

// GetQuiz loads a quiz with questions and options in creation order.
func (s *QuizStore) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz := domain.Quiz{ID: quizID}
	err := s.pool.QueryRow(ctx, `SELECT title, created_at FROM quizzes WHERE id=$1`, quizID).
		Scan(&quiz.Title, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.CreatedAt = quiz.CreatedAt.UTC()

	rows, err := s.pool.Query(ctx,
		`SELECT q.id, q.question_text, o.id, o.option_text, o.is_correct
		 FROM questions q
		 JOIN options o ON o.question_id = q.id
		 WHERE q.quiz_id = $1
		 ORDER BY q.position, o.position`,
		quizID,
	)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	quiz.Questions = make([]domain.Question, 0)
	for rows.Next() {
		var (
			questionID int64
			text       string
			opt        domain.Option
		)
		if err := rows.Scan(&questionID, &text, &opt.ID, &opt.Text, &opt.IsCorrect); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		n := len(quiz.Questions)
		if n == 0 || quiz.Questions[n-1].ID != questionID {
			quiz.Questions = append(quiz.Questions, domain.Question{ID: questionID, QuizID: quizID, Text: text})
			n++
		}
		opt.QuestionID = questionID
		quiz.Questions[n-1].Options = append(quiz.Questions[n-1].Options, opt)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, created_at FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizSummary, 0)
	for rows.Next() {
		var q domain.QuizSummary
		if err := rows.Scan(&q.ID, &q.Title, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		q.CreatedAt = q.CreatedAt.UTC()
		out = append(out, q)
	}
	return out, rows.Err()
}
