package memory

import (
	"context"
	"sync"
	"time"

	"quiz-hosting-service/internal/domain"
)

// QuizRepository keeps quizzes in process memory (useful for tests/demos).
type QuizRepository struct {
	clock func() time.Time

	mu      sync.RWMutex
	nextID  int64
	quizzes map[int64]domain.Quiz
	order   []int64
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{
		clock:   time.Now,
		quizzes: make(map[int64]domain.Quiz),
	}
}

// NewQuizRepositoryWithClock is test-only for deterministic timestamps.
func NewQuizRepositoryWithClock(now func() time.Time) *QuizRepository {
	r := NewQuizRepository()
	r.clock = now
	return r
}

// CreateQuiz assigns IDs from a single sequence shared by quizzes, questions and options.
func (r *QuizRepository) CreateQuiz(_ context.Context, in domain.NewQuiz) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	quiz := domain.Quiz{
		ID:        r.allocLocked(),
		Title:     in.Title,
		CreatedAt: r.clock().UTC(),
		Questions: make([]domain.Question, 0, len(in.Questions)),
	}
	for _, nq := range in.Questions {
		question := domain.Question{
			ID:      r.allocLocked(),
			QuizID:  quiz.ID,
			Text:    nq.Text,
			Options: make([]domain.Option, 0, len(nq.Options)),
		}
		for _, no := range nq.Options {
			question.Options = append(question.Options, domain.Option{
				ID:         r.allocLocked(),
				QuestionID: question.ID,
				Text:       no.Text,
				IsCorrect:  no.IsCorrect,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	r.quizzes[quiz.ID] = quiz
	r.order = append(r.order, quiz.ID)
	return quiz.ID, nil
}

func (r *QuizRepository) GetQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (r *QuizRepository) ListQuizzes(_ context.Context) ([]domain.QuizSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.QuizSummary, 0, len(r.order))
	for _, id := range r.order {
		q := r.quizzes[id]
		out = append(out, domain.QuizSummary{ID: q.ID, Title: q.Title, CreatedAt: q.CreatedAt})
	}
	return out, nil
}

// question looks up a question of quizID. Used by AttemptRepository.
func (r *QuizRepository) question(quizID, questionID int64) (domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return domain.Question{}, false
	}
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return domain.Question{}, false
}

func (r *QuizRepository) allocLocked() int64 {
	r.nextID++
	return r.nextID
}

// cloneQuiz copies nested slices so callers cannot mutate stored state.
func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]domain.Option(nil), question.Options...)
		out.Questions[i] = question
	}
	return out
}
