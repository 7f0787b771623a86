package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-hosting-service/internal/app"
	"quiz-hosting-service/internal/domain"
)

// AttemptRepository is an in-memory implementation of app.AttemptRepository.
// Transactions are serialized and staged; nothing is visible until fn returns nil.
type AttemptRepository struct {
	quizzes *QuizRepository
	clock   func() time.Time

	txMu sync.Mutex // serializes writers

	mu       sync.RWMutex
	nextID   int64
	attempts map[int64]domain.Attempt
	answers  []domain.Answer
}

func NewAttemptRepository(quizzes *QuizRepository) *AttemptRepository {
	return &AttemptRepository{
		quizzes:  quizzes,
		clock:    time.Now,
		attempts: make(map[int64]domain.Attempt),
	}
}

// NewAttemptRepositoryWithClock is test-only for deterministic timestamps.
func NewAttemptRepositoryWithClock(quizzes *QuizRepository, now func() time.Time) *AttemptRepository {
	r := NewAttemptRepository(quizzes)
	r.clock = now
	return r
}

func (r *AttemptRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.AttemptTx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	tx := &attemptTx{repo: r, nextID: r.nextID, attempts: make(map[int64]domain.Attempt)}
	r.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID = tx.nextID
	for id, attempt := range tx.attempts {
		r.attempts[id] = attempt
	}
	r.answers = append(r.answers, tx.answers...)
	return nil
}

// ListAttempts returns committed attempts of a quiz ordered by ID.
func (r *AttemptRepository) ListAttempts(_ context.Context, quizID int64) ([]domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range r.attempts {
		if attempt.QuizID == quizID {
			out = append(out, attempt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListAnswers returns committed answers of a quiz ordered by attempt then answer ID.
func (r *AttemptRepository) ListAnswers(_ context.Context, quizID int64) ([]domain.Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Answer, 0)
	for _, answer := range r.answers {
		if r.attempts[answer.AttemptID].QuizID == quizID {
			out = append(out, answer)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AttemptID != out[j].AttemptID {
			return out[i].AttemptID < out[j].AttemptID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type attemptTx struct {
	repo     *AttemptRepository
	nextID   int64
	attempts map[int64]domain.Attempt
	answers  []domain.Answer
}

func (t *attemptTx) CreateAttempt(ctx context.Context, quizID int64) (int64, error) {
	if _, err := t.repo.quizzes.GetQuiz(ctx, quizID); err != nil {
		return 0, err
	}
	t.nextID++
	t.attempts[t.nextID] = domain.Attempt{
		ID:        t.nextID,
		QuizID:    quizID,
		CreatedAt: t.repo.clock().UTC(),
	}
	return t.nextID, nil
}

func (t *attemptTx) CorrectOption(_ context.Context, quizID, questionID int64) (int64, error) {
	question, ok := t.repo.quizzes.question(quizID, questionID)
	if !ok {
		return 0, domain.ErrQuestionNotFound
	}
	correct, ok := question.CorrectOption()
	if !ok {
		return 0, domain.ErrOptionNotFound
	}
	return correct.ID, nil
}

func (t *attemptTx) InsertAnswer(_ context.Context, answer domain.Answer) error {
	if _, ok := t.attempts[answer.AttemptID]; !ok {
		return errAttemptNotInTx
	}
	for _, existing := range t.answers {
		if existing.AttemptID == answer.AttemptID && existing.QuestionID == answer.QuestionID {
			return errDuplicateAnswer
		}
	}
	t.nextID++
	answer.ID = t.nextID
	t.answers = append(t.answers, answer)
	return nil
}

func (t *attemptTx) SetScore(_ context.Context, attemptID int64, score int) error {
	attempt, ok := t.attempts[attemptID]
	if !ok {
		return errAttemptNotInTx
	}
	attempt.Score = score
	t.attempts[attemptID] = attempt
	return nil
}
