package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"quiz-hosting-service/internal/domain"
)

// SubmissionGuard makes attempt submission idempotent per client-supplied key.
// Each key is bound to the fingerprint of the submission that first claimed it.
type SubmissionGuard interface {
	// Claim reserves key for fingerprint. If the key already completed, the stored result is returned with claimed=false.
	// If it is reserved but unfinished, Claim returns domain.ErrSubmissionInProgress.
	// If it was claimed with a different fingerprint, Claim returns domain.ErrIdempotencyKeyReused.
	Claim(ctx context.Context, key, fingerprint string) (prior *domain.AttemptResult, claimed bool, err error)
	Complete(ctx context.Context, key, fingerprint string, result domain.AttemptResult) error
	Release(ctx context.Context, key string) error
}

// guardTimeout bounds guard bookkeeping that runs after the request context may be gone.
const guardTimeout = 5 * time.Second

// SubmitAttempt validates, scores and records an attempt in a single transaction.
func (s *QuizService) SubmitAttempt(ctx context.Context, quizID int64, answers []domain.AnswerSubmission) (domain.AttemptResult, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if err := validateAnswers(quiz, answers); err != nil {
		return domain.AttemptResult{}, err
	}

	score := 0
	err = s.attempts.RunInTx(ctx, func(ctx context.Context, tx AttemptTx) error {
		// Placeholder score; overwritten once all answers are in.
		attemptID, err := tx.CreateAttempt(ctx, quizID)
		if err != nil {
			return fmt.Errorf("create attempt: %w", err)
		}
		correct := 0
		for _, answer := range answers {
			correctID, err := tx.CorrectOption(ctx, quizID, answer.QuestionID)
			if errors.Is(err, domain.ErrQuestionNotFound) {
				return domain.InvalidWrap("invalid question ID", err)
			}
			if err != nil {
				return fmt.Errorf("lookup correct option: %w", err)
			}
			if err := tx.InsertAnswer(ctx, domain.Answer{
				AttemptID:        attemptID,
				QuestionID:       answer.QuestionID,
				SelectedOptionID: answer.SelectedOptionID,
			}); err != nil {
				return fmt.Errorf("insert answer: %w", err)
			}
			if answer.SelectedOptionID == correctID {
				correct++
			}
		}
		if err := tx.SetScore(ctx, attemptID, correct); err != nil {
			return fmt.Errorf("set score: %w", err)
		}
		score = correct
		return nil
	})
	if err != nil {
		return domain.AttemptResult{}, err
	}

	total := len(quiz.Questions)
	return domain.AttemptResult{
		Score:      score,
		Total:      total,
		Percentage: float64(score) / float64(total) * 100,
	}, nil
}

// SubmitAttemptOnce is SubmitAttempt guarded by an idempotency key.
// An empty key or a missing guard falls through to SubmitAttempt.
// Once the attempt is committed its result is returned even if the guard cannot record it.
func (s *QuizService) SubmitAttemptOnce(ctx context.Context, key string, quizID int64, answers []domain.AnswerSubmission) (domain.AttemptResult, error) {
	if key == "" || s.guard == nil {
		return s.SubmitAttempt(ctx, quizID, answers)
	}

	fingerprint := submissionFingerprint(quizID, answers)
	prior, claimed, err := s.guard.Claim(ctx, key, fingerprint)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if !claimed {
		return *prior, nil
	}

	result, err := s.SubmitAttempt(ctx, quizID, answers)

	guardCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), guardTimeout)
	defer cancel()
	log := s.log.WithField("idempotency_key", key)
	if err != nil {
		if relErr := s.guard.Release(guardCtx, key); relErr != nil {
			log.WithError(relErr).Error("release submission key")
		}
		return domain.AttemptResult{}, err
	}
	if err := s.guard.Complete(guardCtx, key, fingerprint, result); err != nil {
		// Free the key so a retry is not locked out until the TTL runs out.
		log.WithError(err).Error("record submission result")
		if relErr := s.guard.Release(guardCtx, key); relErr != nil {
			log.WithError(relErr).Error("release submission key")
		}
	}
	return result, nil
}

// submissionFingerprint identifies a submission independent of answer order.
func submissionFingerprint(quizID int64, answers []domain.AnswerSubmission) string {
	sorted := append([]domain.AnswerSubmission(nil), answers...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].QuestionID != sorted[j].QuestionID {
			return sorted[i].QuestionID < sorted[j].QuestionID
		}
		return sorted[i].SelectedOptionID < sorted[j].SelectedOptionID
	})

	var b strings.Builder
	b.WriteString(strconv.FormatInt(quizID, 10))
	for _, a := range sorted {
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(a.QuestionID, 10))
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(a.SelectedOptionID, 10))
	}
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

// validateAnswers checks the submission shape against the quiz before anything is written.
func validateAnswers(quiz domain.Quiz, answers []domain.AnswerSubmission) error {
	if len(answers) == 0 || len(answers) != len(quiz.Questions) {
		return domain.Invalid("all questions must be answered")
	}
	for _, answer := range answers {
		if answer.QuestionID == 0 || answer.SelectedOptionID == 0 {
			return domain.Invalid("invalid answer format")
		}
	}

	questions := make(map[int64]domain.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = q
	}
	seen := make(map[int64]struct{}, len(answers))
	for _, answer := range answers {
		question, ok := questions[answer.QuestionID]
		if !ok {
			return domain.InvalidWrap("invalid question ID", domain.ErrQuestionNotFound)
		}
		if _, dup := seen[answer.QuestionID]; dup {
			return domain.Invalid("duplicate answer for question")
		}
		seen[answer.QuestionID] = struct{}{}
		if !question.HasOption(answer.SelectedOptionID) {
			return domain.InvalidWrap("invalid option ID", domain.ErrOptionNotFound)
		}
	}
	return nil
}
