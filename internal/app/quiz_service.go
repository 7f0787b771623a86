package app

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"quiz-hosting-service/internal/domain"
)

// QuizRepository persists quiz content. Quizzes are immutable once created.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.NewQuiz) (int64, error)
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
}

// AttemptRepository stores attempts and their answers.
type AttemptRepository interface {
	// RunInTx executes fn in one transaction; a non-nil return rolls everything back.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx AttemptTx) error) error
	ListAttempts(ctx context.Context, quizID int64) ([]domain.Attempt, error)
	ListAnswers(ctx context.Context, quizID int64) ([]domain.Answer, error)
}

// AttemptTx is the write side of an attempt transaction.
type AttemptTx interface {
	CreateAttempt(ctx context.Context, quizID int64) (int64, error)
	// CorrectOption returns the correct option of questionID, or domain.ErrQuestionNotFound
	// if the question does not belong to quizID.
	CorrectOption(ctx context.Context, quizID, questionID int64) (int64, error)
	InsertAnswer(ctx context.Context, answer domain.Answer) error
	SetScore(ctx context.Context, attemptID int64, score int) error
}

// Translator rewrites texts into lang, returning the originals for anything it cannot translate.
type Translator interface {
	TranslateAll(ctx context.Context, texts []string, lang string) []string
	Languages() map[string]string
}

// QuizService contains the quiz use cases.
type QuizService struct {
	quizzes    QuizRepository
	attempts   AttemptRepository
	translator Translator
	guard      SubmissionGuard
	log        logrus.FieldLogger
}

// ServiceOption configures a QuizService.
type ServiceOption func(*QuizService)

// WithLogger sets the logger for failures that do not reach the caller.
func WithLogger(log logrus.FieldLogger) ServiceOption {
	return func(s *QuizService) { s.log = log }
}

// NewQuizService wires the service. translator and guard are optional.
func NewQuizService(quizzes QuizRepository, attempts AttemptRepository, translator Translator, guard SubmissionGuard, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		quizzes:    quizzes,
		attempts:   attempts,
		translator: translator,
		guard:      guard,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuiz validates and stores a new quiz with its questions and options.
func (s *QuizService) CreateQuiz(ctx context.Context, quiz domain.NewQuiz) (int64, error) {
	if err := validateNewQuiz(quiz); err != nil {
		return 0, err
	}
	return s.quizzes.CreateQuiz(ctx, quiz)
}

// ListQuizzes returns all quizzes with titles translated into lang.
func (s *QuizService) ListQuizzes(ctx context.Context, lang string) ([]domain.QuizSummary, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	if !s.wantsTranslation(lang) || len(quizzes) == 0 {
		return quizzes, nil
	}

	titles := make([]string, len(quizzes))
	for i, q := range quizzes {
		titles[i] = q.Title
	}
	translated := s.translator.TranslateAll(ctx, titles, lang)
	for i := range quizzes {
		quizzes[i].Title = translated[i]
	}
	return quizzes, nil
}

// GetQuiz returns a quiz with title, question and option text translated into lang.
func (s *QuizService) GetQuiz(ctx context.Context, quizID int64, lang string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !s.wantsTranslation(lang) {
		return quiz, nil
	}

	// Flatten every string into one batch, then write back in the same order.
	texts := []string{quiz.Title}
	for _, q := range quiz.Questions {
		texts = append(texts, q.Text)
		for _, opt := range q.Options {
			texts = append(texts, opt.Text)
		}
	}
	translated := s.translator.TranslateAll(ctx, texts, lang)

	out := quiz
	out.Title = translated[0]
	out.Questions = make([]domain.Question, len(quiz.Questions))
	idx := 1
	for i, q := range quiz.Questions {
		q.Text = translated[idx]
		idx++
		opts := make([]domain.Option, len(q.Options))
		for j, opt := range q.Options {
			opt.Text = translated[idx]
			idx++
			opts[j] = opt
		}
		q.Options = opts
		out.Questions[i] = q
	}
	return out, nil
}

// Languages lists the supported translation targets.
func (s *QuizService) Languages() map[string]string {
	if s.translator == nil {
		return map[string]string{"en": "English"}
	}
	return s.translator.Languages()
}

func (s *QuizService) wantsTranslation(lang string) bool {
	lang = strings.TrimSpace(lang)
	return s.translator != nil && lang != "" && lang != "en"
}

func validateNewQuiz(quiz domain.NewQuiz) error {
	if strings.TrimSpace(quiz.Title) == "" {
		return domain.Invalid("quiz title is required")
	}
	if len(quiz.Questions) == 0 {
		return domain.Invalid("quiz must have at least one question")
	}
	for _, q := range quiz.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return domain.Invalid("question text is required")
		}
		if len(q.Options) < 2 {
			return domain.Invalid("each question must have at least two options")
		}
		correct := 0
		for _, opt := range q.Options {
			if strings.TrimSpace(opt.Text) == "" {
				return domain.Invalid("option text is required")
			}
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return domain.Invalid("each question must have exactly one correct option")
		}
	}
	return nil
}
