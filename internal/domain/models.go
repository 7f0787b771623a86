package domain

import "time"

// Option is a possible answer for a question.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Question is a multiple choice question with exactly one correct option.
type Question struct {
	ID      int64    `json:"id"`
	QuizID  int64    `json:"quizId"`
	Text    string   `json:"question"`
	Options []Option `json:"options"`
}

// CorrectOption returns the option flagged correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return Option{}, false
}

// HasOption reports whether optionID is one of the question's options.
func (q Question) HasOption(optionID int64) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Quiz is a titled, ordered collection of questions.
type Quiz struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	Questions []Question `json:"questions"`
}

// QuizSummary is the list view of a quiz.
type QuizSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// NewQuiz is the authoring input for a quiz; IDs are assigned by the store.
type NewQuiz struct {
	Title     string
	Questions []NewQuestion
}

// NewQuestion is the authoring input for a question and its options.
type NewQuestion struct {
	Text    string
	Options []NewOption
}

// NewOption is the authoring input for an option.
type NewOption struct {
	Text      string
	IsCorrect bool
}

// AnswerSubmission is one (question, selected option) pair of an attempt.
type AnswerSubmission struct {
	QuestionID       int64 `json:"question_id"`
	SelectedOptionID int64 `json:"selected_option_id"`
}

// AttemptResult summarizes a scored attempt.
type AttemptResult struct {
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Attempt is a persisted, scored submission.
type Attempt struct {
	ID        int64
	QuizID    int64
	Score     int
	CreatedAt time.Time
}

// Answer is a persisted answer belonging to an attempt.
type Answer struct {
	ID               int64
	AttemptID        int64
	QuestionID       int64
	SelectedOptionID int64
}

// QuizStats is the statistics summary of all attempts of a quiz.
// Per-question slices are parallel and follow quiz order.
type QuizStats struct {
	QuizID                 int64     `json:"quizId"`
	QuizTitle              string    `json:"quizTitle"`
	TotalAttempts          int       `json:"totalAttempts"`
	AverageScore           float64   `json:"averageScore"`
	HighestScore           float64   `json:"highestScore"`
	PassRate               float64   `json:"passRate"`
	ScoreDistribution      []int     `json:"scoreDistribution"`
	AttemptDates           []string  `json:"attemptDates"`
	AttemptsPerDate        []int     `json:"attemptsPerDate"`
	QuestionLabels         []string  `json:"questionLabels"`
	QuestionTexts          []string  `json:"questionTexts"`
	QuestionSuccessRates   []float64 `json:"questionSuccessRates"`
	QuestionAttemptCounts  []int     `json:"questionAttemptCounts"`
	MostCommonWrongAnswers []string  `json:"mostCommonWrongAnswers"`
}
