package http

import "time"

type createQuizRequest struct {
	Title     string                  `json:"title" validate:"required"`
	Questions []createQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type createQuestionRequest struct {
	Question string                `json:"question" validate:"required"`
	Options  []createOptionRequest `json:"options" validate:"required,min=2,dive"`
}

type createOptionRequest struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type createQuizResponse struct {
	Message string `json:"message"`
	QuizID  int64  `json:"quiz_id"`
}

type quizSummaryResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type quizResponse struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	CreatedAt time.Time          `json:"created_at"`
	Questions []questionResponse `json:"questions"`
}

type questionResponse struct {
	ID       int64            `json:"id"`
	Question string           `json:"question"`
	Options  []optionResponse `json:"options"`
}

type optionResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	// IsCorrect is null unless answers were requested.
	IsCorrect *bool `json:"isCorrect"`
}

type attemptRequest struct {
	QuizID  int64           `json:"quiz_id"`
	Answers []answerRequest `json:"answers"`
}

type answerRequest struct {
	QuestionID       *int64 `json:"question_id"`
	SelectedOptionID *int64 `json:"selected_option_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}
