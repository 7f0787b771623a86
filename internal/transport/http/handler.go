package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"quiz-hosting-service/internal/app"
	"quiz-hosting-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// Handler exposes the quiz use cases over JSON/HTTP.
type Handler struct {
	service  *app.QuizService
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewHandler(service *app.QuizService, log logrus.FieldLogger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// Routes builds the API mux wrapped with CORS. allowedOrigins empty means any origin.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/create_quiz", h.CreateQuiz)
	mux.HandleFunc("GET /api/quizzes", h.ListQuizzes)
	mux.HandleFunc("GET /api/quiz/{id}", h.GetQuiz)
	mux.HandleFunc("POST /api/quiz/attempt", h.SubmitAttempt)
	mux.HandleFunc("GET /api/quiz/{id}/stats", h.GetQuizStats)
	mux.HandleFunc("GET /api/languages", h.Languages)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
	}).Handler(mux)
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return
	}

	quiz := domain.NewQuiz{Title: req.Title, Questions: make([]domain.NewQuestion, 0, len(req.Questions))}
	for _, q := range req.Questions {
		nq := domain.NewQuestion{Text: q.Question, Options: make([]domain.NewOption, 0, len(q.Options))}
		for _, o := range q.Options {
			nq.Options = append(nq.Options, domain.NewOption{Text: o.Text, IsCorrect: o.IsCorrect})
		}
		quiz.Questions = append(quiz.Questions, nq)
	}

	id, err := h.service.CreateQuiz(r.Context(), quiz)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createQuizResponse{Message: "Quiz created successfully", QuizID: id})
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context(), langParam(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]quizSummaryResponse, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, quizSummaryResponse{ID: q.ID, Title: q.Title, CreatedAt: q.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), id, langParam(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuizResponse(quiz, parseBoolParam(r, "showAnswers")))
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.QuizID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "quiz_id is required"})
		return
	}

	answers := make([]domain.AnswerSubmission, 0, len(req.Answers))
	for _, a := range req.Answers {
		var submission domain.AnswerSubmission
		// Missing fields stay zero and are rejected as an invalid answer format.
		if a.QuestionID != nil {
			submission.QuestionID = *a.QuestionID
		}
		if a.SelectedOptionID != nil {
			submission.SelectedOptionID = *a.SelectedOptionID
		}
		answers = append(answers, submission)
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	result, err := h.service.SubmitAttemptOnce(r.Context(), key, req.QuizID, answers)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetQuizStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	stats, err := h.service.GetQuizStats(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Languages())
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
	case errors.Is(err, domain.ErrQuizNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "quiz not found"})
	case errors.Is(err, domain.ErrSubmissionInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "submission already in progress"})
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "idempotency key already used for a different submission"})
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func toQuizResponse(quiz domain.Quiz, showAnswers bool) quizResponse {
	out := quizResponse{
		ID:        quiz.ID,
		Title:     quiz.Title,
		CreatedAt: quiz.CreatedAt,
		Questions: make([]questionResponse, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		qr := questionResponse{ID: q.ID, Question: q.Text, Options: make([]optionResponse, 0, len(q.Options))}
		for _, opt := range q.Options {
			resp := optionResponse{ID: opt.ID, Text: opt.Text}
			if showAnswers {
				correct := opt.IsCorrect
				resp.IsCorrect = &correct
			}
			qr.Options = append(qr.Options, resp)
		}
		out.Questions = append(out.Questions, qr)
	}
	return out
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid field " + fe.Namespace() + ": failed " + fe.Tag()
	}
	return "invalid request"
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "quiz not found"})
		return 0, false
	}
	return id, true
}

func langParam(r *http.Request) string {
	lang := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("lang")))
	if lang == "" {
		return "en"
	}
	return lang
}

func parseBoolParam(r *http.Request, key string) bool {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	return value == "1" || value == "true" || value == "yes"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
