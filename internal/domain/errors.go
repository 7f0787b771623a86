package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is unknown or belongs to another quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is not an option of its question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrSubmissionInProgress is returned when an idempotency key is claimed by a request that has not finished.
	ErrSubmissionInProgress = errors.New("submission already in progress")
	// ErrIdempotencyKeyReused is returned when an idempotency key is presented with a different submission.
	ErrIdempotencyKeyReused = errors.New("idempotency key reused for a different submission")
)

// ValidationError reports malformed or inconsistent client input.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError with the given client-facing message.
func Invalid(message string) error {
	return &ValidationError{Message: message}
}

// InvalidWrap is Invalid with an underlying cause that stays matchable through errors.Is.
func InvalidWrap(message string, err error) error {
	return &ValidationError{Message: message, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
