package memory

import "errors"

var (
	errAttemptNotInTx  = errors.New("attempt not created in this transaction")
	errDuplicateAnswer = errors.New("attempt already has an answer for this question")
)
