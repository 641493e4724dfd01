package models

import "errors"

// Domain failure sentinels. These are business-rule violations surfaced
// directly to the caller; they are never retried and never logged as
// system errors. Match with errors.Is.
var (
	// ErrNotFound covers both "entity missing" and "entity owned by someone
	// else" — the two are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the quest is not in the status the requested
	// transition requires.
	ErrInvalidState = errors.New("invalid quest state")

	// ErrSequenceViolation means a question was answered out of order.
	ErrSequenceViolation = errors.New("question answered out of sequence")

	// ErrAlreadyAnswered means an answer row already exists for this
	// (quest, question) pair, including the concurrent-duplicate case caught
	// by the uniqueness constraint at insert time.
	ErrAlreadyAnswered = errors.New("question already answered")

	ErrInsufficientPoints = errors.New("insufficient stat boost points")
	ErrInvalidStat        = errors.New("invalid stat name")

	// ErrValidation covers malformed input: non-positive point spends,
	// unknown choices, completions on unscheduled days.
	ErrValidation = errors.New("validation failed")
)
