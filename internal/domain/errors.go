package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when a match is driven with no students or with
	// bookkeeping that cannot be reconciled. It indicates an orchestration bug.
	ErrInvalidState = errors.New("invalid match state")
	// ErrInvalidOperation is returned when an answer is recorded for a student who
	// is not eligible to answer.
	ErrInvalidOperation = errors.New("invalid match operation")
	// ErrInvalidInput indicates a bad match configuration or an empty roster handed
	// to the results aggregator.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMatchNotFound is returned when a match id is unknown or was abandoned.
	ErrMatchNotFound = errors.New("match not found")
	// ErrEmptyRoster is returned when a class (or selected group) has no students.
	ErrEmptyRoster = fmt.Errorf("roster is empty: %w", ErrInvalidState)
	// ErrStudentNotFound indicates a student id that is not on the match roster.
	ErrStudentNotFound = fmt.Errorf("student not on roster: %w", ErrInvalidOperation)
	// ErrNoActiveTurn is returned when an answer arrives before a student was selected.
	ErrNoActiveTurn = fmt.Errorf("no active turn: %w", ErrInvalidOperation)
	// ErrQuotaReached is returned when a student has already answered every question.
	ErrQuotaReached = fmt.Errorf("student already answered all questions: %w", ErrInvalidOperation)
	// ErrShuttingDown is returned for match changes that arrive after shutdown began.
	ErrShuttingDown = errors.New("service is shutting down")
)
