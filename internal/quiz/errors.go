package quiz

import "errors"

var (
	// ErrInvalidSession is returned when a session is started with no questions.
	ErrInvalidSession = errors.New("session requires at least one question")

	// ErrAlreadyAnswered is returned when a position already holds a record.
	// Correct wiring gates submission on the answered flag, so hitting this
	// indicates a caller bug rather than a user error.
	ErrAlreadyAnswered = errors.New("question already answered")

	// ErrSessionClosed is returned by any sequencer call after Finalize.
	ErrSessionClosed = errors.New("session already completed")

	// ErrPositionOutOfRange is returned when a captured position does not
	// index into the question sequence.
	ErrPositionOutOfRange = errors.New("position out of range")
)
