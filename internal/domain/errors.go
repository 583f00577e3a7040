package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a student has no game session.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrSessionActive is returned when a student already has a session in progress.
	ErrSessionActive = errors.New("another game session is in progress")
	// ErrSessionNotStarted is returned for events sent before the session was started.
	ErrSessionNotStarted = errors.New("game session not started")
	// ErrSessionClosed is returned for events sent after finish or abandon.
	ErrSessionClosed = errors.New("game session already closed")
	// ErrFinalizeNotPending is returned by a finalize retry when nothing failed.
	ErrFinalizeNotPending = errors.New("no failed finalize to retry")
	// ErrGameNotFound indicates the game content could not be loaded.
	ErrGameNotFound = errors.New("game not found")
	// ErrUnknownGameKind indicates a catalog entry without a supported kind.
	ErrUnknownGameKind = errors.New("unknown game kind")
	// ErrInvalidLevel indicates a level outside 1..MaxLevels.
	ErrInvalidLevel = errors.New("invalid level")
	// ErrWrongGameKind indicates an event that does not belong to the session's game.
	ErrWrongGameKind = errors.New("event does not match game kind")
	// ErrFlowComplete indicates an event after the sub-flow already completed.
	ErrFlowComplete = errors.New("all items already answered")

	ErrNoSelection       = errors.New("no option selected")
	ErrInvalidOption     = errors.New("option out of range")
	ErrAnswerLocked      = errors.New("answer already submitted")
	ErrAnswerPending     = errors.New("current answer not submitted")
	ErrInvalidResponse   = errors.New("response must be between 1 and 5")
	ErrInvalidDiaryEntry = errors.New("invalid diary entry")

	// ErrUnauthenticated is returned when a request carries no usable bearer token.
	ErrUnauthenticated = errors.New("missing or malformed bearer token")
)

// SessionStartError reports that the backend refused or never answered a session start.
// The session stays NotStarted and the start can be retried.
type SessionStartError struct {
	GameID string
	Level  int
	Err    error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("start session for game %s level %d: %v", e.GameID, e.Level, e.Err)
}

func (e *SessionStartError) Unwrap() error { return e.Err }

// SubmissionError reports a single answer/record event that failed to persist.
// It is logged and never interrupts play.
type SubmissionError struct {
	SessionID string
	Kind      GameKind
	Item      int
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s item %d for session %s: %v", e.Kind, e.Item, e.SessionID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// FinalizeError reports a failed finish call. The session is finished locally anyway.
type FinalizeError struct {
	SessionID string
	Err       error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("finalize session %s: %v", e.SessionID, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }
