package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"nutriplay-engine/internal/domain"
)

// SessionRepository abstracts where the active session of each student lives (in-memory, Redis, etc).
type SessionRepository interface {
	Get(studentID string) (*Session, bool)
	Put(studentID string, session *Session)
	Delete(studentID string)
}

// SessionTracker is implemented by session repositories that share a per-student
// playing marker with other instances.
type SessionTracker interface {
	Playing(ctx context.Context, studentID string) (gameID string, ok bool, err error)
	Touch(ctx context.Context, studentID string)
}

// GameRepository loads game content (from cache/backing store).
type GameRepository interface {
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
}

// Gateway is the backend REST API as seen by the engine. The student's bearer token
// travels in ctx.
type Gateway interface {
	StartSession(ctx context.Context, gameID string, level int) (string, error)
	SubmitQuizAnswer(ctx context.Context, sessionID string, item domain.QuizItem, correct bool, responseSeconds int) error
	SubmitDiaryEntry(ctx context.Context, sessionID string, entry domain.DiaryEntry) error
	SubmitSurveyAnswer(ctx context.Context, sessionID string, item domain.SurveyItem, value int) error
	FinishSession(ctx context.Context, sessionID string, points, elapsed int, completed bool) error
	FetchPoints(ctx context.Context) (int, error)
	ListGames(ctx context.Context) ([]domain.GameProgress, error)
	ListSessions(ctx context.Context) ([]domain.SessionRecord, error)
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
}

// GameService contains the game session use cases. A student has at most one
// session that is not finished or abandoned.
type GameService struct {
	sessions SessionRepository
	games    GameRepository
	gateway  Gateway
	state    *StateStore
	cfg      SessionConfig

	startMu sync.Mutex
}

func NewGameService(sessions SessionRepository, games GameRepository, gw Gateway, state *StateStore) *GameService {
	return NewGameServiceWithConfig(sessions, games, gw, state, SessionConfig{})
}

// NewGameServiceWithConfig lets tests inject clocks and tick rates into new sessions.
func NewGameServiceWithConfig(sessions SessionRepository, games GameRepository, gw Gateway, state *StateStore, cfg SessionConfig) *GameService {
	return &GameService{sessions: sessions, games: games, gateway: gw, state: state, cfg: cfg}
}

// Start opens a session for a game and level. A session whose start failed is replaced,
// so calling Start again is the retry. onTick receives the elapsed seconds while playing.
func (s *GameService) Start(ctx context.Context, studentID, gameID string, level int, onTick func(int)) (domain.SessionSnapshot, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	if existing, ok := s.sessions.Get(studentID); ok && existing.State().Terminal() {
		s.flushFinalize(ctx, studentID, existing)
	}

	s.startMu.Lock()
	existing, ok := s.sessions.Get(studentID)
	if ok && existing.State() == domain.StateInProgress {
		s.startMu.Unlock()
		return existing.Snapshot(), domain.ErrSessionActive
	}
	if !ok {
		if err := s.playingElsewhere(ctx, studentID); err != nil {
			s.startMu.Unlock()
			return domain.SessionSnapshot{}, err
		}
	}
	cfg := s.cfg
	cfg.OnTick = onTick
	session, err := NewSession(game, level, s.gateway, cfg)
	if err != nil {
		s.startMu.Unlock()
		return domain.SessionSnapshot{}, err
	}
	s.sessions.Put(studentID, session)
	s.startMu.Unlock()

	if err := session.Start(ctx); err != nil {
		log.Printf("session start failed for student %s: %v", studentID, err)
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// playingElsewhere rejects a start while another instance holds a session for the
// student. A tracker that cannot be reached does not block play.
func (s *GameService) playingElsewhere(ctx context.Context, studentID string) error {
	tracker, ok := s.sessions.(SessionTracker)
	if !ok {
		return nil
	}
	gameID, playing, err := tracker.Playing(ctx, studentID)
	if err != nil {
		log.Printf("check playing marker for student %s: %v", studentID, err)
		return nil
	}
	if playing {
		return fmt.Errorf("%w: game %s on another instance", domain.ErrSessionActive, gameID)
	}
	return nil
}

// Record sends an event to the student's session. When the flow has nothing left to
// play the session is finished as completed and the summary is attached.
func (s *GameService) Record(ctx context.Context, studentID string, ev domain.Event) (domain.EventResult, error) {
	session, ok := s.sessions.Get(studentID)
	if !ok {
		return domain.EventResult{}, domain.ErrSessionNotFound
	}
	result, err := session.Record(ctx, ev)
	if err != nil {
		return result, err
	}
	if tracker, ok := s.sessions.(SessionTracker); ok {
		tracker.Touch(ctx, studentID)
	}
	if !result.Complete {
		return result, nil
	}

	summary, err := s.finish(ctx, studentID, session, true)
	result.Summary = &summary
	result.Points = summary.Points
	result.Snapshot = session.Snapshot()
	return result, err
}

// Finish closes the student's session.
func (s *GameService) Finish(ctx context.Context, studentID string, completed bool) (domain.SessionSummary, error) {
	session, ok := s.sessions.Get(studentID)
	if !ok {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}
	return s.finish(ctx, studentID, session, completed)
}

func (s *GameService) finish(ctx context.Context, studentID string, session *Session, completed bool) (domain.SessionSummary, error) {
	summary, transitioned, err := session.finish(ctx, completed)
	if transitioned {
		s.state.ApplyDelta(ctx, studentID, summary.SessionID, summary.Points, summary.Acknowledged)
	}
	if err != nil {
		log.Printf("finish failed for student %s: %v", studentID, err)
	}
	return summary, err
}

// Abandon leaves the student's session; accrued points are kept.
func (s *GameService) Abandon(ctx context.Context, studentID string) (domain.SessionSummary, error) {
	session, ok := s.sessions.Get(studentID)
	if !ok {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}
	summary, finalized, err := session.abandon(ctx)
	if finalized {
		s.state.ApplyDelta(ctx, studentID, summary.SessionID, summary.Points, summary.Acknowledged)
	}
	if err != nil {
		log.Printf("abandon failed for student %s: %v", studentID, err)
	}
	return summary, err
}

// RetryFinalize re-sends a failed finalize and marks its points as acknowledged.
func (s *GameService) RetryFinalize(ctx context.Context, studentID string) (domain.SessionSummary, error) {
	session, ok := s.sessions.Get(studentID)
	if !ok {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}
	summary, err := session.RetryFinalize(ctx)
	if err != nil {
		return summary, err
	}
	s.state.Acknowledge(ctx, studentID, summary.SessionID)
	return summary, nil
}

// flushFinalize retries a failed finalize once before its session is replaced.
func (s *GameService) flushFinalize(ctx context.Context, studentID string, session *Session) {
	summary, err := session.RetryFinalize(ctx)
	if errors.Is(err, domain.ErrFinalizeNotPending) {
		return
	}
	if err != nil {
		log.Printf("finalize still failing for student %s: %v", studentID, err)
		return
	}
	s.state.Acknowledge(ctx, studentID, summary.SessionID)
}

// Snapshot returns the student's current session view.
func (s *GameService) Snapshot(studentID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(studentID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Release drops the student's session once it is terminal.
func (s *GameService) Release(studentID string) {
	session, ok := s.sessions.Get(studentID)
	if !ok || !session.State().Terminal() {
		return
	}
	s.sessions.Delete(studentID)
}

// RefreshPoints fetches the authoritative total and reconciles the local projection.
func (s *GameService) RefreshPoints(ctx context.Context, studentID string) (domain.StudentState, error) {
	total, err := s.gateway.FetchPoints(ctx)
	if err != nil {
		return s.state.Get(ctx, studentID), err
	}
	return s.state.Reconcile(ctx, studentID, total), nil
}

// RefreshNotifications reloads the notification list.
func (s *GameService) RefreshNotifications(ctx context.Context, studentID string) (domain.StudentState, error) {
	notes, err := s.gateway.ListNotifications(ctx)
	if err != nil {
		return s.state.Get(ctx, studentID), err
	}
	return s.state.SetNotifications(ctx, studentID, notes), nil
}

// MarkNotificationRead marks a notification read on the server, then locally.
func (s *GameService) MarkNotificationRead(ctx context.Context, studentID, notificationID string) (domain.StudentState, error) {
	if err := s.gateway.MarkNotificationRead(ctx, notificationID); err != nil {
		return s.state.Get(ctx, studentID), err
	}
	return s.state.MarkRead(ctx, studentID, notificationID), nil
}

// State returns the student's points and notifications projection.
func (s *GameService) State(ctx context.Context, studentID string) domain.StudentState {
	return s.state.Get(ctx, studentID)
}

// Subscribe streams state changes for a student. The caller must invoke cancel.
func (s *GameService) Subscribe(ctx context.Context, studentID string) (<-chan domain.StudentState, func()) {
	return s.state.Subscribe(ctx, studentID)
}

// Games lists the backend progress of every game the local catalog knows how to play.
func (s *GameService) Games(ctx context.Context) ([]domain.GameProgress, error) {
	remote, err := s.gateway.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.GameProgress, 0, len(remote))
	for _, r := range remote {
		game, err := s.games.GetGame(ctx, r.GameID)
		if errors.Is(err, domain.ErrGameNotFound) {
			log.Printf("skipping game %s (%s): not in catalog", r.GameID, r.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		r.Kind = game.Kind
		if r.MaxLevels == 0 {
			r.MaxLevels = game.MaxLevels
		}
		if r.PointsPerLevel == 0 {
			r.PointsPerLevel = game.PointsPerLevel
		}
		out = append(out, r)
	}
	return out, nil
}

// History lists the student's past sessions.
func (s *GameService) History(ctx context.Context) ([]domain.SessionRecord, error) {
	return s.gateway.ListSessions(ctx)
}
