package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nutriplay-engine/internal/domain"
)

var errBackendDown = errors.New("backend unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type finishCall struct {
	SessionID string
	Points    int
	Elapsed   int
	Completed bool
}

type fakeGateway struct {
	mu sync.Mutex

	startErr  error
	submitErr error
	// hangDiary makes diary submissions block until their context ends.
	hangDiary bool
	finishErr error
	points    int
	games     []domain.GameProgress

	starts      int
	quizAnswers []bool
	diary       []domain.DiaryEntry
	survey      []int
	finishes    []finishCall
}

func (g *fakeGateway) StartSession(_ context.Context, gameID string, level int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.starts++
	if g.startErr != nil {
		return "", g.startErr
	}
	return fmt.Sprintf("sess-%s-%d-%d", gameID, level, g.starts), nil
}

func (g *fakeGateway) SubmitQuizAnswer(_ context.Context, _ string, _ domain.QuizItem, correct bool, _ int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return g.submitErr
	}
	g.quizAnswers = append(g.quizAnswers, correct)
	return nil
}

func (g *fakeGateway) SubmitDiaryEntry(ctx context.Context, _ string, entry domain.DiaryEntry) error {
	if g.hangDiary {
		<-ctx.Done()
		return ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return g.submitErr
	}
	g.diary = append(g.diary, entry)
	return nil
}

func (g *fakeGateway) SubmitSurveyAnswer(_ context.Context, _ string, _ domain.SurveyItem, value int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return g.submitErr
	}
	g.survey = append(g.survey, value)
	return nil
}

func (g *fakeGateway) FinishSession(_ context.Context, sessionID string, points, elapsed int, completed bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.finishes = append(g.finishes, finishCall{SessionID: sessionID, Points: points, Elapsed: elapsed, Completed: completed})
	return g.finishErr
}

func (g *fakeGateway) FetchPoints(context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.points, nil
}

func (g *fakeGateway) ListGames(context.Context) ([]domain.GameProgress, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.GameProgress(nil), g.games...), nil
}

func (g *fakeGateway) ListSessions(context.Context) ([]domain.SessionRecord, error) {
	return nil, nil
}

func (g *fakeGateway) ListNotifications(context.Context) ([]domain.Notification, error) {
	return []domain.Notification{{ID: "n1", Title: "Welcome"}, {ID: "n2", Title: "New reward"}}, nil
}

func (g *fakeGateway) MarkNotificationRead(context.Context, string) error {
	return nil
}

func (g *fakeGateway) setFinishErr(err error) {
	g.mu.Lock()
	g.finishErr = err
	g.mu.Unlock()
}

func (g *fakeGateway) finishCalls() []finishCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]finishCall(nil), g.finishes...)
}

func (g *fakeGateway) submittedQuiz() []bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]bool(nil), g.quizAnswers...)
}

func (g *fakeGateway) submittedDiary() []domain.DiaryEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.DiaryEntry(nil), g.diary...)
}

type staticGames map[string]domain.Game

func (s staticGames) GetGame(_ context.Context, gameID string) (domain.Game, error) {
	if g, ok := s[gameID]; ok {
		return g, nil
	}
	return domain.Game{}, domain.ErrGameNotFound
}
