package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"nutriplay-engine/internal/domain"
)

const (
	defaultSubmitTimeout = 10 * time.Second
	maxInFlightSubmits   = 8
)

// SessionConfig tunes clocks and background work of a session.
type SessionConfig struct {
	Now           func() time.Time
	Tick          time.Duration
	OnTick        func(elapsed int)
	SubmitTimeout time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Tick == 0 {
		c.Tick = TickInterval
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = defaultSubmitTimeout
	}
	return c
}

// Session is one play-through of one game at one level.
//
// NotStarted -> InProgress -> Finished, with Abandoned reachable from InProgress
// (and from NotStarted when the player leaves before the start succeeded).
type Session struct {
	mu      sync.Mutex
	cfg     SessionConfig
	gateway Gateway

	id        string
	game      domain.Game
	level     int
	state     domain.SessionState
	startedAt time.Time
	points    int
	flow      subFlow
	timer     *Timer

	submits       errgroup.Group
	failedSubmits atomic.Int32

	// overflow holds submissions that found every slot busy. One drainer feeds
	// them into submits in order.
	qmu      sync.Mutex
	overflow []func() error
	draining bool
	drained  sync.WaitGroup

	summary     *domain.SessionSummary
	finalizeErr error
}

// NewSession prepares a NotStarted session. The level must be within 1..MaxLevels.
func NewSession(game domain.Game, level int, gw Gateway, cfg SessionConfig) (*Session, error) {
	if level < 1 || level > game.MaxLevels {
		return nil, fmt.Errorf("%w: %d (game %s has %d levels)", domain.ErrInvalidLevel, level, game.ID, game.MaxLevels)
	}
	flow, err := newSubFlow(game)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:     cfg,
		gateway: gw,
		game:    game,
		level:   level,
		state:   domain.StateNotStarted,
		flow:    flow,
		timer:   NewTimerWithClock(cfg.Now, cfg.Tick),
	}
	s.submits.SetLimit(maxInFlightSubmits)
	return s, nil
}

// Start asks the backend for a session id. On failure the session stays NotStarted
// and Start may be called again.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateInProgress:
		return nil
	case domain.StateFinished, domain.StateAbandoned:
		return domain.ErrSessionClosed
	}

	id, err := s.gateway.StartSession(ctx, s.game.ID, s.level)
	if err != nil {
		return &domain.SessionStartError{GameID: s.game.ID, Level: s.level, Err: err}
	}
	s.id = id
	s.state = domain.StateInProgress
	s.startedAt = s.cfg.Now()
	s.timer.Start(s.cfg.OnTick)
	return nil
}

// Record applies one answer/record event and queues its submission to the backend.
func (s *Session) Record(ctx context.Context, ev domain.Event) (domain.EventResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateNotStarted:
		return domain.EventResult{}, domain.ErrSessionNotStarted
	case domain.StateFinished, domain.StateAbandoned:
		return domain.EventResult{}, domain.ErrSessionClosed
	}
	if ev == nil || ev.Kind() != s.game.Kind {
		return domain.EventResult{}, domain.ErrWrongGameKind
	}

	out, err := s.flow.record(ev, s.timer.Elapsed())
	if err != nil {
		return domain.EventResult{}, err
	}
	s.points += out.delta
	if out.submit != nil {
		s.dispatchLocked(ctx, out.submit)
	}

	return domain.EventResult{
		Delta:    out.delta,
		Points:   s.points,
		Complete: s.readyToFinishLocked(out),
		Quiz:     out.quiz,
		Diary:    out.diary,
		Snapshot: s.snapshotLocked(),
	}, nil
}

// readyToFinishLocked reports whether the flow has nothing left to play. The quiz waits
// for the explicit move past its last item; the other flows end with their last entry.
func (s *Session) readyToFinishLocked(out flowOutcome) bool {
	if s.game.Kind == domain.KindQuiz {
		return out.ended
	}
	return s.flow.isComplete()
}

// dispatchLocked sends a submission in the background and never waits for a free
// slot. Failures are logged and counted; play continues either way. The request
// outlives the caller's context.
func (s *Session) dispatchLocked(ctx context.Context, sub *submission) {
	sessionID := s.id
	kind := s.game.Kind
	detached := context.WithoutCancel(ctx)
	timeout := s.cfg.SubmitTimeout
	job := func() error {
		callCtx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()
		if err := sub.send(callCtx, s.gateway, sessionID); err != nil {
			s.failedSubmits.Add(1)
			log.Printf("%v", &domain.SubmissionError{SessionID: sessionID, Kind: kind, Item: sub.item, Err: err})
		}
		return nil
	}

	s.qmu.Lock()
	defer s.qmu.Unlock()
	if !s.draining && s.submits.TryGo(job) {
		return
	}
	s.overflow = append(s.overflow, job)
	if !s.draining {
		s.draining = true
		s.drained.Add(1)
		go s.drainOverflow()
	}
}

func (s *Session) drainOverflow() {
	defer s.drained.Done()
	for {
		s.qmu.Lock()
		if len(s.overflow) == 0 {
			s.draining = false
			s.qmu.Unlock()
			return
		}
		job := s.overflow[0]
		s.overflow = s.overflow[1:]
		s.qmu.Unlock()
		s.submits.Go(job)
	}
}

// waitSubmits blocks until every queued submission has been sent.
func (s *Session) waitSubmits() {
	s.drained.Wait()
	_ = s.submits.Wait()
}

// Finish closes the session. The level bonus is added only when completed is true.
// A failed finalize call is returned as *domain.FinalizeError but the session is
// finished regardless. Repeated calls return the first summary unchanged.
func (s *Session) Finish(ctx context.Context, completed bool) (domain.SessionSummary, error) {
	summary, _, err := s.finish(ctx, completed)
	return summary, err
}

// finish also reports whether this call performed the transition.
func (s *Session) finish(ctx context.Context, completed bool) (domain.SessionSummary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateNotStarted:
		return domain.SessionSummary{}, false, domain.ErrSessionNotStarted
	case domain.StateFinished, domain.StateAbandoned:
		return *s.summary, false, nil
	}
	err := s.finishLocked(ctx, completed)
	return *s.summary, true, err
}

func (s *Session) finishLocked(ctx context.Context, completed bool) error {
	elapsed := s.timer.Stop()
	bonus := CompletionBonus(s.game, completed)
	s.points += bonus

	// Let queued answers reach the backend before the session is closed there.
	s.waitSubmits()

	s.state = domain.StateFinished
	s.summary = &domain.SessionSummary{
		SessionID:     s.id,
		GameID:        s.game.ID,
		Level:         s.level,
		State:         domain.StateFinished,
		Points:        s.points,
		Bonus:         bonus,
		Elapsed:       elapsed,
		Completed:     completed,
		FailedSubmits: int(s.failedSubmits.Load()),
	}

	if err := s.gateway.FinishSession(ctx, s.id, s.points, elapsed, completed); err != nil {
		s.finalizeErr = &domain.FinalizeError{SessionID: s.id, Err: err}
		return s.finalizeErr
	}
	s.summary.Acknowledged = true
	return nil
}

// Abandon leaves the session. An in-progress session is finished as not completed first.
func (s *Session) Abandon(ctx context.Context) (domain.SessionSummary, error) {
	summary, _, err := s.abandon(ctx)
	return summary, err
}

// abandon reports whether a finish ran as part of this call.
func (s *Session) abandon(ctx context.Context) (domain.SessionSummary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateNotStarted:
		s.state = domain.StateAbandoned
		s.summary = &domain.SessionSummary{
			GameID: s.game.ID,
			Level:  s.level,
			State:  domain.StateAbandoned,
		}
		return *s.summary, false, nil
	case domain.StateFinished, domain.StateAbandoned:
		return *s.summary, false, nil
	}

	err := s.finishLocked(ctx, false)
	s.state = domain.StateAbandoned
	s.summary.State = domain.StateAbandoned
	return *s.summary, true, err
}

// RetryFinalize re-sends a finalize call that failed earlier.
func (s *Session) RetryFinalize(ctx context.Context) (domain.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Terminal() || s.finalizeErr == nil {
		return domain.SessionSummary{}, domain.ErrFinalizeNotPending
	}
	sm := s.summary
	if err := s.gateway.FinishSession(ctx, sm.SessionID, sm.Points, sm.Elapsed, sm.Completed); err != nil {
		s.finalizeErr = &domain.FinalizeError{SessionID: sm.SessionID, Err: err}
		return *sm, s.finalizeErr
	}
	s.finalizeErr = nil
	sm.Acknowledged = true
	return *sm, nil
}

// ID returns the server-issued id, empty before Start succeeds.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Points returns the points accrued so far, bonus included once finished.
func (s *Session) Points() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points
}

// Elapsed returns the seconds played; frozen after finish or abandon.
func (s *Session) Elapsed() int {
	return s.timer.Elapsed()
}

// Snapshot returns the client view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID: s.id,
		GameID:    s.game.ID,
		Kind:      s.game.Kind,
		Level:     s.level,
		State:     s.state,
		StartedAt: s.startedAt,
		Elapsed:   s.timer.Elapsed(),
		Points:    s.points,
		Complete:  s.flow.isComplete(),
		Progress:  s.flow.progress(),
	}
	if s.state == domain.StateInProgress {
		s.flow.view(&snap)
	}
	return snap
}
