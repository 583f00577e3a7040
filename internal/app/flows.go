package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"nutriplay-engine/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// subFlow is the game-specific answer/record loop nested in a session.
type subFlow interface {
	// record applies one event. elapsed is the session clock in seconds.
	record(ev domain.Event, elapsed int) (flowOutcome, error)
	isComplete() bool
	progress() domain.Progress
	view(snap *domain.SessionSnapshot)
}

// flowOutcome is what a sub-flow hands back to the session after an event.
type flowOutcome struct {
	delta  int
	quiz   *domain.QuizFeedback
	diary  *domain.DiaryEntry
	submit *submission
	// ended is set when the player asked to move past the last item.
	ended bool
}

// submission is a fire-and-forget sync of one answered item.
type submission struct {
	item int
	send func(ctx context.Context, gw Gateway, sessionID string) error
}

func newSubFlow(game domain.Game) (subFlow, error) {
	switch game.Kind {
	case domain.KindQuiz:
		if len(game.Quiz) == 0 {
			return nil, fmt.Errorf("game %s: empty quiz bank", game.ID)
		}
		return newQuizFlow(game.Quiz), nil
	case domain.KindDiary:
		return newDiaryFlow(), nil
	case domain.KindSurvey:
		if len(game.Survey) == 0 {
			return nil, fmt.Errorf("game %s: empty survey bank", game.ID)
		}
		return newSurveyFlow(game.Survey), nil
	default:
		return nil, fmt.Errorf("game %s: %w: %q", game.ID, domain.ErrUnknownGameKind, game.Kind)
	}
}
