package app

import (
	"context"

	"nutriplay-engine/internal/domain"
)

type quizAnswer struct {
	selected  *int
	submitted bool
	correct   bool
}

type quizFlow struct {
	items   []domain.QuizItem
	answers []quizAnswer
	current int
	shownAt int
	ended   bool
}

func newQuizFlow(items []domain.QuizItem) *quizFlow {
	return &quizFlow{
		items:   items,
		answers: make([]quizAnswer, len(items)),
	}
}

func (f *quizFlow) record(ev domain.Event, elapsed int) (flowOutcome, error) {
	if f.ended {
		return flowOutcome{}, domain.ErrFlowComplete
	}
	item := f.items[f.current]
	ans := &f.answers[f.current]

	switch e := ev.(type) {
	case domain.QuizSelect:
		if ans.submitted {
			return flowOutcome{}, domain.ErrAnswerLocked
		}
		if e.Option < 0 || e.Option >= len(item.Options) {
			return flowOutcome{}, domain.ErrInvalidOption
		}
		opt := e.Option
		ans.selected = &opt
		return flowOutcome{}, nil

	case domain.QuizSubmit:
		if ans.submitted {
			return flowOutcome{}, domain.ErrAnswerLocked
		}
		if ans.selected == nil {
			return flowOutcome{}, domain.ErrNoSelection
		}
		correct, points := QuizAnswerPoints(item, *ans.selected)
		ans.submitted = true
		ans.correct = correct
		responseTime := elapsed - f.shownAt
		if responseTime < 0 {
			responseTime = 0
		}
		return flowOutcome{
			delta: points,
			quiz: &domain.QuizFeedback{
				Number:        item.Number,
				Correct:       correct,
				CorrectOption: item.Answer,
				Explanation:   item.Explanation,
			},
			submit: &submission{
				item: item.Number,
				send: func(ctx context.Context, gw Gateway, sessionID string) error {
					return gw.SubmitQuizAnswer(ctx, sessionID, item, correct, responseTime)
				},
			},
		}, nil

	case domain.QuizNext:
		if !ans.submitted {
			return flowOutcome{}, domain.ErrAnswerPending
		}
		if f.current == len(f.items)-1 {
			f.ended = true
			return flowOutcome{ended: true}, nil
		}
		f.current++
		f.shownAt = elapsed
		return flowOutcome{}, nil
	}
	return flowOutcome{}, domain.ErrWrongGameKind
}

func (f *quizFlow) isComplete() bool {
	for _, a := range f.answers {
		if !a.submitted {
			return false
		}
	}
	return true
}

func (f *quizFlow) progress() domain.Progress {
	done := 0
	for _, a := range f.answers {
		if a.submitted {
			done++
		}
	}
	return domain.Progress{Done: done, Total: len(f.items)}
}

func (f *quizFlow) view(snap *domain.SessionSnapshot) {
	item := f.items[f.current]
	ans := f.answers[f.current]
	v := &domain.QuizView{
		Number:    item.Number,
		Question:  item.Question,
		Options:   append([]string(nil), item.Options...),
		Topic:     item.Topic,
		Submitted: ans.submitted,
	}
	if ans.selected != nil {
		sel := *ans.selected
		v.Selected = &sel
	}
	if ans.submitted {
		v.Correct = ans.correct
		v.Explanation = item.Explanation
	}
	snap.Quiz = v
}
