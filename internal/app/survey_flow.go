package app

import (
	"context"

	"nutriplay-engine/internal/domain"
)

type surveyFlow struct {
	items     []domain.SurveyItem
	responses []int
}

func newSurveyFlow(items []domain.SurveyItem) *surveyFlow {
	return &surveyFlow{items: items}
}

func (f *surveyFlow) record(ev domain.Event, _ int) (flowOutcome, error) {
	ans, ok := ev.(domain.SurveyAnswer)
	if !ok {
		return flowOutcome{}, domain.ErrWrongGameKind
	}
	if f.isComplete() {
		return flowOutcome{}, domain.ErrFlowComplete
	}
	if !SurveyResponseValid(ans.Value) {
		return flowOutcome{}, domain.ErrInvalidResponse
	}
	item := f.items[len(f.responses)]
	f.responses = append(f.responses, ans.Value)
	value := ans.Value
	return flowOutcome{
		delta: SurveyPoints,
		submit: &submission{
			item: item.Number,
			send: func(ctx context.Context, gw Gateway, sessionID string) error {
				return gw.SubmitSurveyAnswer(ctx, sessionID, item, value)
			},
		},
	}, nil
}

func (f *surveyFlow) isComplete() bool {
	return len(f.responses) >= len(f.items)
}

func (f *surveyFlow) progress() domain.Progress {
	return domain.Progress{Done: len(f.responses), Total: len(f.items)}
}

func (f *surveyFlow) view(snap *domain.SessionSnapshot) {
	if f.isComplete() {
		return
	}
	item := f.items[len(f.responses)]
	snap.Survey = &domain.SurveyView{Number: item.Number, Statement: item.Statement, Stage: item.Stage}
}
