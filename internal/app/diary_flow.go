package app

import (
	"context"
	"fmt"

	"nutriplay-engine/internal/domain"
)

type diaryFlow struct {
	day     int
	slot    domain.MealSlot
	entries []domain.DiaryEntry
}

func newDiaryFlow() *diaryFlow {
	return &diaryFlow{day: 1, slot: domain.Breakfast}
}

func (f *diaryFlow) record(ev domain.Event, _ int) (flowOutcome, error) {
	rec, ok := ev.(domain.DiaryRecord)
	if !ok {
		return flowOutcome{}, domain.ErrWrongGameKind
	}
	if f.isComplete() {
		return flowOutcome{}, domain.ErrFlowComplete
	}
	if err := validate.Struct(rec); err != nil {
		return flowOutcome{}, fmt.Errorf("%w: %v", domain.ErrInvalidDiaryEntry, err)
	}

	entry := domain.DiaryEntry{
		Day:      f.day,
		Slot:     f.slot,
		Counts:   rec.Counts,
		Mood:     rec.Mood,
		Note:     rec.Note,
		Calories: MealCalories(rec.Counts),
	}
	f.entries = append(f.entries, entry)
	f.advance()

	return flowOutcome{
		delta: DiaryEntryPoints,
		diary: &entry,
		submit: &submission{
			item: len(f.entries),
			send: func(ctx context.Context, gw Gateway, sessionID string) error {
				return gw.SubmitDiaryEntry(ctx, sessionID, entry)
			},
		},
	}, nil
}

// advance moves Breakfast -> Lunch -> Dinner -> next day's Breakfast.
func (f *diaryFlow) advance() {
	next, rollover := f.slot.Next()
	f.slot = next
	if rollover {
		f.day++
	}
}

func (f *diaryFlow) isComplete() bool {
	return len(f.entries) >= DiaryEntries
}

func (f *diaryFlow) progress() domain.Progress {
	return domain.Progress{Done: len(f.entries), Total: DiaryEntries}
}

func (f *diaryFlow) view(snap *domain.SessionSnapshot) {
	if f.isComplete() {
		snap.Diary = &domain.DiaryView{Day: DiaryDays, Slot: domain.Dinner, Recorded: len(f.entries)}
		return
	}
	snap.Diary = &domain.DiaryView{Day: f.day, Slot: f.slot, Recorded: len(f.entries)}
}
