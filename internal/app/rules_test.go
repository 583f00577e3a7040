package app_test

import (
	"testing"

	"nutriplay-engine/internal/app"
	"nutriplay-engine/internal/catalog"
	"nutriplay-engine/internal/domain"
)

func TestCalculateCalories(t *testing.T) {
	testCases := []struct {
		name   string
		counts domain.FoodCounts
		want   int
	}{
		{name: "empty meal", want: 0},
		{name: "fruit vegetable sweets", counts: domain.FoodCounts{Fruit: 2, Vegetable: 1, Sweets: 1}, want: 345},
		{name: "one of each", counts: domain.FoodCounts{Fruit: 1, Vegetable: 1, Protein: 1, Carbohydrate: 1, Dairy: 1, Sweets: 1}, want: 60 + 25 + 150 + 100 + 120 + 200},
		{name: "protein and dairy", counts: domain.FoodCounts{Protein: 2, Dairy: 3}, want: 660},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := app.MealCalories(tc.counts); got != tc.want {
				t.Fatalf("expected %d calories, got %d", tc.want, got)
			}
		})
	}

	if got := app.CalculateCalories(2, 1, 0, 0, 0, 1); got != 345 {
		t.Fatalf("expected 345, got %d", got)
	}
}

func TestQuizAnswerPoints(t *testing.T) {
	for _, item := range catalog.QuizItems() {
		for option := range item.Options {
			correct, points := app.QuizAnswerPoints(item, option)
			if option == item.Answer {
				if !correct || points != 10 {
					t.Fatalf("item %d option %d: expected correct +10, got %v %d", item.Number, option, correct, points)
				}
				continue
			}
			if correct || points != 0 {
				t.Fatalf("item %d option %d: expected wrong +0, got %v %d", item.Number, option, correct, points)
			}
		}
	}
}

func TestCompletionBonus(t *testing.T) {
	game := domain.Game{PointsPerLevel: 40}
	if got := app.CompletionBonus(game, true); got != 40 {
		t.Fatalf("expected 40, got %d", got)
	}
	if got := app.CompletionBonus(game, false); got != 0 {
		t.Fatalf("expected no bonus, got %d", got)
	}
}

func TestSurveyResponseValid(t *testing.T) {
	for v := -1; v <= 7; v++ {
		want := v >= 1 && v <= 5
		if got := app.SurveyResponseValid(v); got != want {
			t.Fatalf("value %d: expected %v", v, want)
		}
	}
}
