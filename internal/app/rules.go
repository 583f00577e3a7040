package app

import "nutriplay-engine/internal/domain"

// Point values per event.
const (
	QuizCorrectPoints = 10
	DiaryEntryPoints  = 5
	SurveyPoints      = 5
)

// Diary shape: seven days of three meal slots.
const (
	DiaryDays       = 7
	DiarySlotsByDay = 3
	DiaryEntries    = DiaryDays * DiarySlotsByDay
)

// Calories per serving by food category.
const (
	fruitCalories        = 60
	vegetableCalories    = 25
	proteinCalories      = 150
	carbohydrateCalories = 100
	dairyCalories        = 120
	sweetsCalories       = 200
)

// QuizAnswerPoints scores a submitted quiz answer by index equality.
func QuizAnswerPoints(item domain.QuizItem, selected int) (bool, int) {
	if selected == item.Answer {
		return true, QuizCorrectPoints
	}
	return false, 0
}

// CalculateCalories estimates the calories of one meal from serving counts.
func CalculateCalories(fruit, vegetable, protein, carbohydrate, dairy, sweets int) int {
	return fruit*fruitCalories +
		vegetable*vegetableCalories +
		protein*proteinCalories +
		carbohydrate*carbohydrateCalories +
		dairy*dairyCalories +
		sweets*sweetsCalories
}

// MealCalories applies CalculateCalories to a counts record.
func MealCalories(c domain.FoodCounts) int {
	return CalculateCalories(c.Fruit, c.Vegetable, c.Protein, c.Carbohydrate, c.Dairy, c.Sweets)
}

// SurveyResponseValid reports whether a Likert value is in range.
func SurveyResponseValid(value int) bool {
	return value >= 1 && value <= 5
}

// CompletionBonus is the level bonus granted when a session finishes completed.
func CompletionBonus(game domain.Game, completed bool) int {
	if !completed || game.PointsPerLevel < 0 {
		return 0
	}
	return game.PointsPerLevel
}
