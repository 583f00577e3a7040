// Package catalog holds the built-in item bank and loads game catalogs from YAML.
package catalog

import "nutriplay-engine/internal/domain"

// Default game ids. Deployments map them to the backend's juegoId values through the catalog file.
const (
	QuizGameID   = "nutrition-challenge"
	DiaryGameID  = "seven-day-challenge"
	SurveyGameID = "express-coach"
)

// Default returns the built-in catalog keyed by game id.
func Default() map[string]domain.Game {
	games := []domain.Game{
		{
			ID:             QuizGameID,
			Name:           "Nutrition Challenge",
			Kind:           domain.KindQuiz,
			MaxLevels:      5,
			PointsPerLevel: 50,
			Quiz:           QuizItems(),
		},
		{
			ID:             DiaryGameID,
			Name:           "7-Day Challenge",
			Kind:           domain.KindDiary,
			MaxLevels:      3,
			PointsPerLevel: 100,
		},
		{
			ID:             SurveyGameID,
			Name:           "Express Coach",
			Kind:           domain.KindSurvey,
			MaxLevels:      3,
			PointsPerLevel: 30,
			Survey:         SurveyItems(),
		},
	}
	out := make(map[string]domain.Game, len(games))
	for _, g := range games {
		out[g.ID] = g
	}
	return out
}

// QuizItems is the default five-question bank. Topics are the backend's tags and
// are sent as they are.
func QuizItems() []domain.QuizItem {
	return []domain.QuizItem{
		{
			Number:      1,
			Question:    "Which vitamin helps your eyesight?",
			Options:     []string{"Vitamin A", "Vitamin C", "Vitamin D", "Vitamin E"},
			Answer:      0,
			Topic:       "Vitaminas",
			Explanation: "Vitamin A keeps your vision working well, especially in low light.",
		},
		{
			Number:      2,
			Question:    "Which nutrient is the body's main source of energy?",
			Options:     []string{"Proteins", "Carbohydrates", "Fats", "Vitamins"},
			Answer:      1,
			Topic:       "Macronutrientes",
			Explanation: "Carbohydrates are the main fuel for the body and the brain.",
		},
		{
			Number:      3,
			Question:    "How many glasses of water should you drink a day?",
			Options:     []string{"2-3 glasses", "4-5 glasses", "6-8 glasses", "10-12 glasses"},
			Answer:      2,
			Topic:       "Hidratación",
			Explanation: "Six to eight glasses a day keep you well hydrated.",
		},
		{
			Number:      4,
			Question:    "Which mineral matters most for bones and teeth?",
			Options:     []string{"Iron", "Calcium", "Zinc", "Magnesium"},
			Answer:      1,
			Topic:       "Minerales",
			Explanation: "Calcium keeps bones and teeth strong.",
		},
		{
			Number:      5,
			Question:    "Which of these is a good source of protein?",
			Options:     []string{"Bread", "Chicken", "Lettuce", "Apple"},
			Answer:      1,
			Topic:       "Proteínas",
			Explanation: "Chicken is a lean protein that helps build and repair tissue.",
		},
	}
}

// SurveyItems is the default eight-statement coach survey. Stages use the backend's
// stage-of-change names.
func SurveyItems() []domain.SurveyItem {
	return []domain.SurveyItem{
		{Number: 1, Statement: "How important is it for you to improve how you eat?", Stage: "Pre-contemplación"},
		{Number: 2, Statement: "Do you think your current diet needs changes?", Stage: "Contemplación"},
		{Number: 3, Statement: "Are you ready to change your diet this week?", Stage: "Preparación"},
		{Number: 4, Statement: "Have you recently tried to improve your eating habits?", Stage: "Acción"},
		{Number: 5, Statement: "Do you feel able to keep a healthy diet in the long run?", Stage: "Mantenimiento"},
		{Number: 6, Statement: "Does your family support you in eating better?", Stage: "Apoyo Social"},
		{Number: 7, Statement: "Do you know the health benefits of a balanced diet?", Stage: "Conocimiento"},
		{Number: 8, Statement: "Are you motivated to reach your nutrition goals?", Stage: "Motivación"},
	}
}
