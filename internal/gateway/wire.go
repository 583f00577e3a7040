package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"nutriplay-engine/internal/domain"
)

// envelope wraps every backend response.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type startRequest struct {
	GameID string `json:"juegoId"`
	Level  int    `json:"nivel"`
}

type finishRequest struct {
	SessionID string `json:"sesionId"`
	Points    int    `json:"puntosObtenidos"`
	Elapsed   int    `json:"tiempoJugado"`
	Completed bool   `json:"completado"`
}

type quizAnswerRequest struct {
	SessionID    string `json:"sesionId"`
	Number       int    `json:"preguntaNumero"`
	Topic        string `json:"preguntaTema"`
	Correct      bool   `json:"respuestaCorrecta"`
	ResponseTime int    `json:"tiempoRespuesta"`
}

type diaryRequest struct {
	SessionID    string `json:"sesionId"`
	Day          int    `json:"diaNumero"`
	Slot         string `json:"momentoDia"`
	Fruit        int    `json:"alimentosFrutas"`
	Vegetable    int    `json:"alimentosVerduras"`
	Protein      int    `json:"alimentosProteinas"`
	Carbohydrate int    `json:"alimentosCarbohidratos"`
	Dairy        int    `json:"alimentosLacteos"`
	Sweets       int    `json:"alimentosDulces"`
	Mood         string `json:"emocion,omitempty"`
	Calories     int    `json:"caloriasEstimadas"`
	Note         string `json:"notas,omitempty"`
}

type surveyAnswerRequest struct {
	SessionID string `json:"sesionId"`
	Number    int    `json:"preguntaNumero"`
	Stage     string `json:"preguntaEtapa"`
	Value     int    `json:"respuestaValor"`
}

var slotNames = map[domain.MealSlot]string{
	domain.Breakfast: "Desayuno",
	domain.Lunch:     "Almuerzo",
	domain.Dinner:    "Cena",
}

var moodNames = map[domain.Mood]string{
	domain.MoodHappy:    "feliz",
	domain.MoodNormal:   "normal",
	domain.MoodSad:      "triste",
	domain.MoodStressed: "estresado",
	domain.MoodAnxious:  "ansioso",
}

func newDiaryRequest(sessionID string, e domain.DiaryEntry) diaryRequest {
	return diaryRequest{
		SessionID:    sessionID,
		Day:          e.Day,
		Slot:         slotNames[e.Slot],
		Fruit:        e.Counts.Fruit,
		Vegetable:    e.Counts.Vegetable,
		Protein:      e.Counts.Protein,
		Carbohydrate: e.Counts.Carbohydrate,
		Dairy:        e.Counts.Dairy,
		Sweets:       e.Counts.Sweets,
		Mood:         moodNames[e.Mood],
		Calories:     e.Calories,
		Note:         e.Note,
	}
}

type sessionResponse struct {
	ID          string    `json:"id"`
	GameName    string    `json:"juegoNombre"`
	Level       int       `json:"nivelJugado"`
	Points      int       `json:"puntosObtenidos"`
	Elapsed     int       `json:"tiempoJugado"`
	Completed   bool      `json:"completado"`
	SessionDate timestamp `json:"fechaSesion"`
}

func (r sessionResponse) toDomain() domain.SessionRecord {
	return domain.SessionRecord{
		ID:        r.ID,
		GameName:  r.GameName,
		Level:     r.Level,
		Points:    r.Points,
		Elapsed:   r.Elapsed,
		Completed: r.Completed,
		PlayedAt:  time.Time(r.SessionDate),
	}
}

type gameResponse struct {
	ID             string `json:"id"`
	Name           string `json:"nombre"`
	MaxLevels      int    `json:"maxNiveles"`
	PointsPerLevel int    `json:"puntosPorNivel"`
	CurrentLevel   int    `json:"nivelActual"`
	PointsEarned   int    `json:"puntosGanados"`
	TimesPlayed    int    `json:"vecesJugado"`
	Completed      bool   `json:"completado"`
}

func (r gameResponse) toDomain() domain.GameProgress {
	return domain.GameProgress{
		GameID:         r.ID,
		Name:           r.Name,
		MaxLevels:      r.MaxLevels,
		PointsPerLevel: r.PointsPerLevel,
		CurrentLevel:   r.CurrentLevel,
		PointsEarned:   r.PointsEarned,
		TimesPlayed:    r.TimesPlayed,
		Completed:      r.Completed,
	}
}

type notificationResponse struct {
	ID      string    `json:"id"`
	Title   string    `json:"titulo"`
	Message string    `json:"mensaje"`
	Date    timestamp `json:"fecha"`
	Read    bool      `json:"leida"`
	Type    string    `json:"tipo,omitempty"`
}

func (r notificationResponse) toDomain() domain.Notification {
	return domain.Notification{
		ID:      r.ID,
		Title:   r.Title,
		Message: r.Message,
		Date:    time.Time(r.Date),
		Read:    r.Read,
		Type:    r.Type,
	}
}

// timestamp accepts the backend's zoned and zoneless ISO dates. Zoneless values are UTC.
type timestamp time.Time

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*t = timestamp{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			*t = timestamp(parsed)
			return nil
		}
		lastErr = err
	}
	return lastErr
}
