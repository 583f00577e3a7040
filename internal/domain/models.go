package domain

import (
	"fmt"
	"time"
)

// GameKind selects the sub-flow that drives a session.
type GameKind string

const (
	KindQuiz   GameKind = "quiz"
	KindDiary  GameKind = "diary"
	KindSurvey GameKind = "survey"
)

// ParseGameKind validates a kind read from storage or config.
func ParseGameKind(raw string) (GameKind, error) {
	switch k := GameKind(raw); k {
	case KindQuiz, KindDiary, KindSurvey:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGameKind, raw)
	}
}

// Game is a catalog entry. Kind is explicit; the display name never drives dispatch.
type Game struct {
	ID             string       `json:"id" yaml:"id" validate:"required"`
	Name           string       `json:"name" yaml:"name" validate:"required"`
	Kind           GameKind     `json:"kind" yaml:"kind" validate:"required,oneof=quiz diary survey"`
	MaxLevels      int          `json:"maxLevels" yaml:"maxLevels" validate:"gte=1"`
	PointsPerLevel int          `json:"pointsPerLevel" yaml:"pointsPerLevel" validate:"gte=0"`
	Quiz           []QuizItem   `json:"quiz,omitempty" yaml:"quiz,omitempty" validate:"required_if=Kind quiz,dive"`
	Survey         []SurveyItem `json:"survey,omitempty" yaml:"survey,omitempty" validate:"required_if=Kind survey,dive"`
}

// QuizItem is one multiple choice question with exactly four options.
type QuizItem struct {
	Number      int      `json:"number" yaml:"number" validate:"gte=1"`
	Question    string   `json:"question" yaml:"question" validate:"required"`
	Options     []string `json:"options" yaml:"options" validate:"len=4,dive,required"`
	Answer      int      `json:"answer" yaml:"answer" validate:"gte=0,lte=3"`
	Topic       string   `json:"topic" yaml:"topic"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// SurveyItem is a Likert statement tagged with a stage of change.
type SurveyItem struct {
	Number    int    `json:"number" yaml:"number" validate:"gte=1"`
	Statement string `json:"statement" yaml:"statement" validate:"required"`
	Stage     string `json:"stage" yaml:"stage" validate:"required"`
}

// MealSlot is one of the three daily diary slots.
type MealSlot string

const (
	Breakfast MealSlot = "breakfast"
	Lunch     MealSlot = "lunch"
	Dinner    MealSlot = "dinner"
)

// Next returns the following slot and whether the day rolls over.
func (m MealSlot) Next() (MealSlot, bool) {
	switch m {
	case Breakfast:
		return Lunch, false
	case Lunch:
		return Dinner, false
	default:
		return Breakfast, true
	}
}

// Mood is the optional feeling attached to a diary entry.
type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodNormal   Mood = "normal"
	MoodSad      Mood = "sad"
	MoodStressed Mood = "stressed"
	MoodAnxious  Mood = "anxious"
)

// FoodCounts holds servings per food category for one meal.
type FoodCounts struct {
	Fruit        int `json:"fruit" validate:"gte=0"`
	Vegetable    int `json:"vegetable" validate:"gte=0"`
	Protein      int `json:"protein" validate:"gte=0"`
	Carbohydrate int `json:"carbohydrate" validate:"gte=0"`
	Dairy        int `json:"dairy" validate:"gte=0"`
	Sweets       int `json:"sweets" validate:"gte=0"`
}

// DiaryEntry is a submitted diary record for one day and meal slot.
type DiaryEntry struct {
	Day      int        `json:"day"`
	Slot     MealSlot   `json:"slot"`
	Counts   FoodCounts `json:"counts"`
	Mood     Mood       `json:"mood,omitempty"`
	Note     string     `json:"note,omitempty"`
	Calories int        `json:"calories"`
}

// Event is an answer or record sent to an in-progress session.
type Event interface {
	Kind() GameKind
}

// QuizSelect picks an option for the current quiz item. It may change until submit.
type QuizSelect struct {
	Option int `json:"option"`
}

// QuizSubmit locks the selected option for the current quiz item.
type QuizSubmit struct{}

// QuizNext moves to the following quiz item.
type QuizNext struct{}

// DiaryRecord fills the current diary slot.
type DiaryRecord struct {
	Counts FoodCounts `json:"counts"`
	Mood   Mood       `json:"mood,omitempty" validate:"omitempty,oneof=happy normal sad stressed anxious"`
	Note   string     `json:"note,omitempty" validate:"max=500"`
}

// SurveyAnswer answers the current survey item.
type SurveyAnswer struct {
	Value int `json:"value"`
}

func (QuizSelect) Kind() GameKind   { return KindQuiz }
func (QuizSubmit) Kind() GameKind   { return KindQuiz }
func (QuizNext) Kind() GameKind     { return KindQuiz }
func (DiaryRecord) Kind() GameKind  { return KindDiary }
func (SurveyAnswer) Kind() GameKind { return KindSurvey }

// SessionState is the lifecycle position of a session.
type SessionState string

const (
	StateNotStarted SessionState = "not_started"
	StateInProgress SessionState = "in_progress"
	StateFinished   SessionState = "finished"
	StateAbandoned  SessionState = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	return s == StateFinished || s == StateAbandoned
}

// QuizView is the client-safe view of the current quiz item.
type QuizView struct {
	Number      int      `json:"number"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Topic       string   `json:"topic"`
	Selected    *int     `json:"selected,omitempty"`
	Submitted   bool     `json:"submitted"`
	Correct     bool     `json:"correct,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// DiaryView is the slot waiting to be recorded.
type DiaryView struct {
	Day      int      `json:"day"`
	Slot     MealSlot `json:"slot"`
	Recorded int      `json:"recorded"`
}

// SurveyView is the current survey statement.
type SurveyView struct {
	Number    int    `json:"number"`
	Statement string `json:"statement"`
	Stage     string `json:"stage"`
}

// Progress counts finished items against the flow total.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// SessionSnapshot is what clients see of a session.
type SessionSnapshot struct {
	SessionID string       `json:"sessionId,omitempty"`
	GameID    string       `json:"gameId"`
	Kind      GameKind     `json:"kind"`
	Level     int          `json:"level"`
	State     SessionState `json:"state"`
	StartedAt time.Time    `json:"startedAt,omitempty"`
	Elapsed   int          `json:"elapsed"`
	Points    int          `json:"points"`
	Complete  bool         `json:"complete"`
	Progress  Progress     `json:"progress"`
	Quiz      *QuizView    `json:"quiz,omitempty"`
	Diary     *DiaryView   `json:"diary,omitempty"`
	Survey    *SurveyView  `json:"survey,omitempty"`
}

// QuizFeedback is revealed after a quiz submit regardless of correctness.
type QuizFeedback struct {
	Number        int    `json:"number"`
	Correct       bool   `json:"correct"`
	CorrectOption int    `json:"correctOption"`
	Explanation   string `json:"explanation"`
}

// EventResult is the outcome of one recorded event.
type EventResult struct {
	Delta    int             `json:"delta"`
	Points   int             `json:"points"`
	Complete bool            `json:"complete"`
	Quiz     *QuizFeedback   `json:"quiz,omitempty"`
	Diary    *DiaryEntry     `json:"diary,omitempty"`
	Snapshot SessionSnapshot `json:"snapshot"`
	Summary  *SessionSummary `json:"summary,omitempty"`
}

// SessionSummary is the frozen result of a finished or abandoned session.
type SessionSummary struct {
	SessionID     string       `json:"sessionId"`
	GameID        string       `json:"gameId"`
	Level         int          `json:"level"`
	State         SessionState `json:"state"`
	Points        int          `json:"points"`
	Bonus         int          `json:"bonus"`
	Elapsed       int          `json:"elapsed"`
	Completed     bool         `json:"completed"`
	Acknowledged  bool         `json:"acknowledged"`
	FailedSubmits int          `json:"failedSubmits"`
}

// PendingDelta is a locally applied point increment the server may not reflect yet.
type PendingDelta struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	Points       int       `json:"points"`
	Acknowledged bool      `json:"acknowledged"`
	AppliedAt    time.Time `json:"appliedAt"`
}

// Notification is a message for a student.
type Notification struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Read    bool      `json:"read"`
	Type    string    `json:"type,omitempty"`
}

// StudentState is the per-student projection shared by all screens: points and notifications.
type StudentState struct {
	StudentID     string         `json:"studentId"`
	Confirmed     int            `json:"confirmed"`
	Pending       []PendingDelta `json:"pending"`
	Notifications []Notification `json:"notifications"`
	RefreshedAt   time.Time      `json:"refreshedAt,omitempty"`
}

// Total is the display value: server total plus everything not yet reflected by it.
func (s StudentState) Total() int {
	total := s.Confirmed
	for _, d := range s.Pending {
		total += d.Points
	}
	return total
}

// Unread counts unread notifications.
func (s StudentState) Unread() int {
	n := 0
	for _, note := range s.Notifications {
		if !note.Read {
			n++
		}
	}
	return n
}

// GameProgress joins a backend progress row with the local catalog kind.
type GameProgress struct {
	GameID         string   `json:"gameId"`
	Name           string   `json:"name"`
	Kind           GameKind `json:"kind"`
	MaxLevels      int      `json:"maxLevels"`
	PointsPerLevel int      `json:"pointsPerLevel"`
	CurrentLevel   int      `json:"currentLevel"`
	PointsEarned   int      `json:"pointsEarned"`
	TimesPlayed    int      `json:"timesPlayed"`
	Completed      bool     `json:"completed"`
}

// SessionRecord is one past session as reported by the backend.
type SessionRecord struct {
	ID        string    `json:"id"`
	GameName  string    `json:"gameName"`
	Level     int       `json:"level"`
	Points    int       `json:"points"`
	Elapsed   int       `json:"elapsed"`
	Completed bool      `json:"completed"`
	PlayedAt  time.Time `json:"playedAt"`
}
