// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the level an exercise belongs to.
type Difficulty string

// Difficulty levels in display order.
const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// Difficulties lists every difficulty in display order.
func Difficulties() []Difficulty {
	return []Difficulty{Beginner, Intermediate, Advanced}
}

// ParseDifficulty resolves a difficulty name case-insensitively.
func ParseDifficulty(name string) (Difficulty, error) {
	name = strings.TrimSpace(name)
	for _, d := range Difficulties() {
		if strings.EqualFold(name, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q (expected beginner, intermediate or advanced)", name)
}

// Valid reports whether d is one of the enumerated difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	default:
		return false
	}
}

// Category groups exercises by kind.
type Category string

// Exercise categories.
const (
	TongueTwister Category = "TongueTwister"
	Text          Category = "Text"
	Articulation  Category = "Articulation"
)

// Label returns a human-readable category name.
func (c Category) Label() string {
	switch c {
	case TongueTwister:
		return "Tongue twister"
	case Articulation:
		return "Articulation"
	default:
		return "Text"
	}
}

// Exercise is a single practice prompt.
type Exercise struct {
	ID         string
	Text       string
	Difficulty Difficulty
	Category   Category
}

// SessionRecord marks a completed exercise attempt in the history.
type SessionRecord struct {
	ExerciseID string    `json:"exerciseId"`
	Date       time.Time `json:"date"`
	// Accuracy is reserved; the matcher never fills it.
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// Feedback is the verdict for the latest recognition attempt.
type Feedback int

// Feedback verdicts.
const (
	FeedbackNeutral Feedback = iota
	FeedbackMatch
	FeedbackMismatch
)

func (f Feedback) String() string {
	switch f {
	case FeedbackMatch:
		return "match"
	case FeedbackMismatch:
		return "mismatch"
	default:
		return "neutral"
	}
}

// Config defines practice settings.
type Config struct {
	Level      Difficulty
	Lang       string
	Recognizer string
	Model      string
	BaseURL    string
	Device     string
}

// HistoryFilter narrows history output.
type HistoryFilter struct {
	Since *time.Time
	Last  int
}

// ExerciseCount aggregates completions for one exercise.
type ExerciseCount struct {
	ExerciseID string
	Count      int
	LastAt     time.Time
}

// DayCount is the number of completions on one calendar day.
type DayCount struct {
	Day   time.Time
	Count int
}
