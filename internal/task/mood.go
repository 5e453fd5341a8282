package task

import (
	"fmt"

	"github.com/Iron-Ham/gentle/internal/errors"
)

// Emotion is the self-reported feeling passed to a breakdown.
type Emotion string

// Accepted emotions.
const (
	EmotionCalm      Emotion = "calm"
	EmotionAnxious   Emotion = "anxious"
	EmotionTired     Emotion = "tired"
	EmotionEnergized Emotion = "energized"
	EmotionLow       Emotion = "low"
	EmotionMixed     Emotion = "mixed"
)

// Emotions lists every accepted emotion in display order.
func Emotions() []Emotion {
	return []Emotion{EmotionCalm, EmotionAnxious, EmotionTired, EmotionEnergized, EmotionLow, EmotionMixed}
}

// Label returns the capitalized display label.
func (e Emotion) Label() string {
	switch e {
	case EmotionCalm:
		return "Calm"
	case EmotionAnxious:
		return "Anxious"
	case EmotionTired:
		return "Tired"
	case EmotionEnergized:
		return "Energized"
	case EmotionLow:
		return "Low"
	case EmotionMixed:
		return "Mixed"
	default:
		return string(e)
	}
}

// Valid reports whether e is one of Emotions().
func (e Emotion) Valid() bool {
	for _, known := range Emotions() {
		if e == known {
			return true
		}
	}
	return false
}

// Energy levels, from drained to buzzing.
const (
	MinEnergy     = 0
	MaxEnergy     = 5
	DefaultEnergy = 2
)

var energyLabels = [...]string{"Drained", "Low", "Okay", "Good", "High", "Buzzing"}

// EnergyLabel returns the display label for an energy level.
func EnergyLabel(level int) string {
	if level < MinEnergy || level > MaxEnergy {
		return fmt.Sprintf("%d", level)
	}
	return energyLabels[level]
}

// ClampEnergy bounds level to [MinEnergy, MaxEnergy].
func ClampEnergy(level int) int {
	return max(MinEnergy, min(MaxEnergy, level))
}

// Mood is the mood/energy context supplied at check-in.
type Mood struct {
	Emotion Emotion
	Energy  int
}

// Validate requires a known emotion and an in-range energy level.
func (m Mood) Validate() error {
	if m.Emotion == "" || !m.Emotion.Valid() {
		return errors.NewValidationError("Please select how you're feeling").
			WithField("emotion").WithValue(string(m.Emotion))
	}
	if m.Energy < MinEnergy || m.Energy > MaxEnergy {
		return errors.NewValidationError(fmt.Sprintf("Energy must be between %d and %d", MinEnergy, MaxEnergy)).
			WithField("energy").WithValue(m.Energy)
	}
	return nil
}
