// Package models contains domain models for moodtrace.
package models

import (
	"fmt"
	"strings"
)

// EmotionLabel identifies one of the seven emotion classes produced by the
// external classifier.
type EmotionLabel string

const (
	EmotionAngry    EmotionLabel = "Angry"
	EmotionDisgust  EmotionLabel = "Disgust"
	EmotionFear     EmotionLabel = "Fear"
	EmotionHappy    EmotionLabel = "Happy"
	EmotionSad      EmotionLabel = "Sad"
	EmotionSurprise EmotionLabel = "Surprise"
	EmotionNeutral  EmotionLabel = "Neutral"
)

// AllEmotions lists every recognized emotion label in canonical order.
var AllEmotions = []EmotionLabel{
	EmotionAngry,
	EmotionDisgust,
	EmotionFear,
	EmotionHappy,
	EmotionSad,
	EmotionSurprise,
	EmotionNeutral,
}

// Valid reports whether the label is one of the recognized emotion classes.
func (e EmotionLabel) Valid() bool {
	for _, known := range AllEmotions {
		if e == known {
			return true
		}
	}
	return false
}

// ParseEmotion converts a raw label to its canonical form.
// Matching is case-insensitive; unknown labels return an error.
func ParseEmotion(raw string) (EmotionLabel, error) {
	for _, known := range AllEmotions {
		if strings.EqualFold(raw, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown emotion label %q", raw)
}
