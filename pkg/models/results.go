package models

import "time"

// Variability classifies how many distinct emotions appeared in a sample.
type Variability string

const (
	VariabilityStable   Variability = "Stable"
	VariabilityMild     Variability = "Mild"
	VariabilityModerate Variability = "Moderate"
	VariabilityHigh     Variability = "High"
)

// Trend is the overall emotional direction of a sample, derived from its
// dominant emotion.
type Trend string

const (
	TrendPositive Trend = "Predominantly positive"
	TrendNeutral  Trend = "Predominantly neutral"
	TrendNegative Trend = "Predominantly negative"
	TrendNoData   Trend = "No data"
)

// Results is the aggregated summary of a set of frames. Emotions that never
// occurred are omitted from Distribution; DominantEmotion and RarestEmotion
// are empty when no frames were recorded.
type Results struct {
	TotalFrames       int                  `json:"total_frames"`
	Distribution      map[EmotionLabel]int `json:"emotion_distribution"`
	AverageConfidence float64              `json:"average_confidence"`
	DominantEmotion   EmotionLabel         `json:"dominant_emotion,omitempty"`
	RarestEmotion     EmotionLabel         `json:"rarest_emotion,omitempty"`
	Variability       Variability          `json:"variability"`
	Trend             Trend                `json:"trend"`
	Observations      []string             `json:"observations"`
}

// QuestionResults couples a question's identity with its aggregated results.
// Timestamp is the time the question's first frame was recorded.
type QuestionResults struct {
	QuestionID string    `json:"question_id"`
	Timestamp  time.Time `json:"timestamp"`
	Results
}

// SessionResults is the full aggregated payload for a session: the summary
// across all frames plus the per-question breakdown in question insertion
// order.
type SessionResults struct {
	SessionID      string        `json:"session_id"`
	Status         SessionStatus `json:"status"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	TotalQuestions int           `json:"total_questions"`
	Results
	Questions []QuestionResults `json:"questions"`
}
