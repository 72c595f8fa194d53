package models

import "time"

// Frame is a single classified capture within a question. Frames are
// immutable once recorded.
type Frame struct {
	FrameID    string       `json:"frame_id"`
	Emotion    EmotionLabel `json:"emotion"`
	Confidence float64      `json:"confidence"`
	Timestamp  time.Time    `json:"timestamp"`
}

// QuestionFrame pairs a frame with the question it was recorded under.
type QuestionFrame struct {
	QuestionID string `json:"question_id"`
	Frame
}
