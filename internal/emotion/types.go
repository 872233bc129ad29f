// Package emotion defines the facial-emotion collaborator contract and a
// streaming client for it. Inference itself happens outside this core;
// only the resulting samples flow in.
package emotion

import "time"

// Neutral is the baseline emotion label.
const Neutral = "neutral"

// Sample is one detection result from the external emotion collaborator.
type Sample struct {
	Emotion           string    `json:"emotion"`
	Confidence        float64   `json:"confidence"` // 0..1
	VisualDescription string    `json:"visual_description,omitempty"`
	FaceDetected      bool      `json:"face_detected"`
	Timestamp         time.Time `json:"timestamp"`
}

// IsNeutral reports whether the sample carries no notable emotion.
func (s Sample) IsNeutral() bool {
	return s.Emotion == "" || s.Emotion == Neutral
}
