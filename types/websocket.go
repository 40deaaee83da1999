package types

import "time"

// ProgressMessage represents a WebSocket progress update message
type ProgressMessage struct {
	JobID     string    `json:"jobId"`
	Type      string    `json:"type"`     // "progress", "status", "complete", "error"
	Progress  float64   `json:"progress"` // 0-100 percentage
	Status    string    `json:"status"`
	Filename  string    `json:"filename,omitempty"`
	Speed     string    `json:"speed,omitempty"`
	ETA       string    `json:"eta,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
