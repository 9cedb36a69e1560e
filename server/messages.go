package server

import (
	"encoding/json"
	"time"
)

// WebSocket and SSE message types.
const (
	MessageTypeProgress  = "progress"
	MessageTypeStatus    = "status"
	MessageTypeError     = "error"
	MessageTypeComplete  = "complete"
	MessageTypeCancelled = "cancelled"
	MessageTypePing      = "ping"
)

// WebSocketMessage is the envelope for every broadcast message.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	JobID     string      `json:"jobId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ProgressUpdate reports how far a job has advanced. One step is one
// completed concurrency run on one engine.
type ProgressUpdate struct {
	JobID          string  `json:"jobId"`
	Status         string  `json:"status"`
	Engine         string  `json:"engine,omitempty"`
	Concurrency    int     `json:"concurrency,omitempty"`
	Progress       float64 `json:"progress"` // 0-100
	ElapsedTime    float64 `json:"elapsedTime"`
	CurrentStep    string  `json:"currentStep,omitempty"`
	TotalSteps     int     `json:"totalSteps"`
	CompletedSteps int     `json:"completedSteps"`
}

// CompletionMessage carries the final comparison results.
type CompletionMessage struct {
	JobID     string      `json:"jobId"`
	Status    string      `json:"status"`
	Results   interface{} `json:"results,omitempty"`
	Duration  float64     `json:"duration"`
	Completed time.Time   `json:"completed"`
}

// ErrorMessage carries a job failure.
type ErrorMessage struct {
	JobID   string `json:"jobId"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CancellationMessage carries a job cancellation.
type CancellationMessage struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Cancelled time.Time `json:"cancelled"`
}

func NewProgressMessage(jobID string, progress ProgressUpdate) *WebSocketMessage {
	return &WebSocketMessage{Type: MessageTypeProgress, JobID: jobID, Timestamp: time.Now(), Data: progress}
}

func NewCompletionMessage(jobID string, completion CompletionMessage) *WebSocketMessage {
	return &WebSocketMessage{Type: MessageTypeComplete, JobID: jobID, Timestamp: time.Now(), Data: completion}
}

func NewErrorMessage(jobID string, errMsg ErrorMessage) *WebSocketMessage {
	return &WebSocketMessage{Type: MessageTypeError, JobID: jobID, Timestamp: time.Now(), Data: errMsg}
}

func NewCancellationMessage(jobID string, cancellation CancellationMessage) *WebSocketMessage {
	return &WebSocketMessage{Type: MessageTypeCancelled, JobID: jobID, Timestamp: time.Now(), Data: cancellation}
}

// ToJSON converts a message to JSON bytes.
func (m *WebSocketMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
