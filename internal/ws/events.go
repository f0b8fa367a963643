package ws

import (
	"time"
)

type EventType string

const (
	EventRecognitionCompleted EventType = "recognition.completed"
	EventFaceEnrolled         EventType = "face.enrolled"
	EventFaceRemoved          EventType = "face.removed"
	EventSessionStarted       EventType = "session.started"
	EventSessionStopped       EventType = "session.stopped"
)

type Event struct {
	Username  string      `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
