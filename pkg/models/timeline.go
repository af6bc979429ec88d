package models

import "time"

// EventStatus is the status of one timeline event.
type EventStatus string

// Event status constants.
const (
	EventPending    EventStatus = "pending"
	EventInProgress EventStatus = "in_progress"
	EventCompleted  EventStatus = "completed"
	EventFailed     EventStatus = "failed"
	EventInfo       EventStatus = "info"
)

// TimelineEvent is one append-only record of an observable workflow step.
// Per case the Seq values are dense and strictly increasing, assigned by the
// store at append time.
type TimelineEvent struct {
	CaseID        string         `json:"case_id"`
	Seq           int            `json:"seq"`
	Step          string         `json:"step"`
	Agent         string         `json:"agent"`
	Status        EventStatus    `json:"status"`
	Description   string         `json:"description"`
	Details       map[string]any `json:"details,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Transcription string         `json:"transcription,omitempty"`
}

// AppendEventRequest contains the caller-supplied fields of a timeline
// event; the store assigns Seq and Timestamp.
type AppendEventRequest struct {
	CaseID        string         `json:"case_id"`
	Step          string         `json:"step"`
	Agent         string         `json:"agent"`
	Status        EventStatus    `json:"status"`
	Description   string         `json:"description"`
	Details       map[string]any `json:"details,omitempty"`
	Transcription string         `json:"transcription,omitempty"`
}
