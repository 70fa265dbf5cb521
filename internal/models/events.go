package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryEvent is published after a delivery reaches a terminal state.
type DeliveryEvent struct {
	DeliveryID      uuid.UUID     `json:"delivery_id"`
	Recipient       string        `json:"recipient"`
	State           DeliveryState `json:"state"`
	UsedInteractive bool          `json:"used_interactive"`
	MessageID       string        `json:"message_id,omitempty"`
	Error           string        `json:"error,omitempty"`
	Retryable       bool          `json:"retryable"`
	OccurredAt      time.Time     `json:"occurred_at"`
}

// SubmissionEvent is published after a submission is created or updated.
type SubmissionEvent struct {
	SubmissionID uuid.UUID        `json:"submission_id"`
	Email        string           `json:"email"`
	Source       SubmissionSource `json:"source"`
	Created      bool             `json:"created"`
	OccurredAt   time.Time        `json:"occurred_at"`
}
