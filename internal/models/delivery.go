// Package models defines shared data types for the application.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies which notification a delivery carried.
type NotificationKind string

// NotificationKind constants define the supported notification kinds.
const (
	NotificationResumeUpdateRequest NotificationKind = "resume_update_request"
	NotificationConfirmation        NotificationKind = "confirmation"
	NotificationReminder            NotificationKind = "reminder"
)

// IsValid reports whether k is one of the known notification kinds.
func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationResumeUpdateRequest, NotificationConfirmation, NotificationReminder:
		return true
	}
	return false
}

// DeliveryState represents the ledger state of a single dispatch attempt.
type DeliveryState string

// DeliveryState constants. A record starts pending and moves exactly once to sent or failed.
const (
	DeliveryStatePending DeliveryState = "pending"
	DeliveryStateSent    DeliveryState = "sent"
	DeliveryStateFailed  DeliveryState = "failed"
)

// IsValid reports whether s is a known delivery state.
func (s DeliveryState) IsValid() bool {
	switch s {
	case DeliveryStatePending, DeliveryStateSent, DeliveryStateFailed:
		return true
	}
	return false
}

// Template names recorded in delivery metadata.
const (
	TemplateAMPResumeUpdate    = "amp_resume_update"
	TemplateStaticResumeUpdate = "static_resume_update"
)

// DeliveryMetadata describes the message and the request that triggered it.
type DeliveryMetadata struct {
	Subject      string `json:"subject"`
	TemplateUsed string `json:"templateUsed"`
	UserAgent    string `json:"userAgent,omitempty"`
	IPAddress    string `json:"ipAddress,omitempty"`
}

// DeliveryFailure is stored when the transport rejected the message.
type DeliveryFailure struct {
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// Delivery is one ledger entry: a single attempt to send one notification to one recipient.
type Delivery struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	RecipientEmail    string           `json:"recipientEmail" db:"recipient_email"`
	Kind              NotificationKind `json:"notificationKind" db:"notification_kind"`
	State             DeliveryState    `json:"deliveryState" db:"delivery_state"`
	UsedInteractive   bool             `json:"usedInteractiveContent" db:"used_interactive"`
	Metadata          DeliveryMetadata `json:"metadata" db:"metadata"`
	ProviderMessageID *string          `json:"providerMessageId,omitempty" db:"provider_message_id"`
	Failure           *DeliveryFailure `json:"failure,omitempty" db:"failure"`
	SentAt            *time.Time       `json:"sentAt,omitempty" db:"sent_at"`
	CreatedAt         time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time        `json:"updatedAt" db:"updated_at"`
}

// DeliveryStats aggregates ledger entries created inside a trailing window.
type DeliveryStats struct {
	TotalSent        int `json:"totalSent"`
	TotalFailed      int `json:"totalFailed"`
	InteractiveCount int `json:"interactiveCount"`
	StaticCount      int `json:"staticCount"`
}

// NormalizeEmail lowercases and trims an address. All lookups and writes go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
