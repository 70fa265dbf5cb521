// Package publisher announces delivery and submission outcomes over NATS.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/blockedby/resume-refresh/internal/models"
)

// Subjects published by this service.
const (
	SubjectNotificationSent   = "notifications.sent"
	SubjectNotificationFailed = "notifications.failed"
	SubjectSubmissionReceived = "submissions.received"
)

// StreamSubjects lists every subject for stream provisioning.
var StreamSubjects = []string{"notifications.*", "submissions.*"}

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements dispatcher.EventPublisher and the submission event sink.
type NATSPublisher struct {
	js NATSClient
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{js: conn}
}

// PublishDelivery publishes a terminal delivery state.
func (p *NATSPublisher) PublishDelivery(_ context.Context, event models.DeliveryEvent) error {
	subject := SubjectNotificationSent
	if event.State == models.DeliveryStateFailed {
		subject = SubjectNotificationFailed
	}
	return p.publish(subject, event)
}

// PublishSubmission publishes a stored submission.
func (p *NATSPublisher) PublishSubmission(_ context.Context, event models.SubmissionEvent) error {
	return p.publish(SubjectSubmissionReceived, event)
}

func (p *NATSPublisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.js.Publish(subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}
