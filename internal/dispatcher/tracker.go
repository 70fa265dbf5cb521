package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/mailer"
	"github.com/blockedby/resume-refresh/internal/metrics"
	"github.com/blockedby/resume-refresh/internal/models"
	"github.com/blockedby/resume-refresh/internal/repository"
)

// DeliveryState aliases the ledger state for brevity inside the package.
type DeliveryState = models.DeliveryState

const (
	StatusPending DeliveryState = models.DeliveryStatePending
	StatusSent    DeliveryState = models.DeliveryStateSent
	StatusFailed  DeliveryState = models.DeliveryStateFailed
)

// Ledger is the persistence the tracker writes through.
type Ledger interface {
	Create(ctx context.Context, d *models.Delivery) error
	Transition(ctx context.Context, id uuid.UUID, t repository.Transition) error
}

// EventPublisher announces terminal delivery states. It may be nil.
type EventPublisher interface {
	PublishDelivery(ctx context.Context, event models.DeliveryEvent) error
}

// DeliveryTracker records each attempt in the ledger and announces the outcome.
type DeliveryTracker struct {
	ledger Ledger
	events EventPublisher
	log    *logger.Logger
	now    func() time.Time
}

// NewDeliveryTracker creates a new delivery tracker
func NewDeliveryTracker(ledger Ledger, events EventPublisher, log *logger.Logger) *DeliveryTracker {
	return &DeliveryTracker{
		ledger: ledger,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TrackStart records d as pending.
func (t *DeliveryTracker) TrackStart(ctx context.Context, d *models.Delivery) error {
	if err := t.ledger.Create(ctx, d); err != nil {
		return fmt.Errorf("record pending delivery: %w", err)
	}
	metrics.IncDelivery(string(StatusPending), d.UsedInteractive)

	t.log.Info().
		Str("delivery_id", d.ID.String()).
		Str("recipient", d.RecipientEmail).
		Bool("interactive", d.UsedInteractive).
		Msg("delivery pending")

	return nil
}

// TrackSuccess moves d from pending to sent.
func (t *DeliveryTracker) TrackSuccess(ctx context.Context, d *models.Delivery, messageID string, sentAt time.Time) error {
	if !t.ValidateTransition(d.State, StatusSent) {
		return fmt.Errorf("invalid status transition: %s → %s", d.State, StatusSent)
	}

	err := t.ledger.Transition(ctx, d.ID, repository.Transition{
		State:     StatusSent,
		MessageID: messageID,
		SentAt:    sentAt,
	})
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	d.State = StatusSent
	d.ProviderMessageID = &messageID
	d.SentAt = &sentAt
	metrics.IncDelivery(string(StatusSent), d.UsedInteractive)

	t.publish(ctx, models.DeliveryEvent{
		DeliveryID:      d.ID,
		Recipient:       d.RecipientEmail,
		State:           StatusSent,
		UsedInteractive: d.UsedInteractive,
		MessageID:       messageID,
		OccurredAt:      sentAt,
	})

	t.log.Info().
		Str("delivery_id", d.ID.String()).
		Str("from", string(StatusPending)).
		Str("to", string(StatusSent)).
		Str("message_id", messageID).
		Msg("delivery status changed")

	return nil
}

// TrackFailure moves d from pending to failed, storing the cause.
func (t *DeliveryTracker) TrackFailure(ctx context.Context, d *models.Delivery, cause error) error {
	if !t.ValidateTransition(d.State, StatusFailed) {
		return fmt.Errorf("invalid status transition: %s → %s", d.State, StatusFailed)
	}

	failure := &models.DeliveryFailure{
		Message:   cause.Error(),
		Code:      failureCode(cause),
		Timestamp: t.now(),
	}
	err := t.ledger.Transition(ctx, d.ID, repository.Transition{
		State:   StatusFailed,
		Failure: failure,
	})
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	d.State = StatusFailed
	d.Failure = failure
	metrics.IncDelivery(string(StatusFailed), d.UsedInteractive)
	metrics.IncTransportError(failure.Code)

	t.publish(ctx, models.DeliveryEvent{
		DeliveryID:      d.ID,
		Recipient:       d.RecipientEmail,
		State:           StatusFailed,
		UsedInteractive: d.UsedInteractive,
		Error:           failure.Message,
		Retryable:       isRetryable(cause),
		OccurredAt:      failure.Timestamp,
	})

	t.log.Error().
		Str("delivery_id", d.ID.String()).
		Str("from", string(StatusPending)).
		Str("to", string(StatusFailed)).
		Str("code", failure.Code).
		Str("error", failure.Message).
		Msg("delivery failed")

	return nil
}

func (t *DeliveryTracker) publish(ctx context.Context, ev models.DeliveryEvent) {
	if t.events == nil {
		return
	}
	if err := t.events.PublishDelivery(ctx, ev); err != nil {
		t.log.Warn().Err(err).Str("delivery_id", ev.DeliveryID.String()).Msg("publish delivery event")
	}
}

// ValidateTransition checks if status transition is valid
func (t *DeliveryTracker) ValidateTransition(from, to DeliveryState) bool {
	// PENDING → SENT | FAILED; both are terminal
	validTransitions := map[DeliveryState][]DeliveryState{
		StatusPending: {StatusSent, StatusFailed},
		StatusSent:    {},
		StatusFailed:  {},
	}

	for _, valid := range validTransitions[from] {
		if valid == to {
			return true
		}
	}
	return false
}

// failureCode extracts the transport code, UNKNOWN for anything else.
func failureCode(err error) string {
	var te *apperr.TransportError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	return mailer.CodeUnknown
}

// isRetryable checks if an error is retryable
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *apperr.TransportError
	if errors.As(err, &te) && te.Temporary {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	// greylisting and other 4xx replies
	if strings.Contains(errMsg, "try again later") {
		return true
	}

	// Network timeouts are retryable
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "connection") {
		return true
	}

	return false
}
