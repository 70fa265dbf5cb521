// Package dispatcher sends resume update notifications and records every attempt.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/resume-refresh/internal/capability"
	"github.com/blockedby/resume-refresh/internal/composer"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/models"
	"github.com/blockedby/resume-refresh/internal/validation"
)

// DefaultStatsWindowDays is used when a stats request names no window.
const DefaultStatsWindowDays = 7

// ConnectionOK is reported when the transport verified.
const ConnectionOK = "Email service connected successfully"

// Classifier decides the rendering for a recipient.
type Classifier interface {
	Classify(address string) capability.Rendering
}

// DeliveryTrackerInterface defines the ledger lifecycle the service drives.
type DeliveryTrackerInterface interface {
	TrackStart(ctx context.Context, d *models.Delivery) error
	TrackSuccess(ctx context.Context, d *models.Delivery, messageID string, sentAt time.Time) error
	TrackFailure(ctx context.Context, d *models.Delivery, cause error) error
}

// StatsSource aggregates ledger entries created since a point in time.
type StatsSource interface {
	AggregateStats(ctx context.Context, since time.Time) (*models.DeliveryStats, error)
}

// Config holds dispatcher settings.
type Config struct {
	// CallbackBaseURL is used when a request carries no base URL of its own.
	CallbackBaseURL string
	// BulkPause is waited between consecutive bulk sends.
	BulkPause time.Duration
}

// DispatcherService is the main orchestrator for sending resume update requests.
type DispatcherService struct {
	classifier Classifier
	sender     *EmailSender
	tracker    DeliveryTrackerInterface
	stats      StatsSource
	cfg        Config
	log        *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewDispatcherService creates a new DispatcherService.
func NewDispatcherService(
	classifier Classifier,
	sender *EmailSender,
	tracker DeliveryTrackerInterface,
	stats StatsSource,
	cfg Config,
	log *logger.Logger,
) *DispatcherService {
	return &DispatcherService{
		classifier: classifier,
		sender:     sender,
		tracker:    tracker,
		stats:      stats,
		cfg:        cfg,
		log:        log,
		sleep:      sleepContext,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SendRequest is one notification to dispatch.
type SendRequest struct {
	Input validation.SendEmailInput
	// CallbackBaseURL overrides the configured base for this request.
	CallbackBaseURL string
	UserAgent       string
	IPAddress       string
}

// DeliveryResult describes the outcome for one recipient.
type DeliveryResult struct {
	Success      bool       `json:"success"`
	DeliveryID   *uuid.UUID `json:"deliveryId,omitempty"`
	MessageID    string     `json:"messageId,omitempty"`
	Recipient    string     `json:"recipient"`
	AMPSupported bool       `json:"ampSupported"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	EmailType    string     `json:"emailType,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Dispatch sends one resume update request.
//
// The input is validated before anything is written. Once the pending entry
// exists it always reaches sent or failed before Dispatch returns. Terminal
// ledger writes ignore cancellation of ctx so an aborted request cannot leave
// the entry pending.
func (s *DispatcherService) Dispatch(ctx context.Context, req SendRequest) (*DeliveryResult, error) {
	in := req.Input
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	recipient := models.NormalizeEmail(in.To)
	interactive := s.classifier.Classify(in.To) == capability.Interactive

	base := req.CallbackBaseURL
	if base == "" {
		base = s.cfg.CallbackBaseURL
	}
	cc := composer.Context{
		ApplicantName:   in.ApplicantName,
		JobTitle:        in.JobTitle,
		CompanyName:     in.CompanyName,
		CallbackBaseURL: base,
		Recipient:       in.To,
	}
	docs := composer.Compose(cc)

	templateUsed := models.TemplateStaticResumeUpdate
	if interactive {
		templateUsed = models.TemplateAMPResumeUpdate
	}

	d := &models.Delivery{
		RecipientEmail:  in.To,
		Kind:            models.NotificationResumeUpdateRequest,
		State:           models.DeliveryStatePending,
		UsedInteractive: interactive,
		Metadata: models.DeliveryMetadata{
			Subject:      in.Subject,
			TemplateUsed: templateUsed,
			UserAgent:    req.UserAgent,
			IPAddress:    req.IPAddress,
		},
	}
	if err := s.tracker.TrackStart(ctx, d); err != nil {
		return nil, err
	}

	msg := s.sender.BuildMessage(Outgoing{
		To:          in.To,
		Subject:     in.Subject,
		JobTitle:    in.JobTitle,
		CompanyName: in.CompanyName,
		Interactive: interactive,
		Documents:   docs,
		FormURL:     composer.FormURL(base, cc),
	})

	ledgerCtx := context.WithoutCancel(ctx)

	messageID, sendErr := s.sender.Send(ctx, msg)
	if sendErr != nil {
		if err := s.tracker.TrackFailure(ledgerCtx, d, sendErr); err != nil {
			s.log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("record failed delivery")
		}
		return nil, fmt.Errorf("failed to send email: %w", sendErr)
	}

	sentAt := s.now()
	if err := s.tracker.TrackSuccess(ledgerCtx, d, messageID, sentAt); err != nil {
		if ferr := s.tracker.TrackFailure(ledgerCtx, d, err); ferr != nil {
			s.log.Error().Err(ferr).Str("delivery_id", d.ID.String()).Msg("record failed delivery")
		}
		return nil, fmt.Errorf("record sent delivery: %w", err)
	}

	s.log.Info().
		Str("delivery_id", d.ID.String()).
		Str("recipient", recipient).
		Str("rendering", templateUsed).
		Str("message_id", messageID).
		Msg("resume update email sent")

	id := d.ID
	return &DeliveryResult{
		Success:      true,
		DeliveryID:   &id,
		MessageID:    messageID,
		Recipient:    recipient,
		AMPSupported: interactive,
		SentAt:       &sentAt,
		EmailType:    templateUsed,
	}, nil
}

// DispatchBulk sends to each request in order, pausing between sends.
// It returns one result per request; a failing recipient never stops the batch.
// If ctx is cancelled during a pause, the remaining recipients are reported as not attempted.
func (s *DispatcherService) DispatchBulk(ctx context.Context, reqs []SendRequest) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(reqs))

	for i, req := range reqs {
		res, err := s.Dispatch(ctx, req)
		if err != nil {
			res = &DeliveryResult{
				Success:   false,
				Recipient: models.NormalizeEmail(req.Input.To),
				Error:     err.Error(),
			}
		}
		results = append(results, *res)

		if i == len(reqs)-1 {
			break
		}
		if err := s.sleep(ctx, s.cfg.BulkPause); err != nil {
			for _, rest := range reqs[i+1:] {
				results = append(results, DeliveryResult{
					Recipient: models.NormalizeEmail(rest.Input.To),
					Error:     fmt.Sprintf("not attempted: %v", err),
				})
			}
			break
		}
	}

	s.log.Info().
		Int("total", len(results)).
		Int("sent", countSent(results)).
		Msg("bulk dispatch finished")

	return results
}

func countSent(results []DeliveryResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

// ConnectionStatus is the outcome of TestConnection.
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestConnection verifies the transport. Failures are reported, never returned.
func (s *DispatcherService) TestConnection(ctx context.Context) ConnectionStatus {
	if err := s.sender.Verify(ctx); err != nil {
		s.log.Warn().Err(err).Msg("email transport verification failed")
		return ConnectionStatus{Success: false, Message: err.Error()}
	}
	return ConnectionStatus{Success: true, Message: ConnectionOK}
}

// StatsReport is the ledger aggregate over a trailing window.
type StatsReport struct {
	models.DeliveryStats
	Days   int    `json:"days"`
	Period string `json:"period"`
}

// GetStats aggregates entries created within the last days days.
// A non-positive window falls back to DefaultStatsWindowDays.
func (s *DispatcherService) GetStats(ctx context.Context, days int) (*StatsReport, error) {
	if days <= 0 {
		days = DefaultStatsWindowDays
	}
	since := s.now().AddDate(0, 0, -days)

	stats, err := s.stats.AggregateStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}

	return &StatsReport{
		DeliveryStats: *stats,
		Days:          days,
		Period:        fmt.Sprintf("Last %d days", days),
	}, nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
