package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/models"
)

// Pagination bounds shared by the list endpoints.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Pages returns how many pages total rows span.
func (p Page) Pages(total int) int {
	p = p.Normalize()
	return (total + p.Limit - 1) / p.Limit
}

// DeliveryFilter narrows a ledger query. Empty fields match everything.
type DeliveryFilter struct {
	State models.DeliveryState
	Email string
	Page  Page
}

// Transition carries the terminal state and its details.
type Transition struct {
	State     models.DeliveryState
	MessageID string
	SentAt    time.Time
	Failure   *models.DeliveryFailure
}

// Validate checks that the details match the target state.
func (t Transition) Validate() error {
	switch t.State {
	case models.DeliveryStateSent:
		if t.MessageID == "" {
			return errors.New("sent transition requires a provider message id")
		}
	case models.DeliveryStateFailed:
		if t.Failure == nil {
			return errors.New("failed transition requires failure details")
		}
	default:
		return fmt.Errorf("invalid terminal state: %q", t.State)
	}
	return nil
}

// ErrNotPending is returned when a transition targets a record that already left pending.
var ErrNotPending = errors.New("delivery is not pending")

// DeliveriesRepository is the delivery ledger in postgres.
type DeliveriesRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewDeliveriesRepository creates a new ledger repository
func NewDeliveriesRepository(pool *pgxpool.Pool, log *logger.Logger) *DeliveriesRepository {
	return &DeliveriesRepository{
		pool: pool,
		log:  log,
	}
}

// Create inserts a ledger entry in the pending state.
func (r *DeliveriesRepository) Create(ctx context.Context, d *models.Delivery) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.RecipientEmail = models.NormalizeEmail(d.RecipientEmail)
	d.State = models.DeliveryStatePending

	err := r.pool.QueryRow(ctx, `
		INSERT INTO email_deliveries (
			id, recipient_email, notification_kind, delivery_state, used_interactive, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, d.ID, d.RecipientEmail, d.Kind, d.State, d.UsedInteractive, d.Metadata,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return apperr.Storage("create delivery", err)
	}

	r.log.Info().
		Str("delivery_id", d.ID.String()).
		Str("recipient", d.RecipientEmail).
		Str("template", d.Metadata.TemplateUsed).
		Msg("created delivery")

	return nil
}

// Transition moves a pending entry to sent or failed. It happens at most once per entry.
func (r *DeliveriesRepository) Transition(ctx context.Context, id uuid.UUID, t Transition) error {
	if err := t.Validate(); err != nil {
		return err
	}

	var (
		messageID *string
		sentAt    *time.Time
	)
	if t.State == models.DeliveryStateSent {
		messageID = &t.MessageID
		at := t.SentAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		sentAt = &at
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE email_deliveries
		SET delivery_state = $2,
		    provider_message_id = $3,
		    sent_at = $4,
		    failure = $5,
		    updated_at = NOW()
		WHERE id = $1 AND delivery_state = 'pending'
	`, id, t.State, messageID, sentAt, t.Failure)
	if err != nil {
		return apperr.Storage("transition delivery", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transition %s to %s: %w", id, t.State, ErrNotPending)
	}

	ev := r.log.Info()
	if t.State == models.DeliveryStateFailed {
		ev = r.log.Warn().Str("error_code", t.Failure.Code)
	}
	ev.Str("delivery_id", id.String()).
		Str("state", string(t.State)).
		Str("message_id", t.MessageID).
		Msg("delivery transitioned")

	return nil
}

const deliveryColumns = `
	id, recipient_email, notification_kind, delivery_state, used_interactive, metadata,
	provider_message_id, failure, sent_at, created_at, updated_at`

func scanDelivery(row pgx.Row) (*models.Delivery, error) {
	var d models.Delivery
	err := row.Scan(
		&d.ID, &d.RecipientEmail, &d.Kind, &d.State, &d.UsedInteractive, &d.Metadata,
		&d.ProviderMessageID, &d.Failure, &d.SentAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByID returns a ledger entry, or nil when it does not exist.
func (r *DeliveriesRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	d, err := scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM email_deliveries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Storage("get delivery", err)
	}
	return d, nil
}

// buildDeliveryWhere renders the WHERE clause and its arguments for f.
func buildDeliveryWhere(f DeliveryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.State != "" {
		args = append(args, f.State)
		conds = append(conds, fmt.Sprintf("delivery_state = $%d", len(args)))
	}
	if f.Email != "" {
		args = append(args, models.NormalizeEmail(f.Email))
		conds = append(conds, fmt.Sprintf("recipient_email = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of entries, newest first, and the total matching count.
func (r *DeliveriesRepository) List(ctx context.Context, f DeliveryFilter) ([]*models.Delivery, int, error) {
	where, args := buildDeliveryWhere(f)
	page := f.Page.Normalize()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM email_deliveries`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count deliveries", err)
	}

	args = append(args, page.Limit, page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM email_deliveries%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		deliveryColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Storage("list deliveries", err)
	}
	defer rows.Close()

	deliveries := []*models.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, apperr.Storage("scan delivery", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("list deliveries", err)
	}

	return deliveries, total, nil
}
