package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/resume-refresh/internal/mailer"
	"github.com/blockedby/resume-refresh/internal/models"
	"github.com/blockedby/resume-refresh/internal/repository"
)

// memLedger is an in-memory Ledger enforcing the pending-only transition rule.
type memLedger struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]*models.Delivery
	order       []uuid.UUID
	createErr   error
	transitions map[DeliveryState]error
}

func newMemLedger() *memLedger {
	return &memLedger{
		entries:     map[uuid.UUID]*models.Delivery{},
		transitions: map[DeliveryState]error{},
	}
}

func (m *memLedger) Create(_ context.Context, d *models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.RecipientEmail = models.NormalizeEmail(d.RecipientEmail)
	d.State = models.DeliveryStatePending
	cp := *d
	m.entries[d.ID] = &cp
	m.order = append(m.order, d.ID)
	return nil
}

func (m *memLedger) Transition(_ context.Context, id uuid.UUID, t repository.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transitions[t.State]; err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	e, ok := m.entries[id]
	if !ok || e.State != models.DeliveryStatePending {
		return repository.ErrNotPending
	}
	e.State = t.State
	if t.State == models.DeliveryStateSent {
		id := t.MessageID
		at := t.SentAt
		e.ProviderMessageID = &id
		e.SentAt = &at
	}
	e.Failure = t.Failure
	return nil
}

func (m *memLedger) all() []*models.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Delivery, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.entries[id]
		out = append(out, &cp)
	}
	return out
}

// mockTransport records messages and fails for configured recipients.
type mockTransport struct {
	mu        sync.Mutex
	sent      []*mailer.Message
	failFor   map[string]error
	verifyErr error
}

func (m *mockTransport) Send(_ context.Context, msg *mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[msg.To]; err != nil {
		return "", err
	}
	m.sent = append(m.sent, msg)
	return fmt.Sprintf("<%d.%s@test>", len(m.sent), msg.To), nil
}

func (m *mockTransport) Verify(context.Context) error {
	return m.verifyErr
}

// mockPublisher captures published delivery events.
type mockPublisher struct {
	events []models.DeliveryEvent
	err    error
}

func (m *mockPublisher) PublishDelivery(_ context.Context, ev models.DeliveryEvent) error {
	m.events = append(m.events, ev)
	return m.err
}

// mockStats returns canned stats and records the window start.
type mockStats struct {
	stats *models.DeliveryStats
	err   error
	since time.Time
}

func (m *mockStats) AggregateStats(_ context.Context, since time.Time) (*models.DeliveryStats, error) {
	m.since = since
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

var errBoom = errors.New("boom")
