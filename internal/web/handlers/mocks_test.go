package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/resume-refresh/internal/dispatcher"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/models"
	"github.com/blockedby/resume-refresh/internal/repository"
	"github.com/blockedby/resume-refresh/internal/web"
)

// MockDispatcher is a mock for Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req dispatcher.SendRequest) (*dispatcher.DeliveryResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*dispatcher.DeliveryResult)
	return res, args.Error(1)
}

func (m *MockDispatcher) DispatchBulk(ctx context.Context, reqs []dispatcher.SendRequest) []dispatcher.DeliveryResult {
	args := m.Called(ctx, reqs)
	res, _ := args.Get(0).([]dispatcher.DeliveryResult)
	return res
}

func (m *MockDispatcher) TestConnection(ctx context.Context) dispatcher.ConnectionStatus {
	args := m.Called(ctx)
	return args.Get(0).(dispatcher.ConnectionStatus)
}

func (m *MockDispatcher) GetStats(ctx context.Context, days int) (*dispatcher.StatsReport, error) {
	args := m.Called(ctx, days)
	res, _ := args.Get(0).(*dispatcher.StatsReport)
	return res, args.Error(1)
}

// MockDeliveries is a mock for DeliveriesRepository
type MockDeliveries struct {
	mock.Mock
}

func (m *MockDeliveries) List(ctx context.Context, f repository.DeliveryFilter) ([]*models.Delivery, int, error) {
	args := m.Called(ctx, f)
	res, _ := args.Get(0).([]*models.Delivery)
	return res, args.Int(1), args.Error(2)
}

// MockSubmissions is an in-memory SubmissionsRepository
type MockSubmissions struct {
	records    map[uuid.UUID]*models.Submission
	upserted   []*models.Submission
	upsertErr  error
	getErr     error
	listErr    error
	lastFilter repository.SubmissionFilter
}

func (m *MockSubmissions) UpsertByEmail(_ context.Context, sub *models.Submission) (*models.Submission, bool, error) {
	if m.upsertErr != nil {
		return nil, false, m.upsertErr
	}
	if m.records == nil {
		m.records = make(map[uuid.UUID]*models.Submission)
	}
	m.upserted = append(m.upserted, sub)

	for _, existing := range m.records {
		if existing.Email == models.NormalizeEmail(sub.Email) {
			existing.Apply(sub)
			existing.LastUpdated = time.Now().UTC()
			return existing, false, nil
		}
	}
	stored := storedCopy(sub)
	m.records[stored.ID] = stored
	return stored, true, nil
}

func (m *MockSubmissions) GetByID(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.records[id], nil
}

func (m *MockSubmissions) List(_ context.Context, f repository.SubmissionFilter) ([]*models.Submission, int, error) {
	m.lastFilter = f
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	out := []*models.Submission{}
	for _, sub := range m.records {
		out = append(out, sub)
	}
	return out, len(out), nil
}

// MockEvents is a mock for SubmissionEvents
type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishSubmission(ctx context.Context, ev models.SubmissionEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// storedCopy returns sub as the repository would after an insert.
func storedCopy(sub *models.Submission) *models.Submission {
	out := *sub
	out.Email = models.NormalizeEmail(sub.Email)
	out.ID = uuid.New()
	out.Status = models.SubmissionStatusSubmitted
	out.LastUpdated = time.Now().UTC()
	out.CreatedAt = out.LastUpdated
	return &out
}

type routes struct {
	notifications *NotificationsHandler
	submissions   *SubmissionsHandler
	webForm       *WebFormHandler
}

func newRouter(t *testing.T, r routes) http.Handler {
	t.Helper()
	srv := web.NewServer(&web.Config{Environment: "test", RateLimitMax: 1000}, logger.Get())
	if r.notifications != nil {
		srv.RegisterNotificationHandler(r.notifications)
	}
	if r.submissions != nil {
		srv.RegisterSubmissionHandler(r.submissions)
	}
	if r.webForm != nil {
		srv.RegisterWebFormHandler(r.webForm)
	}
	return srv.Router()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "data object missing: %v", body)
	return data
}

func testTemplates(t *testing.T) *web.TemplateEngine {
	t.Helper()
	engine := web.NewTemplateEngine(web.Templates())
	require.NoError(t, engine.Load())
	return engine
}
