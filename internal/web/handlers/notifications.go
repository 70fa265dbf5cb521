package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/dispatcher"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/models"
	"github.com/blockedby/resume-refresh/internal/repository"
	"github.com/blockedby/resume-refresh/internal/validation"
	"github.com/blockedby/resume-refresh/internal/web"
)

// NotificationsHandler serves the /api/email endpoints.
type NotificationsHandler struct {
	dispatcher    Dispatcher
	deliveries    DeliveriesRepository
	publicBaseURL string
	log           *logger.Logger
}

// NewNotificationsHandler creates a NotificationsHandler. When publicBaseURL is
// empty, callback links are built from the host each request arrived on.
func NewNotificationsHandler(d Dispatcher, deliveries DeliveriesRepository, publicBaseURL string) *NotificationsHandler {
	return &NotificationsHandler{
		dispatcher:    d,
		deliveries:    deliveries,
		publicBaseURL: publicBaseURL,
		log:           logger.Get(),
	}
}

func (h *NotificationsHandler) sendRequest(r *http.Request, in validation.SendEmailInput) dispatcher.SendRequest {
	return dispatcher.SendRequest{
		Input:           in,
		CallbackBaseURL: requestBaseURL(r, h.publicBaseURL),
		UserAgent:       r.UserAgent(),
		IPAddress:       web.ClientIP(r),
	}
}

// Send dispatches one resume update request.
// POST /api/email/send
func (h *NotificationsHandler) Send(w http.ResponseWriter, r *http.Request) {
	var in validation.SendEmailInput
	if err := validation.DecodeJSON(r.Body, &in); err != nil {
		respondErr(w, err, "Failed to send email")
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), h.sendRequest(r, in))
	if err != nil {
		h.log.Error().Err(err).Str("recipient", models.NormalizeEmail(in.To)).Msg("send failed")
		respondErr(w, err, "Failed to send email")
		return
	}

	respondOK(w, "Email sent successfully with automatic fallback", result)
}

type bulkSummary struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type bulkResponse struct {
	Results []dispatcher.DeliveryResult `json:"results"`
	Summary bulkSummary                 `json:"summary"`
}

// SendBulk validates every recipient first and sends only when all of them pass.
// POST /api/email/send-bulk
func (h *NotificationsHandler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var in validation.BulkSendInput
	if err := validation.DecodeJSON(r.Body, &in); err != nil {
		respondErr(w, err, "Failed to send bulk emails")
		return
	}
	if len(in.Recipients) == 0 {
		respondError(w, http.StatusBadRequest, "Recipients array is required", nil)
		return
	}

	var (
		problems []string
		reqs     = make([]dispatcher.SendRequest, 0, len(in.Recipients))
	)
	for i, rcpt := range in.Recipients {
		if err := rcpt.Normalize(); err != nil {
			problems = append(problems, fmt.Sprintf("Recipient %d: %v", i+1, err))
			continue
		}
		reqs = append(reqs, h.sendRequest(r, rcpt))
	}
	if len(problems) > 0 {
		respondError(w, http.StatusBadRequest, "Validation failed for some recipients", problems)
		return
	}

	results := h.dispatcher.DispatchBulk(r.Context(), reqs)

	summary := bulkSummary{Total: len(results)}
	for _, res := range results {
		if res.Success {
			summary.Sent++
		}
	}
	summary.Failed = summary.Total - summary.Sent

	respondOK(w,
		fmt.Sprintf("Bulk email sending completed: %d sent, %d failed", summary.Sent, summary.Failed),
		bulkResponse{Results: results, Summary: summary},
	)
}

type logsResponse struct {
	Logs       []*models.Delivery `json:"logs"`
	Pagination pagination         `json:"pagination"`
}

// Logs lists ledger entries, newest first.
// GET /api/email/logs?status=&email=&page=&limit=
func (h *NotificationsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := models.DeliveryState(q.Get("status"))
	if state != "" && !state.IsValid() {
		respondError(w, http.StatusBadRequest, "Validation failed",
			apperr.FieldErrors{"status": {"oneof"}})
		return
	}

	page := pageFromQuery(r)
	logs, total, err := h.deliveries.List(r.Context(), repository.DeliveryFilter{
		State: state,
		Email: q.Get("email"),
		Page:  page,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("list deliveries")
		respondErr(w, err, "Failed to fetch email logs")
		return
	}

	respondOK(w, "", logsResponse{Logs: logs, Pagination: newPagination(page, total)})
}

// TestConnection verifies the mail transport. It answers 500 when verification fails.
// GET /api/email/test-connection
func (h *NotificationsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	status := h.dispatcher.TestConnection(r.Context())
	code := http.StatusOK
	if !status.Success {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, status)
}

// Stats aggregates the ledger over the last days days.
// GET /api/email/stats?days=N
func (h *NotificationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	report, err := h.dispatcher.GetStats(r.Context(), days)
	if err != nil {
		h.log.Error().Err(err).Msg("delivery stats")
		respondErr(w, err, "Failed to fetch email statistics")
		return
	}

	respondOK(w, "", report)
}
