// Package handlers implements the JSON API and the fallback form pages.
package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/blockedby/resume-refresh/internal/dispatcher"
	"github.com/blockedby/resume-refresh/internal/models"
	"github.com/blockedby/resume-refresh/internal/repository"
)

// Dispatcher sends notifications and reports on them.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatcher.SendRequest) (*dispatcher.DeliveryResult, error)
	DispatchBulk(ctx context.Context, reqs []dispatcher.SendRequest) []dispatcher.DeliveryResult
	TestConnection(ctx context.Context) dispatcher.ConnectionStatus
	GetStats(ctx context.Context, days int) (*dispatcher.StatsReport, error)
}

// DeliveriesRepository lists ledger entries.
type DeliveriesRepository interface {
	List(ctx context.Context, f repository.DeliveryFilter) ([]*models.Delivery, int, error)
}

// SubmissionsRepository stores and reads resume submissions.
type SubmissionsRepository interface {
	UpsertByEmail(ctx context.Context, sub *models.Submission) (*models.Submission, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	List(ctx context.Context, f repository.SubmissionFilter) ([]*models.Submission, int, error)
}

// SubmissionEvents announces stored submissions. A nil value disables publishing.
type SubmissionEvents interface {
	PublishSubmission(ctx context.Context, ev models.SubmissionEvent) error
}
