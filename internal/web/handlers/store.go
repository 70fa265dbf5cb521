package handlers

import (
	"context"
	"time"

	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/metrics"
	"github.com/blockedby/resume-refresh/internal/models"
)

// submissionStore upserts a submission and announces it. Both the AMP
// endpoint and the web form go through it.
type submissionStore struct {
	repo   SubmissionsRepository
	events SubmissionEvents
	log    *logger.Logger
	now    func() time.Time
}

func (s *submissionStore) save(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	stored, created, err := s.repo.UpsertByEmail(ctx, sub)
	if err != nil {
		return nil, err
	}

	source := stored.Metadata.Source
	metrics.IncSubmission(string(source), created)

	if s.events != nil {
		ev := models.SubmissionEvent{
			SubmissionID: stored.ID,
			Email:        stored.Email,
			Source:       source,
			Created:      created,
			OccurredAt:   s.now().UTC(),
		}
		if err := s.events.PublishSubmission(context.WithoutCancel(ctx), ev); err != nil {
			s.log.Warn().Err(err).Str("submission_id", stored.ID.String()).Msg("publish submission event")
		}
	}

	return stored, nil
}
