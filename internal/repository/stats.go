package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/models"
)

// StatsRepository aggregates the delivery ledger.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// AggregateStats counts entries created at or after since.
// Interactive and static counts cover every entry in the window, pending included.
func (r *StatsRepository) AggregateStats(ctx context.Context, since time.Time) (*models.DeliveryStats, error) {
	stats := &models.DeliveryStats{}

	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(CASE WHEN delivery_state = 'sent' THEN 1 END) AS total_sent,
			COUNT(CASE WHEN delivery_state = 'failed' THEN 1 END) AS total_failed,
			COUNT(CASE WHEN used_interactive THEN 1 END) AS interactive,
			COUNT(CASE WHEN NOT used_interactive THEN 1 END) AS static
		FROM email_deliveries
		WHERE created_at >= $1
	`, since).Scan(&stats.TotalSent, &stats.TotalFailed, &stats.InteractiveCount, &stats.StaticCount)
	if err != nil {
		return nil, apperr.Storage("aggregate delivery stats", err)
	}

	return stats, nil
}
