package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"domainaudit/internal/domain"
)

// DefaultRetentionDays is the default retention horizon.
const DefaultRetentionDays = 90

// RetentionService deletes audit records older than a fixed horizon.
type RetentionService struct {
	repo    domain.AuditRepository
	horizon time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewRetentionService creates a RetentionService. horizon <= 0 selects the
// default of 90 days.
func NewRetentionService(repo domain.AuditRepository, horizon time.Duration, logger *slog.Logger) *RetentionService {
	if horizon <= 0 {
		horizon = DefaultRetentionDays * 24 * time.Hour
	}
	return &RetentionService{repo: repo, horizon: horizon, logger: logger, now: time.Now}
}

// Sweep deletes every record whose timestamp is strictly older than
// now - horizon and returns the number of rows removed. The cutoff is
// computed once at sweep start, so a record ingested while the sweep runs is
// never eligible. Running it again with no new old records is a no-op.
func (s *RetentionService) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.horizon)

	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention sweep: %w", err)
	}

	if removed > 0 {
		s.logger.Info("retention sweep removed records", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}
