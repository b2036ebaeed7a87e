// Package service implements ingestion, aggregation, and retention for the
// audit store.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"domainaudit/internal/domain"
)

// DefaultStatsLimit caps the top-domains aggregate when no limit is configured.
const DefaultStatsLimit = 10

// IngestRequest carries one inbound domain-check event.
//
// Timestamp is deliberately absent: it is assigned server-side at write time
// so callers cannot backdate records. ClientOrigin must come from the
// transport layer's connection metadata, never from a client-settable header.
type IngestRequest struct {
	Domain       string
	Results      json.RawMessage
	Email        *string
	Score        *int64
	ClientOrigin *string
	UserAgent    *string
}

// AuditService handles record ingestion and the top-domains aggregate.
type AuditService struct {
	repo       domain.AuditRepository
	statsLimit int
	now        func() time.Time
}

// NewAuditService creates an AuditService. statsLimit <= 0 selects the default.
func NewAuditService(repo domain.AuditRepository, statsLimit int) *AuditService {
	if statsLimit <= 0 {
		statsLimit = DefaultStatsLimit
	}
	return &AuditService{repo: repo, statsLimit: statsLimit, now: time.Now}
}

// Ingest validates the request and writes exactly one audit record. The
// stored timestamp is the server receipt time. Results is persisted verbatim,
// never interpreted. On validation failure nothing is written.
func (s *AuditService) Ingest(ctx context.Context, req IngestRequest) (*domain.AuditRecord, error) {
	name := strings.TrimSpace(req.Domain)
	if name == "" {
		return nil, domain.ErrValidation("domain is required")
	}

	rec := &domain.AuditRecord{
		Domain:       name,
		Timestamp:    s.now().UTC(),
		ClientOrigin: req.ClientOrigin,
		Results:      req.Results,
		UserAgent:    req.UserAgent,
		Email:        req.Email,
		Score:        req.Score,
	}

	stored, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return nil, domain.ErrStore("insert audit record", err)
	}
	return stored, nil
}

// TopDomains returns the most frequently checked domains with their record
// counts, ordered by count descending, ties broken by domain name ascending.
// limit <= 0 or above the configured cap falls back to the cap. An empty
// store yields an empty slice.
func (s *AuditService) TopDomains(ctx context.Context, limit int) ([]domain.DomainCount, error) {
	if limit <= 0 || limit > s.statsLimit {
		limit = s.statsLimit
	}

	counts, err := s.repo.TopDomains(ctx, limit)
	if err != nil {
		return nil, domain.ErrStore("top domains", err)
	}
	return counts, nil
}
