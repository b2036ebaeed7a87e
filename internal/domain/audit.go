package domain

import (
	"context"
	"encoding/json"
	"time"
)

// AuditRecord is one persisted domain-check event.
//
// Timestamp and ClientOrigin are server-trusted fields: they are derived from
// the receiving process and the transport layer, never from client-supplied
// request content. Results is opaque to this layer and stored verbatim.
type AuditRecord struct {
	ID           int64
	Domain       string
	Timestamp    time.Time
	ClientOrigin *string
	Results      json.RawMessage
	UserAgent    *string
	Email        *string
	Score        *int64
}

// DomainCount is one row of the top-domains aggregate: a domain and the number
// of audit records stored for it.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// AuditRepository is the persistence port for audit records.
type AuditRepository interface {
	Insert(ctx context.Context, rec *AuditRecord) (*AuditRecord, error)
	TopDomains(ctx context.Context, limit int) ([]DomainCount, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}
