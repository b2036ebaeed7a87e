// Package repository implements the domain repository interfaces using SQLite.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"domainaudit/internal/domain"
)

// timeLayout is the storage format for audit timestamps. Lexicographic order
// of this layout matches chronological order, which the retention sweep's
// timestamp predicate relies on. Second precision is enough: insertion order
// is carried by id.
const timeLayout = "2006-01-02 15:04:05"

// AuditRepo implements domain.AuditRepository over SQLite. It takes two DB
// pools: writes (Insert, DeleteOlderThan) go through the single-connection
// write pool, reads (TopDomains, Count, GetByID) through the read pool.
// In single-pool setups, pass the same *sql.DB for both.
type AuditRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewAuditRepo creates an AuditRepo over the given pools.
func NewAuditRepo(writeDB, readDB *sql.DB) *AuditRepo {
	return &AuditRepo{writeDB: writeDB, readDB: readDB}
}

// Insert writes one audit record and returns a copy carrying the
// store-assigned id. The insert is a single statement, so a record is either
// fully present or absent, never half-populated.
func (r *AuditRepo) Insert(ctx context.Context, rec *domain.AuditRecord) (*domain.AuditRecord, error) {
	res, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO audit_log (domain, timestamp, client_origin, results, user_agent, email, score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Domain,
		rec.Timestamp.UTC().Format(timeLayout),
		nullStr(rec.ClientOrigin),
		nullJSON(rec.Results),
		nullStr(rec.UserAgent),
		nullStr(rec.Email),
		nullInt(rec.Score),
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert audit record: last insert id: %w", err)
	}

	out := *rec
	out.ID = id
	return &out, nil
}

// TopDomains groups all stored records by domain and returns the limit most
// frequent ones, ordered by count descending. Ties break by domain name
// ascending so the result is deterministic.
func (r *AuditRepo) TopDomains(ctx context.Context, limit int) ([]domain.DomainCount, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT domain, COUNT(*) AS cnt
		FROM audit_log
		GROUP BY domain
		ORDER BY cnt DESC, domain ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	defer rows.Close()

	counts := []domain.DomainCount{}
	for rows.Next() {
		var c domain.DomainCount
		if err := rows.Scan(&c.Domain, &c.Count); err != nil {
			return nil, fmt.Errorf("top domains: scan: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}

	return counts, nil
}

// DeleteOlderThan removes every record whose timestamp is strictly older than
// cutoff and reports how many rows went away. The predicate is timestamp-only:
// concurrent inserts with fresh timestamps can never be caught by it.
func (r *AuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.writeDB.ExecContext(ctx,
		`DELETE FROM audit_log WHERE timestamp < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("delete older than %s: %w", cutoff.UTC().Format(timeLayout), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete older than: rows affected: %w", err)
	}
	return n, nil
}

// Count returns the total number of stored records.
func (r *AuditRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.readDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return n, nil
}

// GetByID fetches a single record. Returns a NotFoundError when no record has
// the given id.
func (r *AuditRepo) GetByID(ctx context.Context, id int64) (*domain.AuditRecord, error) {
	row := r.readDB.QueryRowContext(ctx, `
		SELECT id, domain, timestamp, client_origin, results, user_agent, email, score
		FROM audit_log WHERE id = ?`, id)

	var (
		rec          domain.AuditRecord
		clientOrigin sql.NullString
		results      sql.NullString
		userAgent    sql.NullString
		email        sql.NullString
		score        sql.NullInt64
	)
	// The driver materialises TIMESTAMP columns as time.Time (UTC).
	if err := row.Scan(&rec.ID, &rec.Domain, &rec.Timestamp, &clientOrigin, &results, &userAgent, &email, &score); err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("audit record %d not found", id)}
		}
		return nil, fmt.Errorf("get audit record %d: %w", id, err)
	}
	rec.Timestamp = rec.Timestamp.UTC()

	if clientOrigin.Valid {
		rec.ClientOrigin = &clientOrigin.String
	}
	if results.Valid {
		rec.Results = json.RawMessage(results.String)
	}
	if userAgent.Valid {
		rec.UserAgent = &userAgent.String
	}
	if email.Valid {
		rec.Email = &email.String
	}
	if score.Valid {
		rec.Score = &score.Int64
	}

	return &rec, nil
}

func nullStr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// Compile-time check that AuditRepo implements the repository port.
var _ domain.AuditRepository = (*AuditRepo)(nil)
