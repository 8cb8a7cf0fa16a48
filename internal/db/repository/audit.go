package repository

import (
	"context"
	"database/sql"
	"time"

	"groupman/internal/domain"
)

// AuditRepo stores mutation decisions in the audit_log table.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates an AuditRepo on db.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

var _ domain.AuditRepository = (*AuditRepo)(nil)

// Insert records e, assigning an id and timestamp when they are unset.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, principal_name, action, group_id, status, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PrincipalName, e.Action, e.GroupID, e.Status, e.Detail,
		e.CreatedAt.UTC().Format(timeLayout))
	return mapDBError(err)
}

// List returns one page of entries, newest first, and the total entry count.
func (r *AuditRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.AuditEntry, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, principal_name, action, group_id, status, detail, created_at
		 FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close() //nolint:errcheck

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			e         domain.AuditEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.PrincipalName, &e.Action, &e.GroupID, &e.Status, &e.Detail, &createdAt); err != nil {
			return nil, 0, err
		}
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
