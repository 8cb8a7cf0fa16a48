// Package auditutil records mutation decisions in the audit log.
package auditutil

import (
	"context"
	"log/slog"

	"groupman/internal/domain"
)

// Audit actions.
const (
	ActionCreate      = "CREATE_GROUP"
	ActionUpdate      = "UPDATE_GROUP"
	ActionPatch       = "PATCH_GROUP"
	ActionDelete      = "DELETE_GROUP"
	ActionAdminAdd    = "ADMIN_ADD_GROUP"
	ActionAdminModify = "ADMIN_MODIFY_GROUP"
	ActionAdminRemove = "ADMIN_REMOVE_GROUP"
)

// Recorder writes audit entries. A nil repository disables recording;
// insert failures are logged and never returned.
type Recorder struct {
	repo   domain.AuditRepository
	logger *slog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(repo domain.AuditRepository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger.With("component", "audit")}
}

// Allowed records a mutation that succeeded.
func (r *Recorder) Allowed(ctx context.Context, principal, action, groupID, detail string) {
	r.record(ctx, principal, action, groupID, domain.AuditAllowed, detail)
}

// Denied records a mutation refused for a business reason.
func (r *Recorder) Denied(ctx context.Context, principal, action, groupID, detail string) {
	r.record(ctx, principal, action, groupID, domain.AuditDenied, detail)
}

// Failed records a mutation aborted by an infrastructural error.
func (r *Recorder) Failed(ctx context.Context, principal, action, groupID, detail string) {
	r.record(ctx, principal, action, groupID, domain.AuditError, detail)
}

func (r *Recorder) record(ctx context.Context, principal, action, groupID, status, detail string) {
	if r == nil || r.repo == nil {
		return
	}
	err := r.repo.Insert(context.WithoutCancel(ctx), &domain.AuditEntry{
		PrincipalName: principal,
		Action:        action,
		GroupID:       groupID,
		Status:        status,
		Detail:        detail,
	})
	if err != nil {
		r.logger.Warn("audit insert failed", "action", action, "group_id", groupID, "error", err)
	}
}
