package domain

import "time"

// Audit statuses.
const (
	AuditAllowed = "ALLOWED"
	AuditDenied  = "DENIED"
	AuditError   = "ERROR"
)

// AuditEntry records one mutation decision.
type AuditEntry struct {
	ID            string
	PrincipalName string
	Action        string // e.g. "CREATE_GROUP", "DELETE_GROUP"
	GroupID       string
	Status        string // "ALLOWED", "DENIED", "ERROR"
	Detail        string
	CreatedAt     time.Time
}
