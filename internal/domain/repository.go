package domain

import "context"

// GroupStore is the mutable, authoritative record store for INTERNAL groups.
// Misses are reported as *NotFoundError; list results are sorted by the
// store's (name, createdBy) index.
type GroupStore interface {
	FindByID(ctx context.Context, id string) (*Group, error)
	FindByIDs(ctx context.Context, ids []string) ([]Group, error)
	FindAll(ctx context.Context) ([]Group, error)
	FindByOwnerContains(ctx context.Context, user string) ([]Group, error)
	FindByMemberContains(ctx context.Context, user string) ([]Group, error)
	FindByOwnerOrMemberContains(ctx context.Context, user string) ([]Group, error)
	CountOwned(ctx context.Context, user string) (int64, error)
	CountMembership(ctx context.Context, user string) (int64, error)
	Count(ctx context.Context) (int64, error)

	// Save inserts a group without id (assigning one) or updates an existing
	// one when its Version matches the stored version. A (createdBy, name)
	// collision or a version mismatch is reported as *ConflictError.
	Save(ctx context.Context, g *Group) (*Group, error)
	Delete(ctx context.Context, g *Group) error
}

// Directory is the read-only external directory. Every returned group has
// Source == SourceDirectory. A name miss is reported as *NotFoundError.
type Directory interface {
	FindAll(ctx context.Context) ([]Group, error)
	FindByName(ctx context.Context, name string) (*Group, error)
	FindByNames(ctx context.Context, names []string) ([]Group, error)
	FindByMemberContains(ctx context.Context, user string) ([]Group, error)
	CountMembership(ctx context.Context, user string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// AuditRepository stores mutation decisions.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, page PageRequest) ([]AuditEntry, int64, error)
}
