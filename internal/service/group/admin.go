package group

import (
	"context"
	"log/slog"
	"time"

	"groupman/internal/domain"
	"groupman/internal/service/auditutil"
)

// AdminService exposes unrestricted group management to administrators.
// Role checks happen at the transport layer.
type AdminService struct {
	federation *Federation
	store      domain.GroupStore
	auditLog   domain.AuditRepository
	audit      *auditutil.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewAdminService creates an AdminService. auditLog may be nil, in which
// case the audit listing is empty.
func NewAdminService(federation *Federation, store domain.GroupStore, auditLog domain.AuditRepository,
	audit *auditutil.Recorder, logger *slog.Logger,
) *AdminService {
	return &AdminService{
		federation: federation,
		store:      store,
		auditLog:   auditLog,
		audit:      audit,
		logger:     logger.With("component", "admin"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ListAll returns every group of both sources.
func (s *AdminService) ListAll(ctx context.Context) ([]domain.Group, error) {
	return s.federation.ListAll(ctx)
}

// Get resolves one group by id.
func (s *AdminService) Get(ctx context.Context, id string) (*domain.Group, error) {
	return s.federation.ResolveByID(ctx, id)
}

// GetByIDs resolves a set of ids.
func (s *AdminService) GetByIDs(ctx context.Context, ids []string) ([]domain.Group, error) {
	return s.federation.ResolveByIDs(ctx, ids)
}

// Add stores a new group. CreatedBy defaults to caller and owners are taken
// as given; the quota does not apply.
func (s *AdminService) Add(ctx context.Context, caller domain.Caller, req domain.CreateGroupRequest) (*domain.Group, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Source == domain.SourceDirectory {
		err := domain.ErrUnsupported("directory groups cannot be created")
		s.audit.Denied(ctx, caller.Name, auditutil.ActionAdminAdd, "", err.Error())
		return nil, err
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = caller.Name
	}
	now := s.now()
	g := &domain.Group{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   createdBy,
		CreatedAt:   &now,
		ModifiedAt:  &now,
		Source:      domain.SourceInternal,
		Owners:      domain.NormalizeSet(req.Owners),
		Members:     domain.NormalizeSet(req.Members),
	}
	return s.save(ctx, caller, auditutil.ActionAdminAdd, g)
}

// Modify replaces the mutable fields of the record-store group with id
// without an ownership check. A non-empty CreatedBy overrides the creator.
func (s *AdminService) Modify(ctx context.Context, caller domain.Caller, id string, in domain.GroupInput) (*domain.Group, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if in.Source == domain.SourceDirectory {
		err := domain.ErrUnsupported("directory group %q cannot be modified", id)
		s.audit.Denied(ctx, caller.Name, auditutil.ActionAdminModify, id, err.Error())
		return nil, err
	}

	target, err := s.store.FindByID(ctx, id)
	if err != nil {
		err = upstream(s.logger, domain.UpstreamStore, "find by id", err)
		s.record(ctx, caller, auditutil.ActionAdminModify, id, err)
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	target.Name = in.Name
	target.Description = in.Description
	target.Owners = domain.NormalizeSet(in.Owners)
	target.Members = domain.NormalizeSet(in.Members)
	if in.CreatedBy != "" {
		target.CreatedBy = in.CreatedBy
	}
	if in.Version != nil {
		target.Version = *in.Version
	}
	now := s.now()
	target.ModifiedAt = &now
	return s.save(ctx, caller, auditutil.ActionAdminModify, target)
}

// Remove deletes the record-store group with id. A missing id is not an error.
func (s *AdminService) Remove(ctx context.Context, caller domain.Caller, id string) error {
	target, err := s.store.FindByID(ctx, id)
	if isNotFound(err) {
		return nil
	}
	if err == nil {
		err = s.store.Delete(ctx, target)
	}
	if err != nil {
		err = upstream(s.logger, domain.UpstreamStore, "delete", err)
		s.record(ctx, caller, auditutil.ActionAdminRemove, id, err)
		return err
	}
	s.audit.Allowed(ctx, caller.Name, auditutil.ActionAdminRemove, id, "")
	return nil
}

// Audit lists recorded mutation decisions, newest first.
func (s *AdminService) Audit(ctx context.Context, page domain.PageRequest) ([]domain.AuditEntry, int64, error) {
	if s.auditLog == nil {
		return []domain.AuditEntry{}, 0, nil
	}
	entries, total, err := s.auditLog.List(ctx, page)
	if err != nil {
		return nil, 0, upstream(s.logger, domain.UpstreamStore, "list audit", err)
	}
	return entries, total, nil
}

func (s *AdminService) save(ctx context.Context, caller domain.Caller, action string, g *domain.Group) (*domain.Group, error) {
	saved, err := s.store.Save(ctx, g)
	if err != nil {
		err = upstream(s.logger, domain.UpstreamStore, "save", err)
		s.record(ctx, caller, action, g.ID, err)
		return nil, err
	}
	s.audit.Allowed(ctx, caller.Name, action, saved.ID, "")
	return saved.Normalize(), nil
}

func (s *AdminService) record(ctx context.Context, caller domain.Caller, action, id string, err error) {
	if isUpstream(err) {
		s.audit.Failed(ctx, caller.Name, action, id, err.Error())
		return
	}
	s.audit.Denied(ctx, caller.Name, action, id, err.Error())
}
