package group

import (
	"context"
	"log/slog"
	"time"

	"groupman/internal/domain"
	"groupman/internal/service/auditutil"
)

// Unlimited disables the owned-groups quota.
const Unlimited = -1

// MutationService creates, changes and deletes INTERNAL groups on behalf of
// their owners.
type MutationService struct {
	federation     *Federation
	store          domain.GroupStore
	maxOwnedGroups int
	audit          *auditutil.Recorder
	logger         *slog.Logger
	now            func() time.Time
}

// NewMutationService creates a MutationService. A negative maxOwnedGroups
// disables the quota.
func NewMutationService(federation *Federation, store domain.GroupStore, maxOwnedGroups int,
	audit *auditutil.Recorder, logger *slog.Logger,
) *MutationService {
	return &MutationService{
		federation:     federation,
		store:          store,
		maxOwnedGroups: maxOwnedGroups,
		audit:          audit,
		logger:         logger.With("component", "mutation"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new group created and owned by caller.
func (s *MutationService) Create(ctx context.Context, caller domain.Caller, req domain.CreateGroupRequest) (*domain.Group, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Source == domain.SourceDirectory {
		err := domain.ErrUnsupported("directory groups cannot be created")
		s.audit.Denied(ctx, caller.Name, auditutil.ActionCreate, "", err.Error())
		return nil, err
	}

	if s.maxOwnedGroups >= 0 {
		owned, err := s.store.CountOwned(ctx, caller.Name)
		if err != nil {
			err = upstream(s.logger, domain.UpstreamStore, "count owned", err)
			s.audit.Failed(ctx, caller.Name, auditutil.ActionCreate, "", err.Error())
			return nil, err
		}
		if owned >= int64(s.maxOwnedGroups) {
			err := &domain.QuotaExceededError{Owned: owned, Max: s.maxOwnedGroups}
			s.audit.Denied(ctx, caller.Name, auditutil.ActionCreate, "", err.Error())
			return nil, err
		}
	}

	now := s.now()
	g := &domain.Group{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   caller.Name,
		CreatedAt:   &now,
		ModifiedAt:  &now,
		Source:      domain.SourceInternal,
		Owners:      domain.AddToSet(req.Owners, caller.Name),
		Members:     domain.NormalizeSet(req.Members),
	}
	return s.save(ctx, caller, auditutil.ActionCreate, g)
}

// Update replaces the mutable fields of the group with id. The target is
// resolved and checked before the input is validated.
func (s *MutationService) Update(ctx context.Context, caller domain.Caller, id string, in domain.GroupInput) (*domain.Group, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	target, err := s.editable(ctx, caller, auditutil.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	target.Name = in.Name
	target.Description = in.Description
	target.Members = domain.NormalizeSet(in.Members)
	target.Owners = keepEditor(in.Owners, caller.Name)
	if in.Version != nil {
		target.Version = *in.Version
	}
	now := s.now()
	target.ModifiedAt = &now
	return s.save(ctx, caller, auditutil.ActionUpdate, target)
}

// Patch applies the fields present in p to the group with id.
func (s *MutationService) Patch(ctx context.Context, caller domain.Caller, id string, p domain.GroupPatch) (*domain.Group, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	target, err := s.editable(ctx, caller, auditutil.ActionPatch, id)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if p.Name != nil {
		target.Name = *p.Name
	}
	if p.Description != nil {
		target.Description = *p.Description
	}
	if p.Members != nil {
		target.Members = domain.NormalizeSet(p.Members)
	}
	if p.Owners != nil {
		target.Owners = keepEditor(p.Owners, caller.Name)
	}
	if p.Version != nil {
		target.Version = *p.Version
	}
	now := s.now()
	target.ModifiedAt = &now
	return s.save(ctx, caller, auditutil.ActionPatch, target)
}

// Delete removes the record-store group with id when caller owns it.
func (s *MutationService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	target, err := s.store.FindByID(ctx, id)
	if err != nil {
		err = upstream(s.logger, domain.UpstreamStore, "find by id", err)
		s.deny(ctx, caller, auditutil.ActionDelete, id, err)
		return err
	}
	if !target.IsOwner(caller.Name) {
		err := domain.ErrAccessDenied("%q is not an owner of group %q", caller.Name, id)
		s.audit.Denied(ctx, caller.Name, auditutil.ActionDelete, id, err.Error())
		return err
	}
	if err := s.store.Delete(ctx, target); err != nil {
		err = upstream(s.logger, domain.UpstreamStore, "delete", err)
		s.deny(ctx, caller, auditutil.ActionDelete, id, err)
		return err
	}
	s.audit.Allowed(ctx, caller.Name, auditutil.ActionDelete, id, "")
	return nil
}

// editable resolves the target of an update and checks, in order, that it
// exists, is not a directory group and is owned by caller.
func (s *MutationService) editable(ctx context.Context, caller domain.Caller, action, id string) (*domain.Group, error) {
	target, err := s.federation.ResolveByID(ctx, id)
	if err != nil {
		s.deny(ctx, caller, action, id, err)
		return nil, err
	}
	if target.IsDirectory() {
		err := domain.ErrUnsupported("directory group %q cannot be modified", id)
		s.audit.Denied(ctx, caller.Name, action, id, err.Error())
		return nil, err
	}
	if !target.IsOwner(caller.Name) {
		err := domain.ErrAccessDenied("%q is not an owner of group %q", caller.Name, id)
		s.audit.Denied(ctx, caller.Name, action, id, err.Error())
		return nil, err
	}
	return target, nil
}

func (s *MutationService) save(ctx context.Context, caller domain.Caller, action string, g *domain.Group) (*domain.Group, error) {
	saved, err := s.store.Save(ctx, g)
	if err != nil {
		err = upstream(s.logger, domain.UpstreamStore, "save", err)
		s.deny(ctx, caller, action, g.ID, err)
		return nil, err
	}
	s.audit.Allowed(ctx, caller.Name, action, saved.ID, "")
	return saved.Normalize(), nil
}

// deny records err as a denial when it is a business outcome and as a
// failure otherwise.
func (s *MutationService) deny(ctx context.Context, caller domain.Caller, action, id string, err error) {
	if isUpstream(err) {
		s.audit.Failed(ctx, caller.Name, action, id, err.Error())
		return
	}
	s.audit.Denied(ctx, caller.Name, action, id, err.Error())
}

// keepEditor returns owners as a set, falling back to {editor} when empty.
func keepEditor(owners []string, editor string) []string {
	set := domain.NormalizeSet(owners)
	if len(set) == 0 {
		return []string{editor}
	}
	return set
}
