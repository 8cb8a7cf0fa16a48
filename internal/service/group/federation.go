package group

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"groupman/internal/domain"
)

// Federation merges record-store and directory reads into one sorted view.
type Federation struct {
	store     domain.GroupStore
	directory domain.Directory
	localRole string
	logger    *slog.Logger
}

// NewFederation creates a Federation. Callers holding localRole may see
// directory groups in usable and membership lists; an empty localRole lets
// every caller see them.
func NewFederation(store domain.GroupStore, directory domain.Directory, localRole string, logger *slog.Logger) *Federation {
	return &Federation{
		store:     store,
		directory: directory,
		localRole: localRole,
		logger:    logger.With("component", "federation"),
	}
}

// AllowsDirectory reports whether directory lookups are made on behalf of caller.
func (f *Federation) AllowsDirectory(caller domain.Caller) bool {
	return f.localRole == "" || caller.HasRole(f.localRole)
}

// ResolveByID looks id up in the record store and, on a miss only, as a
// directory group name.
func (f *Federation) ResolveByID(ctx context.Context, id string) (*domain.Group, error) {
	g, err := f.store.FindByID(ctx, id)
	if err == nil {
		g.Normalize()
		return g, nil
	}
	if !isNotFound(err) {
		return nil, upstream(f.logger, domain.UpstreamStore, "find by id", err)
	}

	g, err = f.directory.FindByName(ctx, id)
	if err == nil {
		g.Normalize()
		return g, nil
	}
	if !isNotFound(err) {
		return nil, upstream(f.logger, domain.UpstreamDirectory, "find by name", err)
	}
	return nil, domain.ErrNotFound("group %q not found", id)
}

// ResolveByIDs returns the record-store groups with the given ids and the
// directory groups named by them. No ids yields no groups.
func (f *Federation) ResolveByIDs(ctx context.Context, ids []string) ([]domain.Group, error) {
	ids = domain.NormalizeSet(ids)
	if len(ids) == 0 {
		return []domain.Group{}, nil
	}
	return f.fanOut(ctx, "find by ids",
		func(ctx context.Context) ([]domain.Group, error) { return f.store.FindByIDs(ctx, ids) },
		func(ctx context.Context) ([]domain.Group, error) { return f.directory.FindByNames(ctx, ids) },
	)
}

// ListAll returns every group of both sources.
func (f *Federation) ListAll(ctx context.Context) ([]domain.Group, error) {
	return f.fanOut(ctx, "find all", f.store.FindAll, f.directory.FindAll)
}

// ListOwnedBy returns the record-store groups user owns.
func (f *Federation) ListOwnedBy(ctx context.Context, user string) ([]domain.Group, error) {
	return f.fanOut(ctx, "find by owner",
		func(ctx context.Context) ([]domain.Group, error) { return f.store.FindByOwnerContains(ctx, user) },
		nil,
	)
}

// ListUsableBy returns the record-store groups user owns or belongs to,
// plus the directory groups user belongs to when allowDirectory is set.
func (f *Federation) ListUsableBy(ctx context.Context, user string, allowDirectory bool) ([]domain.Group, error) {
	var fromDirectory func(context.Context) ([]domain.Group, error)
	if allowDirectory {
		fromDirectory = func(ctx context.Context) ([]domain.Group, error) {
			return f.directory.FindByMemberContains(ctx, user)
		}
	}
	return f.fanOut(ctx, "find usable",
		func(ctx context.Context) ([]domain.Group, error) { return f.store.FindByOwnerOrMemberContains(ctx, user) },
		fromDirectory,
	)
}

// ListMembershipOf returns the groups user is a member of, consulting the
// directory only when allowDirectory is set.
func (f *Federation) ListMembershipOf(ctx context.Context, user string, allowDirectory bool) ([]domain.Group, error) {
	var fromDirectory func(context.Context) ([]domain.Group, error)
	if allowDirectory {
		fromDirectory = func(ctx context.Context) ([]domain.Group, error) {
			return f.directory.FindByMemberContains(ctx, user)
		}
	}
	return f.fanOut(ctx, "find membership",
		func(ctx context.Context) ([]domain.Group, error) { return f.store.FindByMemberContains(ctx, user) },
		fromDirectory,
	)
}

// MembershipIDs returns the ids of ListMembershipOf as a sorted set.
func (f *Federation) MembershipIDs(ctx context.Context, user string, allowDirectory bool) ([]string, error) {
	groups, err := f.ListMembershipOf(ctx, user, allowDirectory)
	if err != nil {
		return nil, err
	}
	return domain.GroupIDs(groups), nil
}

// fanOut runs the store and (optional) directory reads concurrently and
// merges their results.
func (f *Federation) fanOut(ctx context.Context, op string,
	fromStore, fromDirectory func(context.Context) ([]domain.Group, error),
) ([]domain.Group, error) {
	var internal, external []domain.Group

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		groups, err := fromStore(gctx)
		if err != nil {
			return upstream(f.logger, domain.UpstreamStore, op, err)
		}
		internal = groups
		return nil
	})
	if fromDirectory != nil {
		g.Go(func() error {
			groups, err := fromDirectory(gctx)
			if err != nil {
				return upstream(f.logger, domain.UpstreamDirectory, op, err)
			}
			external = groups
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return domain.MergeGroups(internal, external), nil
}
