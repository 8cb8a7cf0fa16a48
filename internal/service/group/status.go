package group

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"groupman/internal/domain"
)

// StatusService counts a user's owned groups and memberships.
type StatusService struct {
	store          domain.GroupStore
	directory      domain.Directory
	maxOwnedGroups int
	logger         *slog.Logger
}

// NewStatusService creates a StatusService reporting maxOwnedGroups as the quota.
func NewStatusService(store domain.GroupStore, directory domain.Directory, maxOwnedGroups int, logger *slog.Logger) *StatusService {
	return &StatusService{
		store:          store,
		directory:      directory,
		maxOwnedGroups: maxOwnedGroups,
		logger:         logger.With("component", "status"),
	}
}

// OwnedCount counts the record-store groups user owns.
func (s *StatusService) OwnedCount(ctx context.Context, user string) (int64, error) {
	n, err := s.store.CountOwned(ctx, user)
	if err != nil {
		return 0, upstream(s.logger, domain.UpstreamStore, "count owned", err)
	}
	return n, nil
}

// MembershipCount sums the record-store memberships of user and, when
// allowDirectory is set, the directory memberships.
func (s *StatusService) MembershipCount(ctx context.Context, user string, allowDirectory bool) (int64, error) {
	var internal, external int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountMembership(gctx, user)
		if err != nil {
			return upstream(s.logger, domain.UpstreamStore, "count membership", err)
		}
		internal = n
		return nil
	})
	if allowDirectory {
		g.Go(func() error {
			n, err := s.directory.CountMembership(gctx, user)
			if err != nil {
				return upstream(s.logger, domain.UpstreamDirectory, "count membership", err)
			}
			external = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return internal + external, nil
}

// Status issues both counts concurrently and echoes the configured quota.
func (s *StatusService) Status(ctx context.Context, user string, allowDirectory bool) (*domain.Status, error) {
	st := &domain.Status{MaxOwnedGroups: s.maxOwnedGroups}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.OwnedCount(gctx, user)
		st.OwnedCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.MembershipCount(gctx, user, allowDirectory)
		st.MembershipCount = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}
