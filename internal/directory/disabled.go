package directory

import (
	"context"
	"log/slog"

	"groupman/internal/domain"
)

// Disabled stands in for the directory when none is configured: lists are
// empty, counts are zero and name lookups miss.
type Disabled struct{}

var _ domain.Directory = Disabled{}

func (Disabled) FindAll(context.Context) ([]domain.Group, error) { return []domain.Group{}, nil }

func (Disabled) FindByName(_ context.Context, name string) (*domain.Group, error) {
	return nil, domain.ErrNotFound("directory group %q not found", name)
}

func (Disabled) FindByNames(context.Context, []string) ([]domain.Group, error) {
	return []domain.Group{}, nil
}

func (Disabled) FindByMemberContains(context.Context, string) ([]domain.Group, error) {
	return []domain.Group{}, nil
}

func (Disabled) CountMembership(context.Context, string) (int64, error) { return 0, nil }

func (Disabled) Count(context.Context) (int64, error) { return 0, nil }

// New returns a Gateway dialing the configured URL for enabled settings and
// Disabled otherwise.
func New(settings Settings, logger *slog.Logger) domain.Directory {
	if !settings.Enabled() {
		logger.Info("directory disabled")
		return Disabled{}
	}
	return NewGateway(settings, NewLDAPDialer(settings), logger)
}
